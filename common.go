// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sshmm

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// Fatal logs the error and exits when err is not nil.
func Fatal(err error) {
	if err != nil {
		glog.Fatal(err)
	}
}

// WriteJSONFile writes a value to a JSON file. Creates the parent dir.
func WriteJSONFile(fn string, v interface{}) error {

	if e := os.MkdirAll(filepath.Dir(fn), 0755); e != nil {
		return e
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fn, b, 0644)
}

// ReadJSONFile unmarshals the content of a JSON file into v.
func ReadJSONFile(fn string, v interface{}) error {

	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
