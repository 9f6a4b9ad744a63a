// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sshmm

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {

	// Prepare dirs.
	tmpDir, err := ioutil.TempDir("", "test-config")
	CheckError(t, err)
	defer os.RemoveAll(tmpDir)

	fn := filepath.Join(tmpDir, "config.yaml")
	t.Logf("Config File: %s.", fn)
	err = ioutil.WriteFile(fn, []byte(config), 0644)
	CheckError(t, err)

	// Read config.
	config, e := ReadConfig(fn)
	CheckError(t, e)
	CheckError(t, config.Validate())

	t.Logf("Config: %+v", config)

	if config.Name != "pum2" {
		t.Fatalf("Name is [%s]. Expected \"pum2\".", config.Name)
	}
	if config.SequenceFile != "positives.fa" {
		t.Fatalf("SequenceFile is [%s]. Expected \"positives.fa\".", config.SequenceFile)
	}
	if config.Alphabet.Structure != DotBracket {
		t.Fatalf("Structure alphabet is [%s]. Expected %q.", config.Alphabet.Structure, DotBracket)
	}
	if config.Train.MotifLength != 8 {
		t.Fatalf("MotifLength is [%d]. Expected 8.", config.Train.MotifLength)
	}
	if config.Train.BaumWelch {
		t.Fatalf("BaumWelch is true. Expected false.")
	}
	if config.Train.Timeout != 90*time.Second {
		t.Fatalf("Timeout is [%v]. Expected 1m30s.", config.Train.Timeout)
	}

	// Missing fields keep their defaults.
	d := DefaultTrain()
	if config.Train.Flexibility != d.Flexibility {
		t.Fatalf("Flexibility is [%d]. Expected default %d.", config.Train.Flexibility, d.Flexibility)
	}
	if config.Train.TerminationInterval != d.TerminationInterval {
		t.Fatalf("TerminationInterval is [%d]. Expected default %d.", config.Train.TerminationInterval, d.TerminationInterval)
	}
	if !config.Alphabet.ViewpointMask {
		t.Fatalf("ViewpointMask should default to true.")
	}
	if len(config.Batch) != 2 || config.Batch[1].Name != "qki" {
		t.Fatalf("unexpected batch entries %+v", config.Batch)
	}
}

func TestConfigWriteRead(t *testing.T) {

	c := DefaultConfig()
	c.Train.Threshold = 2.5
	c.Alphabet.OnlyBestShape = true

	var buf bytes.Buffer
	CheckError(t, c.Write(&buf))

	c2, err := ReadConfigReader(&buf)
	CheckError(t, err)
	if c2.Train.Threshold != 2.5 || !c2.Alphabet.OnlyBestShape {
		t.Fatalf("config did not survive write/read: %+v", c2)
	}

	fn := filepath.Join(t.TempDir(), "run", "config.yaml")
	CheckError(t, c.WriteFile(fn))
	c3, err := ReadConfig(fn)
	CheckError(t, err)
	if c3.Train != c.Train {
		t.Fatalf("config file: got %+v, expected %+v", c3.Train, c.Train)
	}
}

func TestConfigValidate(t *testing.T) {

	cases := map[string]func(c *Config){
		"motif":        func(c *Config) { c.Train.MotifLength = 0 },
		"flexibility":  func(c *Config) { c.Train.Flexibility = -1 },
		"block":        func(c *Config) { c.Train.BlockSize = 0 },
		"threshold":    func(c *Config) { c.Train.Threshold = -3 },
		"interval":     func(c *Config) { c.Train.TerminationInterval = 0 },
		"pseudocount":  func(c *Config) { c.Train.Pseudocount = 0 },
		"perturbation": func(c *Config) { c.Train.Perturbation = 1 },
		"alphabet":     func(c *Config) { c.Alphabet.Structure = "shapes" },
	}
	for name, mutate := range cases {
		c := DefaultConfig()
		mutate(c)
		err := c.Validate()
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestConfigBadYAML(t *testing.T) {
	_, err := ReadConfigReader(strings.NewReader("train: [1, 2"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

const config string = `
name: pum2
sequence_file: positives.fa
structure_file: positives.shapes.fa
alphabet:
  structure_alphabet: dotbracket
train:
  motif_length: 8
  baum_welch: false
  timeout: 1m30s
batch:
  - {name: pum2, sequence_file: a.fa, structure_file: a.st.fa}
  - {name: qki, sequence_file: b.fa, structure_file: b.st.fa}
`
