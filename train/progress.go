// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Checkpoint is the progress record emitted every termination interval.
type Checkpoint struct {
	Name      string        `json:"name,omitempty"`
	Iteration int           `json:"iteration"`
	LogProb   float64       `json:"log_prob"`
	Delta     float64       `json:"delta"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Converged bool          `json:"converged"`
}

// Reporter receives checkpoint records.
type Reporter interface {
	Report(c Checkpoint) error
}

// LogReporter writes checkpoints to the glog info log.
type LogReporter struct{}

// Report implements Reporter.
func (LogReporter) Report(c Checkpoint) error {
	glog.Infof("[%s] iteration %d: log prob %f, delta %f, elapsed %v, converged %t",
		c.Name, c.Iteration, c.LogProb, c.Delta, c.Elapsed, c.Converged)
	return nil
}

// JSONReporter writes one JSON object per checkpoint.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter returns a reporter that writes JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// Report implements Reporter.
func (r *JSONReporter) Report(c Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(c)
}

// MultiReporter sends every checkpoint to all reporters. Stops at the first
// error.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) Report(c Checkpoint) error {
	for _, r := range m {
		if err := r.Report(c); err != nil {
			return err
		}
	}
	return nil
}
