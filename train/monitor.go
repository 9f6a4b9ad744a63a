// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import "math"

// MonitorWindow is the number of checkpoint deltas considered by the
// termination rule.
const MonitorWindow = 3

// Monitor applies the termination rule to the log likelihood deltas measured
// at checkpoints. The run has converged when the magnitude of every delta in
// the window is below the threshold. A drop in log likelihood counts by its
// magnitude, so a large decrease blocks convergence the same way a large
// improvement does, and a threshold of zero never converges. Until the window
// is full it holds the deltas seen so far.
type Monitor struct {
	threshold float64
	deltas    []float64
	converged bool
}

// NewMonitor returns a monitor for the threshold.
func NewMonitor(threshold float64) *Monitor {
	return &Monitor{threshold: threshold}
}

// Add records the delta of a new checkpoint and returns true if the run has
// converged. Once converged the monitor stays converged.
func (m *Monitor) Add(delta float64) bool {

	if m.converged {
		return true
	}
	m.deltas = append(m.deltas, delta)
	if len(m.deltas) > MonitorWindow {
		m.deltas = m.deltas[len(m.deltas)-MonitorWindow:]
	}
	for _, d := range m.deltas {
		if math.IsNaN(d) || !(math.Abs(d) < m.threshold) {
			return false
		}
	}
	m.converged = true
	return true
}

// Converged returns true after Add reported convergence.
func (m *Monitor) Converged() bool { return m.converged }

// Window returns a copy of the deltas in the window, oldest first.
func (m *Monitor) Window() []float64 {
	return append([]float64(nil), m.deltas...)
}
