// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"fmt"

	sshmm "github.com/phychaos/ssHMM"
)

// Point is the aggregate log likelihood after an iteration.
type Point struct {
	Iteration int     `json:"iteration"`
	LogProb   float64 `json:"log_prob"`
}

// Trajectory is an append-only sequence of points with strictly increasing
// iteration numbers.
type Trajectory struct {
	points []Point
}

// Append adds a point. Fails if iteration is not larger than the last one.
func (tr *Trajectory) Append(iteration int, logProb float64) error {
	if n := len(tr.points); n > 0 && iteration <= tr.points[n-1].Iteration {
		return fmt.Errorf("trajectory iteration %d after %d", iteration, tr.points[n-1].Iteration)
	}
	tr.points = append(tr.points, Point{Iteration: iteration, LogProb: logProb})
	return nil
}

// Len returns the number of points.
func (tr *Trajectory) Len() int { return len(tr.points) }

// Last returns the most recent point.
func (tr *Trajectory) Last() (Point, bool) {
	if len(tr.points) == 0 {
		return Point{}, false
	}
	return tr.points[len(tr.points)-1], true
}

// Points returns a copy of the points.
func (tr *Trajectory) Points() []Point {
	return append([]Point(nil), tr.points...)
}

// LogProbs returns the log likelihoods in order.
func (tr *Trajectory) LogProbs() []float64 {
	lp := make([]float64, len(tr.points))
	for i, p := range tr.points {
		lp[i] = p.LogProb
	}
	return lp
}

// WriteFile writes the points as JSON.
func (tr *Trajectory) WriteFile(fn string) error {
	return sshmm.WriteJSONFile(fn, tr.points)
}

// ReadTrajectory reads points written by WriteFile.
func ReadTrajectory(fn string) (*Trajectory, error) {

	var points []Point
	if err := sshmm.ReadJSONFile(fn, &points); err != nil {
		return nil, err
	}
	tr := &Trajectory{}
	for _, p := range points {
		if err := tr.Append(p.Iteration, p.LogProb); err != nil {
			return nil, fmt.Errorf("%w: %v", sshmm.ErrInputFormat, err)
		}
	}
	return tr, nil
}
