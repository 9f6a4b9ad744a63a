// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"fmt"
	"math"

	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/floatx"
	"github.com/phychaos/ssHMM/model"
	"gonum.org/v1/gonum/floats"
)

// RowTolerance is the maximum deviation from one of a committed row sum.
const RowTolerance = 1e-6

// Accumulator collects expected counts used to reestimate parameters.
//
// Reestimation of state transition probabilities:
//
//	             sum_{t=0}^{T-2} ζ(i,j,t)
//	a_hat(i,j) = ------------------------
//	             sum_{t=0}^{T-2} γ(i,t)
//
// Reestimation of initial state probabilities: π_hat(i) = γ(i,0)
//
// Reestimation of output probabilities: b_hat(j,o) = sum_{t:o(t)=o} γ(j,t) / sum_t γ(j,t)
type Accumulator struct {
	top        *Topology
	numSymbols int
	trans      [][]float64
	emit       [][]float64
	init       []float64
	logProb    float64
	numObs     int
}

// NewAccumulator creates an accumulator for the topology.
func NewAccumulator(top *Topology, numSymbols int) *Accumulator {
	N := top.NumStates()
	return &Accumulator{
		top:        top,
		numSymbols: numSymbols,
		trans:      floatx.MakeFloat2D(N, N),
		emit:       floatx.MakeFloat2D(N, numSymbols),
		init:       make([]float64, N),
	}
}

// Clear resets all counts.
func (a *Accumulator) Clear() {
	floatx.Clear2D(a.trans)
	floatx.Clear2D(a.emit)
	floatx.Fill(a.init, 0)
	a.logProb = 0
	a.numObs = 0
}

// LogProb returns the sum of the log likelihoods added with AddPosterior.
func (a *Accumulator) LogProb() float64 { return a.logProb }

// NumObs returns the number of observations added.
func (a *Accumulator) NumObs() int { return a.numObs }

// AddPosterior adds the expected counts of an observation given its
// forward-backward tables, weighted by w.
func (a *Accumulator) AddPosterior(o *model.Observation, tb *Tables, w float64) error {

	p := tb.params
	if p == nil || tb.Gamma == nil || tb.Beta == nil {
		return fmt.Errorf("forward-backward tables for [%s] are incomplete", o.ID)
	}
	if p.top.NumStates() != a.top.NumStates() || p.numSymbols != a.numSymbols {
		return fmt.Errorf("tables for [%s] do not match accumulator dimensions", o.ID)
	}
	b, err := p.emissions(o)
	if err != nil {
		return err
	}
	N, T := a.top.NumStates(), o.Len()

	for i := 0; i < N; i++ {
		a.init[i] += w * math.Exp(tb.Gamma[i][0])
		for t, sym := range o.Symbols {
			a.emit[i][sym] += w * math.Exp(tb.Gamma[i][t])
		}
		for _, j := range a.top.Succ(i) {
			var sum float64
			for t := 0; t < T-1; t++ {
				sum += math.Exp(tb.xi(i, j, t, b))
			}
			a.trans[i][j] += w * sum
		}
	}
	a.logProb += tb.LogProb
	a.numObs++
	return nil
}

// AddPath adds the counts of a state path, weighted by w.
func (a *Accumulator) AddPath(o *model.Observation, path []int, w float64) error {

	if len(path) != o.Len() {
		return fmt.Errorf("path length [%d] does not match observation [%s] length [%d]", len(path), o.ID, o.Len())
	}
	N := a.top.NumStates()
	for t, s := range path {
		if s < 0 || s >= N {
			return fmt.Errorf("invalid state [%d] in path for [%s]", s, o.ID)
		}
		if sym := o.Symbols[t]; sym < 0 || sym >= a.numSymbols {
			return fmt.Errorf("%w: observation [%s] has symbol %d outside alphabet", sshmm.ErrInputFormat, o.ID, sym)
		}
		if t == 0 {
			if !a.top.Initial(s) {
				return fmt.Errorf("path for [%s] starts in non-initial state [%s]", o.ID, a.top.StateName(s))
			}
		} else if prev := path[t-1]; !a.top.Arc(prev, s) {
			return fmt.Errorf("path for [%s] uses disallowed transition [%s->%s]", o.ID,
				a.top.StateName(prev), a.top.StateName(s))
		}
	}
	if !a.top.Final(path[len(path)-1]) {
		return fmt.Errorf("path for [%s] ends in non-final state", o.ID)
	}

	a.init[path[0]] += w
	for t, s := range path {
		if t > 0 {
			a.trans[path[t-1]][s] += w
		}
		a.emit[s][o.Symbols[t]] += w
	}
	a.numObs++
	return nil
}

// Commit reestimates p from the counts. The pseudocount is added to every
// allowed transition, initial state and emission before normalizing. Assigns
// a new version to p. Counts are not cleared.
func (a *Accumulator) Commit(p *Params, pseudocount float64) error {

	if p.top.NumStates() != a.top.NumStates() || p.numSymbols != a.numSymbols {
		return fmt.Errorf("params do not match accumulator dimensions")
	}
	if floatx.HasNaN(a.trans) || floatx.HasNaN(a.emit) || floats.HasNaN(a.init) {
		return fmt.Errorf("%w: NaN in accumulated counts", sshmm.ErrDegenerateLikelihood)
	}
	N := a.top.NumStates()

	row := make([]float64, N)
	for i := 0; i < N; i++ {
		floatx.Fill(row, 0)
		for _, j := range a.top.Succ(i) {
			row[j] = a.trans[i][j] + pseudocount
		}
		if err := floatx.Normalize(row); err != nil {
			return fmt.Errorf("transitions of state [%s]: %w", a.top.StateName(i), err)
		}
		p.trans.SetRow(i, row)
	}

	erow := make([]float64, a.numSymbols)
	for i := 0; i < N; i++ {
		copy(erow, a.emit[i])
		floats.AddConst(pseudocount, erow)
		if err := floatx.Normalize(erow); err != nil {
			return fmt.Errorf("emissions of state [%s]: %w", a.top.StateName(i), err)
		}
		p.emit.SetRow(i, erow)
	}

	floatx.Fill(row, 0)
	for i := 0; i < N; i++ {
		if a.top.Initial(i) {
			row[i] = a.init[i] + pseudocount
		}
	}
	if err := floatx.Normalize(row); err != nil {
		return fmt.Errorf("initial distribution: %w", err)
	}
	copy(p.init, row)

	p.updateLogs()
	if glog.V(4) {
		glog.Infof("commit version %d, %d observations", p.version, a.numObs)
	}
	return p.CheckRows(RowTolerance)
}
