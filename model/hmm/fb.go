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
)

// LogFloor is the lowest acceptable log likelihood of an observation.
const LogFloor = -1e30

// Tables holds the forward-backward tables of an observation. Indices are
// [state][time], all values in log scale.
type Tables struct {
	Alpha   [][]float64
	Beta    [][]float64
	Gamma   [][]float64
	LogProb float64
	// Params version used to compute the tables.
	Version uint64
	params  *Params
}

// Params returns the parameters used to compute the tables.
func (tb *Tables) Params() *Params { return tb.params }

func degenerate(lp float64) bool {
	return math.IsNaN(lp) || math.IsInf(lp, -1) || lp < LogFloor
}

func degenerateError(o *model.Observation, lp float64) error {
	return fmt.Errorf("%w: observation [%s] has log likelihood %g", sshmm.ErrDegenerateLikelihood, o.ID, lp)
}

// emissions returns log b(j,o(t)) as [state][time]. Motif start positions
// that are not allowed for the observation have probability zero in M1.
func (p *Params) emissions(o *model.Observation) ([][]float64, error) {

	N, T := p.NumStates(), o.Len()
	k := p.top.MotifLength()
	m1 := p.top.Motif(0)
	b := floatx.MakeFloat2D(N, T)
	for t, sym := range o.Symbols {
		if sym < 0 || sym >= p.numSymbols {
			return nil, fmt.Errorf("%w: observation [%s] has symbol %d at position %d outside alphabet of size %d",
				sshmm.ErrInputFormat, o.ID, sym, t, p.numSymbols)
		}
		for j := 0; j < N; j++ {
			b[j][t] = p.logEmit.At(j, sym)
		}
		if !o.AllowedStart(t, k) {
			b[m1][t] = floatx.LogZero
		}
	}
	return b, nil
}

// Compute alphas. Indices are: α(state, time)
//
//  1. Initialization: α(i,0) =  π(i) b(i,o(0)); 0<=i<N
//  2. Induction:      α(j,t+1) =  sum_{i∈pred(j)}[α(i,t)a(i,j)] b(j,o(t+1)); 0<=t<T-1
//  3. Termination:    P(O/Φ) = sum_{i∈final} α(i,T-1)
func (p *Params) alpha(o *model.Observation, b [][]float64) (α [][]float64, logProb float64) {

	N, T := p.NumStates(), o.Len()
	α = floatx.MakeFloat2D(N, T)

	for i := 0; i < N; i++ {
		α[i][0] = p.logInit[i] + b[i][0]
	}
	for t := 0; t < T-1; t++ {
		for j := 0; j < N; j++ {
			sum := floatx.LogZero
			for _, i := range p.top.Pred(j) {
				sum = floatx.LogAdd(sum, α[i][t]+p.logTrans.At(i, j))
			}
			α[j][t+1] = sum + b[j][t+1]
		}
	}

	logProb = floatx.LogZero
	for i := 0; i < N; i++ {
		logProb = floatx.LogAdd(logProb, α[i][T-1]+p.LogFinal(i))
	}
	return
}

// Compute betas. Indices are: β(state, time)
//
//  1. Initialization: β(i,T-1) = 1 if i is final, 0 otherwise.
//  2. Induction:      β(i,t) =  sum_{j∈succ(i)} a(i,j) b(j,o(t+1)) β(j,t+1); t=T-2,...,0
func (p *Params) beta(o *model.Observation, b [][]float64) (β [][]float64) {

	N, T := p.NumStates(), o.Len()
	β = floatx.MakeFloat2D(N, T)

	for i := 0; i < N; i++ {
		β[i][T-1] = p.LogFinal(i)
	}
	for t := T - 2; t >= 0; t-- {
		for i := 0; i < N; i++ {
			sum := floatx.LogZero
			for _, j := range p.top.Succ(i) {
				sum = floatx.LogAdd(sum, p.logTrans.At(i, j)+b[j][t+1]+β[j][t+1])
			}
			β[i][t] = sum
		}
	}
	return
}

// Forward computes the alpha table and the log likelihood of an observation.
// Returns ErrDegenerateLikelihood if the likelihood is zero, NaN or below
// LogFloor.
func (p *Params) Forward(o *model.Observation) (*Tables, error) {

	b, err := p.emissions(o)
	if err != nil {
		return nil, err
	}
	α, lp := p.alpha(o, b)
	if degenerate(lp) {
		return nil, degenerateError(o, lp)
	}
	return &Tables{Alpha: α, LogProb: lp, Version: p.version, params: p}, nil
}

// Backward computes the beta table of an observation.
func (p *Params) Backward(o *model.Observation) (*Tables, error) {

	b, err := p.emissions(o)
	if err != nil {
		return nil, err
	}
	β := p.beta(o, b)
	lp := floatx.LogZero
	for i := 0; i < p.NumStates(); i++ {
		lp = floatx.LogAdd(lp, p.logInit[i]+b[i][0]+β[i][0])
	}
	if degenerate(lp) {
		return nil, degenerateError(o, lp)
	}
	return &Tables{Beta: β, LogProb: lp, Version: p.version, params: p}, nil
}

// ForwardBackward computes alpha, beta and the state posteriors
//
//	γ(i,t) =  α(i,t)β(i,t) / P(O/Φ)
func (p *Params) ForwardBackward(o *model.Observation) (*Tables, error) {

	b, err := p.emissions(o)
	if err != nil {
		return nil, err
	}
	α, lp := p.alpha(o, b)
	if degenerate(lp) {
		return nil, degenerateError(o, lp)
	}
	β := p.beta(o, b)

	N, T := p.NumStates(), o.Len()
	γ := floatx.MakeFloat2D(N, T)
	for i := 0; i < N; i++ {
		for t := 0; t < T; t++ {
			γ[i][t] = α[i][t] + β[i][t] - lp
		}
	}
	if glog.V(4) {
		glog.Infof("fb [%s] T: %d, logProb: %f", o.ID, T, lp)
	}
	return &Tables{Alpha: α, Beta: β, Gamma: γ, LogProb: lp, Version: p.version, params: p}, nil
}

// LogProb returns the log likelihood of an observation.
func (p *Params) LogProb(o *model.Observation) (float64, error) {
	tb, err := p.Forward(o)
	if err != nil {
		return floatx.LogZero, err
	}
	return tb.LogProb, nil
}

// StartPosteriors returns the log posterior probability of each motif start
// position, computed from the M1 state posteriors. Disallowed starts are -Inf.
func (p *Params) StartPosteriors(tb *Tables) []float64 {

	m1 := p.top.Motif(0)
	T := len(tb.Gamma[m1])
	n := p.top.NumStarts(T)
	post := make([]float64, n)
	copy(post, tb.Gamma[m1][:n])
	return post
}

// xi returns the log posterior of the transition i->j between t and t+1.
//
//	ζ(i,j,t) = α(i,t) a(i,j) b(j,o(t+1)) β(j,t+1) / P(O/Φ)
func (tb *Tables) xi(i, j, t int, b [][]float64) float64 {
	p := tb.params
	return tb.Alpha[i][t] + p.logTrans.At(i, j) + b[j][t+1] + tb.Beta[j][t+1] - tb.LogProb
}
