// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"github.com/phychaos/ssHMM/floatx"
	"github.com/phychaos/ssHMM/model"
)

// The viterbi algorithm computes the probable sequence of states for an HMM.
// These are the equations in log scale:
//
// delta(j, t) = max_{z_1,... z_{t-1}} log P(z_1,..,z_{t-1}, z_t=j | x_1,...,x_t )
//
// Recursion in log scale   delta(j, t) [nstates x T]
// delta(j, 0) = π(j) + b(j, 0)    for j in [0, N-1]
// delta(j, t) = max_{k∈pred(j)} [ delta(k, t-1) + a(k, j) + b(j, t) ]   t in [1, T-1]
// index(j, t) = argmax_{k∈pred(j)} [ delta(k, t-1) + a(k,j) + b(j, t) ]
//
// Decoding z* is the output sequence [Tx1]
// z*(T-1) = argmax_{j∈final} delta(j, T-1)
// z*(t) = index(z*(t+1), t+1)  t in [0, T-2]
// logProb = max_{j∈final} delta(j, T-1)
//
// Ties are broken by the lower state index.
func (p *Params) Viterbi(o *model.Observation) (bt []int, logViterbiProb float64, e error) {

	b, e := p.emissions(o)
	if e != nil {
		return
	}
	N, T := p.NumStates(), o.Len()

	delta := floatx.MakeFloat2D(N, T)
	index := make([][]int, N)
	for i := 0; i < N; i++ {
		index[i] = make([]int, T)
		delta[i][0] = p.logInit[i] + b[i][0]
	}

	for t := 1; t < T; t++ {
		for j := 0; j < N; j++ {
			max := floatx.LogZero
			argmax := -1
			for _, k := range p.top.Pred(j) {
				v := delta[k][t-1] + p.logTrans.At(k, j)
				if argmax < 0 || v > max {
					max = v
					argmax = k
				}
			}
			delta[j][t] = max + b[j][t]
			index[j][t] = argmax
		}
	}

	max := floatx.LogZero
	argmax := -1
	for i := 0; i < N; i++ {
		if !p.top.Final(i) {
			continue
		}
		if argmax < 0 || delta[i][T-1] > max {
			max = delta[i][T-1]
			argmax = i
		}
	}
	if degenerate(max) {
		e = degenerateError(o, max)
		return
	}

	bt = make([]int, T)
	bt[T-1] = argmax
	logViterbiProb = max
	for t := T - 2; t >= 0; t-- {
		bt[t] = index[bt[t+1]][t+1]
	}
	return
}

// Align implements the model.Aligner interface.
func (p *Params) Align(o *model.Observation) (path []int, start int, logProb float64, err error) {

	path, logProb, err = p.Viterbi(o)
	if err != nil {
		return nil, -1, logProb, err
	}
	return path, p.top.StartFromPath(path), logProb, nil
}

var _ model.Modeler = (*Params)(nil)

// Alignment returns the Viterbi alignment tree of an observation.
func (p *Params) Alignment(o *model.Observation) (*model.ANode, error) {

	path, _, err := p.Viterbi(o)
	if err != nil {
		return nil, err
	}
	return model.MotifAlignment(o.ID, path, p.top.StateName, p.top.Region)
}
