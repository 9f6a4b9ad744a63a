// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package hmm implements a hidden Markov model of RNA binding motifs over a
combined sequence/structure alphabet.

The model has a fixed left to right topology (see Topology). Emission,
transition and initial probabilities are stored in Params. Parameters are
estimated by accumulating soft counts (forward-backward posteriors) or hard
counts (sampled state paths) in an Accumulator and committing them.

	α β γ ζ Φ
*/
package hmm

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/phychaos/ssHMM/floatx"
	"github.com/phychaos/ssHMM/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Defaults for new parameters.
const (
	DefaultPerturbation = 0.05
	DefaultMeanFlank    = 20.0
)

// Every parameter set gets a process wide unique version. Commits assign a
// new version.
var lastVersion uint64

func nextVersion() uint64 { return atomic.AddUint64(&lastVersion, 1) }

// Params holds the probabilities of a motif model. Probabilities are kept
// in linear and log scale; the linear values are the ones persisted.
//
//	a(i,j) = P[q(t+1) = j | q(t) = i]
//	b(j,o) = P[o(t) = o | q(t) = j]
//	π(i)   = P[q(0) = i]
type Params struct {
	name       string
	top        *Topology
	numSymbols int
	alphabet   *model.Alphabet
	iteration  int
	version    uint64

	trans, logTrans *mat.Dense // [nstates x nstates]
	emit, logEmit   *mat.Dense // [nstates x nsymbols]
	init, logInit   []float64  // [nstates]

	seed         int64
	perturbation float64
	meanFlank    float64
}

// Option type is used to pass options to NewParams().
type Option func(*Params)

// NewParams creates a parameter set for the topology. Emissions are uniform
// with a random perturbation. The 5' flank self loop and the initial
// distribution correspond to a geometric flank length with the configured
// mean.
func NewParams(top *Topology, numSymbols int, options ...Option) *Params {

	p := &Params{
		name:         "sshmm",
		top:          top,
		numSymbols:   numSymbols,
		seed:         model.DefaultSeed,
		perturbation: DefaultPerturbation,
		meanFlank:    DefaultMeanFlank,
	}
	for _, option := range options {
		option(p)
	}
	p.alloc()

	N := top.NumStates()
	r := rand.New(rand.NewSource(p.seed))
	row := make([]float64, numSymbols)
	for i := 0; i < N; i++ {
		for k := range row {
			row[k] = 1 + p.perturbation*(2*r.Float64()-1)
		}
		floats.Scale(1/floats.Sum(row), row)
		p.emit.SetRow(i, row)
	}

	stay := p.meanFlank / (p.meanFlank + 1)
	for i := 0; i < N; i++ {
		succ := top.Succ(i)
		switch {
		case len(succ) == 1:
			p.trans.Set(i, succ[0], 1)
		case i == top.Background5():
			p.trans.Set(i, i, stay)
			p.trans.Set(i, top.Motif(0), 1-stay)
		default:
			for _, j := range succ {
				p.trans.Set(i, j, 1/float64(len(succ)))
			}
		}
	}
	p.init[top.Background5()] = stay
	p.init[top.Motif(0)] = 1 - stay

	p.updateLogs()
	glog.V(1).Infof("new params [%s], %d states, %d symbols, version %d", p.name, N, numSymbols, p.version)
	return p
}

func (p *Params) alloc() {
	N := p.top.NumStates()
	p.trans = mat.NewDense(N, N, nil)
	p.logTrans = mat.NewDense(N, N, nil)
	p.emit = mat.NewDense(N, p.numSymbols, nil)
	p.logEmit = mat.NewDense(N, p.numSymbols, nil)
	p.init = make([]float64, N)
	p.logInit = make([]float64, N)
}

// updateLogs recomputes the log tables and assigns a new version.
func (p *Params) updateLogs() {

	N := p.top.NumStates()
	for i := 0; i < N; i++ {
		floatx.Log(p.logTrans.RawRowView(i), p.trans.RawRowView(i))
		floatx.Log(p.logEmit.RawRowView(i), p.emit.RawRowView(i))
	}
	floatx.Log(p.logInit, p.init)
	p.version = nextVersion()
}

// Name is an option to set the model name.
func Name(name string) Option {
	return func(p *Params) { p.name = name }
}

// Seed sets a seed value for the emission perturbation.
// Uses default seed value if omitted.
func Seed(seed int64) Option {
	return func(p *Params) { p.seed = seed }
}

// Perturbation sets the relative amplitude of the random perturbation of
// the initial emissions. Default is 0.05.
func Perturbation(f float64) Option {
	return func(p *Params) { p.perturbation = f }
}

// MeanFlank sets the expected length of the 5' flank used to initialize
// the B5 self loop and the initial distribution. Default is 20.
func MeanFlank(n float64) Option {
	return func(p *Params) { p.meanFlank = n }
}

// WithAlphabet attaches symbol names used for persistence and graph export.
func WithAlphabet(a *model.Alphabet) Option {
	return func(p *Params) { p.alphabet = a }
}

// Name returns the name of the model.
func (p *Params) Name() string { return p.name }

// Topology returns the state network.
func (p *Params) Topology() *Topology { return p.top }

// NumStates returns the number of states.
func (p *Params) NumStates() int { return p.top.NumStates() }

// NumSymbols returns the size of the alphabet.
func (p *Params) NumSymbols() int { return p.numSymbols }

// Alphabet returns the alphabet or nil if not set.
func (p *Params) Alphabet() *model.Alphabet { return p.alphabet }

// Version identifies the current probabilities. Changes on every commit.
func (p *Params) Version() uint64 { return p.version }

// Iteration is the training iteration that produced the parameters.
func (p *Params) Iteration() int { return p.iteration }

// SetIteration sets the training iteration.
func (p *Params) SetIteration(n int) { p.iteration = n }

// LogEmit returns log b(state, sym).
func (p *Params) LogEmit(state, sym int) float64 { return p.logEmit.At(state, sym) }

// LogTrans returns log a(i,j).
func (p *Params) LogTrans(i, j int) float64 { return p.logTrans.At(i, j) }

// LogInit returns log π(i).
func (p *Params) LogInit(i int) float64 { return p.logInit[i] }

// LogFinal returns 0 for states where a path may end, -Inf otherwise.
func (p *Params) LogFinal(i int) float64 {
	if p.top.Final(i) {
		return 0
	}
	return floatx.LogZero
}

// Emissions returns a copy of the emission probabilities of a state.
func (p *Params) Emissions(state int) []float64 {
	return append([]float64(nil), p.emit.RawRowView(state)...)
}

// Transitions returns a copy of the transition probabilities out of a state.
func (p *Params) Transitions(state int) []float64 {
	return append([]float64(nil), p.trans.RawRowView(state)...)
}

// InitProbs returns a copy of the initial state distribution.
func (p *Params) InitProbs() []float64 {
	return append([]float64(nil), p.init...)
}

// Clone returns a deep copy. The copy shares the version of the receiver
// until one of them is modified.
func (p *Params) Clone() *Params {

	q := *p
	q.trans = mat.DenseCopyOf(p.trans)
	q.logTrans = mat.DenseCopyOf(p.logTrans)
	q.emit = mat.DenseCopyOf(p.emit)
	q.logEmit = mat.DenseCopyOf(p.logEmit)
	q.init = append([]float64(nil), p.init...)
	q.logInit = append([]float64(nil), p.logInit...)
	return &q
}

// Equal returns true if both parameter sets have the same topology and
// probabilities within tol.
func (p *Params) Equal(q *Params, tol float64) bool {

	if p.NumStates() != q.NumStates() || p.numSymbols != q.numSymbols ||
		p.top.MotifLength() != q.top.MotifLength() {
		return false
	}
	return mat.EqualApprox(p.trans, q.trans, tol) &&
		mat.EqualApprox(p.emit, q.emit, tol) &&
		floats.EqualApprox(p.init, q.init, tol)
}

// CheckRows returns an error if a row of the transition, emission or
// initial probabilities does not sum to one, or if a disallowed transition
// has non-zero probability.
func (p *Params) CheckRows(tol float64) error {

	N := p.NumStates()
	for i := 0; i < N; i++ {
		row := p.trans.RawRowView(i)
		if s := floats.Sum(row); math.Abs(s-1) > tol {
			return fmt.Errorf("transition row [%s] sums to %f", p.top.StateName(i), s)
		}
		for j, v := range row {
			if v != 0 && !p.top.Arc(i, j) {
				return fmt.Errorf("disallowed transition [%s->%s] has probability %f",
					p.top.StateName(i), p.top.StateName(j), v)
			}
		}
		if s := floats.Sum(p.emit.RawRowView(i)); math.Abs(s-1) > tol {
			return fmt.Errorf("emission row [%s] sums to %f", p.top.StateName(i), s)
		}
		if p.init[i] != 0 && !p.top.Initial(i) {
			return fmt.Errorf("state [%s] is not initial but has probability %f", p.top.StateName(i), p.init[i])
		}
	}
	if s := floats.Sum(p.init); math.Abs(s-1) > tol {
		return fmt.Errorf("initial distribution sums to %f", s)
	}
	return nil
}

// LogPrior returns the log density, up to a constant, of the symmetric
// Dirichlet prior that corresponds to adding pseudocount to every allowed
// count before normalizing:
//
//	pc * (sum_{i->j} log a(i,j) + sum_{j,o} log b(j,o) + sum_{i initial} log π(i))
//
// Rows with a single allowed arc contribute zero.
func (p *Params) LogPrior(pseudocount float64) float64 {

	var sum float64
	N := p.NumStates()
	for i := 0; i < N; i++ {
		for _, j := range p.top.Succ(i) {
			sum += p.logTrans.At(i, j)
		}
		sum += floats.Sum(p.logEmit.RawRowView(i))
		if p.top.Initial(i) {
			sum += p.logInit[i]
		}
	}
	return pseudocount * sum
}

// MotifConsensus returns the most likely symbol of each motif state.
func (p *Params) MotifConsensus() []int {
	k := p.top.MotifLength()
	cons := make([]int, k)
	for i := 0; i < k; i++ {
		cons[i] = floats.MaxIdx(p.emit.RawRowView(p.top.Motif(i)))
	}
	return cons
}

// String returns a short description of the motif.
func (p *Params) String() string {
	cons := p.MotifConsensus()
	if p.alphabet == nil {
		return fmt.Sprintf("%s %v", p.name, cons)
	}
	var nuc, str []byte
	for _, s := range cons {
		n, t := p.alphabet.Letters(s)
		nuc = append(nuc, n)
		str = append(str, t)
	}
	return fmt.Sprintf("%s %s %s", p.name, nuc, str)
}
