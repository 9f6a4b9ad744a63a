// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package train estimates motif models from a dataset.

BaumWelch runs EM over the whole dataset and is used as a warm start. Gibbs
refines the parameters by block sampling: every iteration a block of
observations is held out, the parameters are reestimated from the expected
counts of the remaining observations, one motif start is sampled for each
held-out observation from the (truncated) posterior, and the sampled paths
are added as hard counts before committing again.

The aggregate log likelihood is checked every termination interval. The run
stops when the last three checkpoint deltas are all below the threshold
(see Monitor).
*/
package train

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
)

// State of a training run.
type State int

// Training states.
const (
	Initializing State = iota
	Sampling
	Converged
	Failed
	Stopped
	MaxIterations
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case Sampling:
		return "SAMPLING"
	case Converged:
		return "CONVERGED"
	case Failed:
		return "FAILED"
	case Stopped:
		return "STOPPED"
	case MaxIterations:
		return "MAX_ITERATIONS"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result of a training run.
type Result struct {
	// Params are the final params when converged, the best params otherwise.
	Params *hmm.Params
	// Best are the params with the highest log likelihood seen.
	Best        *hmm.Params
	BestLogProb float64
	State       State
	Iterations  int
	// Trajectory starts at iteration 0 with the initial params.
	Trajectory  *Trajectory
	Checkpoints []Checkpoint
	// Objective of each Baum-Welch pass, nil when disabled.
	BaumWelch []float64
	Elapsed   time.Duration
}

// Gibbs is a block Gibbs sampler for motif models. A Gibbs value runs once.
type Gibbs struct {
	cfg         sshmm.Train
	ds          *model.Dataset
	init        *hmm.Params
	r           *rand.Rand
	eng         *engine
	reporter    Reporter
	snapshotDir string
	name        string
	blockSize   int
	state       State
}

// GibbsOption is used to pass options to NewGibbs().
type GibbsOption func(*Gibbs)

// WithReporter sets the receiver of checkpoint records. Default is
// LogReporter.
func WithReporter(r Reporter) GibbsOption {
	return func(g *Gibbs) { g.reporter = r }
}

// SnapshotDir sets the dir where params are written at every checkpoint when
// write_model_state is set. Default is the working dir.
func SnapshotDir(dir string) GibbsOption {
	return func(g *Gibbs) { g.snapshotDir = dir }
}

// RunName sets the name used in logs and checkpoint records.
func RunName(name string) GibbsOption {
	return func(g *Gibbs) { g.name = name }
}

// NewGibbs creates a sampler. The configuration, the dataset and the initial
// params are checked here so that errors are reported before any iteration.
func NewGibbs(cfg sshmm.Train, ds *model.Dataset, p *hmm.Params, options ...GibbsOption) (*Gibbs, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("%w: empty dataset", sshmm.ErrInputFormat)
	}
	if err := ds.CheckMotifLength(cfg.MotifLength); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: missing initial params", sshmm.ErrConfiguration)
	}
	if k := p.Topology().MotifLength(); k != cfg.MotifLength {
		return nil, fmt.Errorf("%w: params motif length %d does not match motif_length %d",
			sshmm.ErrConfiguration, k, cfg.MotifLength)
	}
	if ds.Alphabet != nil && ds.Alphabet.Size() != p.NumSymbols() {
		return nil, fmt.Errorf("%w: params have %d symbols, alphabet has %d",
			sshmm.ErrConfiguration, p.NumSymbols(), ds.Alphabet.Size())
	}

	g := &Gibbs{
		cfg:      cfg,
		ds:       ds,
		init:     p,
		r:        rand.New(rand.NewSource(cfg.Seed)),
		eng:      newEngine(cfg.NumWorkers(), cfg.CacheSize),
		reporter: LogReporter{},
		name:     p.Name(),
	}
	for _, option := range options {
		option(g)
	}
	if g.snapshotDir == "" {
		g.snapshotDir = "."
	}

	g.blockSize = cfg.BlockSize
	if n := ds.Len(); g.blockSize > n-1 {
		g.blockSize = n - 1
		glog.Warningf("[%s] block size %d clamped to %d for %d observations", g.name, cfg.BlockSize, g.blockSize, n)
	}
	return g, nil
}

// State returns the current state of the run.
func (g *Gibbs) State() State { return g.state }

// BlockSize returns the number of observations held out per iteration.
func (g *Gibbs) BlockSize() int { return g.blockSize }

// Run trains until convergence, the iteration cap, or cancellation of ctx.
// Cancellation and the configured timeout are checked between iterations.
// When the iteration cap is reached the best params are returned with an
// error wrapping sshmm.ErrNonConvergence.
func (g *Gibbs) Run(ctx context.Context) (*Result, error) {

	if g.state != Initializing {
		return nil, fmt.Errorf("training run [%s] already started", g.name)
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	res := &Result{Trajectory: &Trajectory{}, BestLogProb: math.Inf(-1)}
	done := func(state State, err error) (*Result, error) {
		g.state = state
		res.State = state
		res.Elapsed = time.Since(start)
		if res.Params == nil {
			res.Params = res.Best
		}
		return res, err
	}

	p := g.init.Clone()
	if g.cfg.BaumWelch {
		q, obj, err := BaumWelch(ctx, p, g.ds, BWOptionsFromConfig(g.cfg))
		res.BaumWelch = obj
		if err != nil {
			return done(Failed, err)
		}
		p = q
	}

	all := allIndices(g.ds.Len())
	ll, err := g.eng.logLikelihood(p, g.ds, all)
	if err != nil {
		return done(Failed, err)
	}
	p.SetIteration(0)
	if err := res.Trajectory.Append(0, ll); err != nil {
		return done(Failed, err)
	}
	res.Best, res.BestLogProb = p, ll
	lastCheckpoint := ll
	mon := NewMonitor(g.cfg.Threshold)
	acc := hmm.NewAccumulator(p.Topology(), p.NumSymbols())
	g.state = Sampling
	glog.Infof("[%s] start sampling: %d observations, block size %d, log prob %f",
		g.name, g.ds.Len(), g.blockSize, ll)

	for iter := 1; iter <= g.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			glog.Warningf("[%s] stopped before iteration %d: %v", g.name, iter, err)
			return done(Stopped, err)
		}

		next, err := g.iterate(p, acc)
		if err != nil {
			return done(Failed, err)
		}
		next.SetIteration(iter)
		ll, err := g.eng.logLikelihood(next, g.ds, all)
		if err != nil {
			return done(Failed, err)
		}
		if err := res.Trajectory.Append(iter, ll); err != nil {
			return done(Failed, err)
		}
		p = next
		res.Iterations = iter
		if ll > res.BestLogProb {
			res.Best, res.BestLogProb = p, ll
		}
		glog.V(2).Infof("[%s] iteration %d: log prob %f", g.name, iter, ll)

		if iter%g.cfg.TerminationInterval != 0 {
			continue
		}
		delta := ll - lastCheckpoint
		lastCheckpoint = ll
		converged := mon.Add(delta)
		c := Checkpoint{
			Name:      g.name,
			Iteration: iter,
			LogProb:   ll,
			Delta:     delta,
			Elapsed:   time.Since(start),
			Converged: converged,
		}
		res.Checkpoints = append(res.Checkpoints, c)
		if err := g.reporter.Report(c); err != nil {
			glog.Warningf("[%s] unable to report checkpoint %d: %v", g.name, iter, err)
		}
		if g.cfg.WriteModelState {
			fn := filepath.Join(g.snapshotDir, fmt.Sprintf("model-%d.json", iter))
			if err := p.WriteFile(fn); err != nil {
				return done(Failed, err)
			}
			glog.V(1).Infof("[%s] wrote snapshot %s", g.name, fn)
		}
		if converged {
			glog.Infof("[%s] converged at iteration %d, log prob %f, window %v", g.name, iter, ll, mon.Window())
			res.Params = p
			return done(Converged, nil)
		}
	}

	glog.Warningf("[%s] no convergence after %d iterations, best log prob %f", g.name, g.cfg.MaxIterations, res.BestLogProb)
	return done(MaxIterations, fmt.Errorf("%w: %d iterations", sshmm.ErrNonConvergence, g.cfg.MaxIterations))
}

// iterate runs one Gibbs iteration starting from p and returns new params.
// p is not modified.
func (g *Gibbs) iterate(p *hmm.Params, acc *hmm.Accumulator) (*hmm.Params, error) {

	n := g.ds.Len()
	held := model.RandSubset(n, g.blockSize, g.r)
	out := make([]bool, n)
	for _, i := range held {
		out[i] = true
	}
	rest := make([]int, 0, n-len(held))
	for i := 0; i < n; i++ {
		if !out[i] {
			rest = append(rest, i)
		}
	}

	// Predictive reestimation from the training subset.
	acc.Clear()
	res := g.eng.forwardBackward(p, g.ds, rest)
	if _, _, err := accumulate(acc, g.ds, rest, res); err != nil {
		return nil, err
	}
	cand := p.Clone()
	if err := acc.Commit(cand, g.cfg.Pseudocount); err != nil {
		return nil, err
	}

	// Resample the motif start of each held-out observation.
	top := p.Topology()
	heldRes := g.eng.forwardBackward(cand, g.ds, held)
	for k, i := range held {
		o := g.ds.Obs[i]
		if heldRes[k].err != nil {
			glog.Warningf("not resampling observation [%s]: %v", o.ID, heldRes[k].err)
			continue
		}
		post := cand.StartPosteriors(heldRes[k].tb)
		sel := model.TopIndices(post, g.cfg.Flexibility)
		if len(sel) == 0 {
			glog.Warningf("observation [%s] has no candidate motif start", o.ID)
			continue
		}
		s, err := model.RandIntFromLogDist(model.Renormalize(post, sel), g.r)
		if err != nil {
			return nil, fmt.Errorf("sampling motif start of [%s]: %w", o.ID, err)
		}
		path, err := top.PathFromStart(o.Len(), s)
		if err != nil {
			return nil, err
		}
		if err := acc.AddPath(o, path, 1); err != nil {
			return nil, err
		}
		if glog.V(3) {
			glog.Infof("observation [%s]: sampled start %d from %d candidates", o.ID, s, len(sel))
		}
	}

	next := cand.Clone()
	if err := acc.Commit(next, g.cfg.Pseudocount); err != nil {
		return nil, err
	}
	return next, nil
}
