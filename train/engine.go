// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/cache"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
)

// engine runs forward-backward over many observations on a fixed number of
// goroutines. Tables are cached by observation index and params version.
type engine struct {
	workers int
	cache   *cache.Cache
}

type fbResult struct {
	tb  *hmm.Tables
	err error
}

func newEngine(workers, cacheSize int) *engine {
	if workers < 1 {
		workers = 1
	}
	return &engine{workers: workers, cache: cache.NewCache(cacheSize)}
}

// forwardBackward computes the tables of ds.Obs[i] for every i in idx. The
// result slot k belongs to idx[k]. Returns after all workers are done.
func (e *engine) forwardBackward(p *hmm.Params, ds *model.Dataset, idx []int) []fbResult {

	res := make([]fbResult, len(idx))
	workers := e.workers
	if workers > len(idx) {
		workers = len(idx)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := w; k < len(idx); k += workers {
				res[k] = e.tables(p, ds, idx[k])
			}
		}(w)
	}
	wg.Wait()
	return res
}

func (e *engine) tables(p *hmm.Params, ds *model.Dataset, i int) fbResult {

	key := uint64(i)
	if v, ok := e.cache.Get(key, p.Version()); ok {
		return fbResult{tb: v.(*hmm.Tables)}
	}
	tb, err := p.ForwardBackward(ds.Obs[i])
	if err != nil {
		return fbResult{err: err}
	}
	e.cache.Set(key, p.Version(), tb)
	return fbResult{tb: tb}
}

// accumulate adds the soft counts of the results to acc in index order.
// Degenerate observations are skipped. Returns the number of observations
// used and their total log likelihood. Fails if every observation is
// degenerate.
func accumulate(acc *hmm.Accumulator, ds *model.Dataset, idx []int, res []fbResult) (used int, logProb float64, err error) {

	for k, i := range idx {
		o := ds.Obs[i]
		r := res[k]
		if r.err != nil {
			if errors.Is(r.err, sshmm.ErrDegenerateLikelihood) {
				glog.Warningf("excluding observation [%s] from accumulation: %v", o.ID, r.err)
				continue
			}
			return used, logProb, r.err
		}
		if acc != nil {
			if err := acc.AddPosterior(o, r.tb, 1); err != nil {
				return used, logProb, err
			}
		}
		used++
		logProb += r.tb.LogProb
	}
	if used == 0 && len(idx) > 0 {
		return 0, logProb, fmt.Errorf("%w: all %d observations are degenerate", sshmm.ErrDegenerateLikelihood, len(idx))
	}
	return used, logProb, nil
}

// logLikelihood returns the total log likelihood of the observations in idx.
func (e *engine) logLikelihood(p *hmm.Params, ds *model.Dataset, idx []int) (float64, error) {
	res := e.forwardBackward(p, ds, idx)
	_, lp, err := accumulate(nil, ds, idx, res)
	return lp, err
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
