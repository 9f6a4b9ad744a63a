// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
)

// BWOptions controls the Baum-Welch initializer.
type BWOptions struct {
	// Stop when the objective improves less than Tolerance between passes.
	Tolerance float64
	// Maximum number of EM passes.
	MaxIter     int
	Pseudocount float64
	Workers     int
}

// BWOptionsFromConfig returns the Baum-Welch options of a training config.
func BWOptionsFromConfig(cfg sshmm.Train) BWOptions {
	return BWOptions{
		Tolerance:   cfg.BWTolerance,
		MaxIter:     cfg.BWMaxIterations,
		Pseudocount: cfg.Pseudocount,
		Workers:     cfg.NumWorkers(),
	}
}

// BaumWelch runs EM passes over the whole dataset starting from p. The
// input params and the dataset are not modified. Returns the reestimated
// params and the objective of each pass.
//
// The objective is the total log likelihood plus the log prior implied by
// the pseudocounts (p.LogPrior). EM with pseudocounts maximizes this
// quantity, so the returned sequence is non-decreasing. Element n is the
// objective of the params used in pass n; the last element belongs to the
// returned params.
func BaumWelch(ctx context.Context, p *hmm.Params, ds *model.Dataset, opt BWOptions) (*hmm.Params, []float64, error) {

	if opt.MaxIter < 1 {
		return nil, nil, fmt.Errorf("%w: baum-welch needs at least one pass", sshmm.ErrConfiguration)
	}
	if opt.Pseudocount <= 0 {
		return nil, nil, fmt.Errorf("%w: pseudocount must be positive", sshmm.ErrConfiguration)
	}

	eng := newEngine(opt.Workers, 0)
	idx := allIndices(ds.Len())
	acc := hmm.NewAccumulator(p.Topology(), p.NumSymbols())
	cur := p.Clone()
	var objective []float64

	for iter := 0; ; iter++ {
		acc.Clear()
		res := eng.forwardBackward(cur, ds, idx)
		used, lp, err := accumulate(acc, ds, idx, res)
		if err != nil {
			return nil, objective, err
		}
		obj := lp + cur.LogPrior(opt.Pseudocount)
		objective = append(objective, obj)
		glog.V(2).Infof("baum-welch pass %d: log prob %f, objective %f, %d observations", iter, lp, obj, used)

		if n := len(objective); n > 1 {
			if objective[n-1]-objective[n-2] < opt.Tolerance {
				glog.Infof("baum-welch converged after %d passes, objective %f", iter, obj)
				break
			}
		}
		if iter == opt.MaxIter {
			glog.Infof("baum-welch stopped after %d passes, objective %f", iter, obj)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, objective, err
		}

		next := cur.Clone()
		if err := acc.Commit(next, opt.Pseudocount); err != nil {
			return nil, objective, err
		}
		next.SetIteration(iter + 1)
		cur = next
	}
	return cur, objective, nil
}
