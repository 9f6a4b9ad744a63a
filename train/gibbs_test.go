// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, cfg sshmm.Train, ds *model.Dataset, options ...GibbsOption) (*Result, error) {

	g, err := NewGibbs(cfg, ds, initParams(t, ds, cfg.MotifLength), options...)
	require.NoError(t, err)
	require.Equal(t, Initializing, g.State())
	res, err := g.Run(context.Background())
	require.NotNil(t, res)
	assert.Equal(t, res.State, g.State())
	return res, err
}

func TestGibbsHighThreshold(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 20, 12, 4)
	cfg := testTrain(4)
	cfg.Threshold = 1000
	rec := &recorder{}

	res, err := run(t, cfg, ds, WithReporter(rec))
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Equal(t, cfg.TerminationInterval, res.Iterations)
	require.Len(t, res.Checkpoints, 1)
	assert.Equal(t, res.Checkpoints, rec.checkpoints)
	assert.True(t, res.Checkpoints[0].Converged)
	assert.NotEmpty(t, res.BaumWelch)
	assert.Equal(t, cfg.TerminationInterval+1, res.Trajectory.Len())
	assert.NoError(t, res.Params.CheckRows(hmm.RowTolerance))

	// The delta is measured from the params the sampler started with.
	lp := res.Trajectory.LogProbs()
	assert.Equal(t, lp[len(lp)-1]-lp[0], res.Checkpoints[0].Delta)
}

func TestGibbsNoFalseConvergence(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 20, 12, 4)
	cfg := testTrain(4)
	cfg.Threshold = 0
	cfg.MaxIterations = 20

	res, err := run(t, cfg, ds)
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence)
	assert.Equal(t, MaxIterations, res.State)
	assert.Equal(t, 20, res.Iterations)
	assert.Len(t, res.Checkpoints, 4)
	assert.Equal(t, 21, res.Trajectory.Len())
	require.NotNil(t, res.Params)
	assert.Same(t, res.Best, res.Params)

	best := res.Trajectory.LogProbs()[0]
	for _, lp := range res.Trajectory.LogProbs() {
		if lp > best {
			best = lp
		}
	}
	assert.Equal(t, best, res.BestLogProb)
}

func TestGibbsDeterminism(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 25, 14, 5)
	cfg := testTrain(4)
	cfg.Threshold = 0
	cfg.MaxIterations = 15
	cfg.BlockSize = 3
	cfg.Flexibility = 2

	cfg.Workers = 1
	r1, err := run(t, cfg, ds)
	require.ErrorIs(t, err, sshmm.ErrNonConvergence)

	cfg.Workers = 4
	r2, err := run(t, cfg, ds)
	require.ErrorIs(t, err, sshmm.ErrNonConvergence)

	cfg.CacheSize = 0
	r3, err := run(t, cfg, ds)
	require.ErrorIs(t, err, sshmm.ErrNonConvergence)

	assert.Equal(t, r1.Trajectory.Points(), r2.Trajectory.Points())
	assert.Equal(t, r1.Trajectory.Points(), r3.Trajectory.Points())
	assert.True(t, r1.Params.Equal(r2.Params, 0))
	assert.True(t, r1.Params.Equal(r3.Params, 0))

	cfg.Seed = 1234
	r4, err := run(t, cfg, ds)
	require.ErrorIs(t, err, sshmm.ErrNonConvergence)
	assert.NotEqual(t, r1.Trajectory.LogProbs(), r4.Trajectory.LogProbs())
}

func TestGibbsFullBlock(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 10, 12, 6)
	cfg := testTrain(4)
	cfg.Flexibility = 0
	cfg.BlockSize = ds.Len()
	cfg.BaumWelch = false
	cfg.Threshold = 0
	cfg.MaxIterations = 10

	g, err := NewGibbs(cfg, ds, initParams(t, ds, 4))
	require.NoError(t, err)
	assert.Equal(t, ds.Len()-1, g.BlockSize())
	res, err := g.Run(context.Background())
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence)
	assert.Nil(t, res.BaumWelch)
	assert.Equal(t, 11, res.Trajectory.Len())
	assert.NoError(t, res.Params.CheckRows(hmm.RowTolerance))

	// Flexibility larger than the number of candidates is the full posterior.
	cfg.Flexibility = 100
	cfg.BlockSize = 1000
	big, err := run(t, cfg, ds)
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence)
	cfg.Flexibility = 0
	full, err := run(t, cfg, ds)
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence)
	assert.Equal(t, full.Trajectory.Points(), big.Trajectory.Points())

	// A single observation has nothing to hold out.
	one, err := model.NewDataset(ds.Alphabet, ds.Obs[:1])
	require.NoError(t, err)
	g, err = NewGibbs(cfg, one, initParams(t, one, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, g.BlockSize())
	res, err = g.Run(context.Background())
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence)
	assert.Equal(t, 10, res.Iterations)
}

func TestGibbsValidation(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 5, 8, 7)
	p := initParams(t, ds, 4)

	_, err := NewGibbs(testTrain(4), &model.Dataset{Alphabet: ds.Alphabet}, p)
	assert.ErrorIs(t, err, sshmm.ErrInputFormat)

	_, err = NewGibbs(testTrain(9), ds, initParams(t, ds, 9))
	assert.ErrorIs(t, err, sshmm.ErrConfiguration, "motif longer than shortest observation")

	_, err = NewGibbs(testTrain(3), ds, p)
	assert.ErrorIs(t, err, sshmm.ErrConfiguration, "params motif length mismatch")

	cfg := testTrain(4)
	cfg.TerminationInterval = 0
	_, err = NewGibbs(cfg, ds, p)
	assert.ErrorIs(t, err, sshmm.ErrConfiguration)

	_, err = model.Load(strings.NewReader(">a\nACGU\n>b\nACGU\n"), strings.NewReader(">a\nSSSS\n"),
		ds.Alphabet, model.LoadOptions{})
	assert.ErrorIs(t, err, sshmm.ErrInputFormat, "record count mismatch")
}

func TestGibbsDegenerate(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 8, 12, 8)
	bad := *ds.Obs[0]
	bad.ID = "bad"
	bad.CoreStart, bad.CoreEnd = 0, 0

	obs := append([]*model.Observation{&bad}, ds.Obs...)
	mixed, err := model.NewDataset(ds.Alphabet, obs)
	require.NoError(t, err)
	cfg := testTrain(4)
	cfg.Threshold = 0
	cfg.MaxIterations = 10
	cfg.BlockSize = 2
	res, err := run(t, cfg, mixed)
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence, "a single degenerate observation is excluded")
	assert.Equal(t, 10, res.Iterations)

	only, err := model.NewDataset(ds.Alphabet, []*model.Observation{&bad})
	require.NoError(t, err)
	cfg.BaumWelch = false
	res, err = run(t, cfg, only)
	assert.ErrorIs(t, err, sshmm.ErrDegenerateLikelihood)
	assert.Equal(t, Failed, res.State)
}

func TestGibbsStopAndSnapshots(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 10, 12, 9)
	cfg := testTrain(4)
	cfg.Threshold = 0
	cfg.MaxIterations = 10
	cfg.WriteModelState = true
	dir := t.TempDir()

	res, err := run(t, cfg, ds, SnapshotDir(dir), RunName("snap"))
	assert.ErrorIs(t, err, sshmm.ErrNonConvergence)
	for _, c := range res.Checkpoints {
		assert.Equal(t, "snap", c.Name)
	}
	for _, iter := range []int{5, 10} {
		fn := filepath.Join(dir, "model-"+strconv.Itoa(iter)+".json")
		_, err := os.Stat(fn)
		require.NoError(t, err)
		q, err := hmm.ReadFile(fn)
		require.NoError(t, err)
		assert.Equal(t, iter, q.Iteration())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg.BaumWelch = false
	g, err := NewGibbs(cfg, ds, initParams(t, ds, 4))
	require.NoError(t, err)
	res, err = g.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Stopped, res.State)
	assert.Equal(t, 0, res.Iterations)
	require.NotNil(t, res.Params)

	_, err = g.Run(context.Background())
	assert.Error(t, err, "a run cannot be restarted")
}

// Planted motif scenario: 100 observations of length 20 with a motif of length
// 6 at a random offset marked by uppercase letters.
func TestGibbsPlantedMotif(t *testing.T) {

	if testing.Short() {
		t.Skip("skipping planted motif scenario in short mode")
	}
	ds, ps := planted(t, motif6Seq, motif6Struct, 100, 20, 10)
	cfg := sshmm.DefaultTrain()
	cfg.MotifLength = 6
	cfg.BaumWelch = true
	cfg.Flexibility = 10
	cfg.BlockSize = 1
	cfg.Threshold = 5
	cfg.TerminationInterval = 10
	cfg.MaxIterations = 500

	res, err := run(t, cfg, ds)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	t.Logf("converged after %d iterations: %s", res.Iterations, res.Params)

	var hits int
	for i, o := range ds.Obs {
		_, start, _, err := res.Params.Align(o)
		require.NoError(t, err)
		if start == ps.Starts[i] {
			hits++
		}
	}
	t.Logf("realigned %d of %d observations", hits, ds.Len())
	assert.True(t, hits >= 90, "only %d observations realigned onto the planted motif", hits)
}
