// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
	"github.com/phychaos/ssHMM/train"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobs(t *testing.T) {

	cfg := sshmm.DefaultConfig()
	cfg.Batch = []sshmm.Dataset{
		{Name: "pum2", SequenceFile: "pum2.fa", StructureFile: "pum2.st.fa"},
		{Name: "qki", SequenceFile: "qki.fa", StructureFile: "qki.st.fa"},
	}
	jobs, err := Jobs(cfg)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "qki", jobs[1].Name)
	assert.Equal(t, "qki.fa", jobs[1].Config.SequenceFile)
	assert.Nil(t, jobs[1].Config.Batch)
	assert.Equal(t, cfg.Train, jobs[0].Config.Train)
	assert.Len(t, cfg.Batch, 2)

	// Jobs sharing an output dir are rejected.
	cfg.Batch = append(cfg.Batch, sshmm.Dataset{Name: "qki", SequenceFile: "qki2.fa", StructureFile: "qki2.st.fa"})
	_, err = Jobs(cfg)
	assert.ErrorIs(t, err, sshmm.ErrConfiguration)

	cfg.Batch = []sshmm.Dataset{{SequenceFile: "a.fa", StructureFile: "a.st.fa"}}
	_, err = Jobs(cfg)
	assert.ErrorIs(t, err, sshmm.ErrConfiguration)
}

func TestRun(t *testing.T) {

	var jobs []Job
	for i := 0; i < 20; i++ {
		jobs = append(jobs, Job{Name: fmt.Sprintf("job%d", i)})
	}
	var running, maxRunning int32
	errOdd := errors.New("odd")
	fn := func(ctx context.Context, job Job) (*train.Result, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		var i int
		fmt.Sscanf(job.Name, "job%d", &i)
		if i%2 == 1 {
			return nil, errOdd
		}
		return &train.Result{Iterations: i}, nil
	}

	var buf bytes.Buffer
	out := Run(context.Background(), jobs, 3, fn, ProgressWriter(&buf))
	require.Len(t, out, len(jobs))
	for i, o := range out {
		assert.Equal(t, jobs[i].Name, o.Job.Name)
		if i%2 == 1 {
			assert.ErrorIs(t, o.Err, errOdd)
			continue
		}
		require.NoError(t, o.Err)
		assert.Equal(t, i, o.Result.Iterations)
	}
	assert.True(t, maxRunning <= 3, "max concurrent jobs %d", maxRunning)
}

func TestRunCancelled(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	fn := func(ctx context.Context, job Job) (*train.Result, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}
	out := Run(ctx, []Job{{Name: "a"}, {Name: "b"}}, 2, fn, ProgressWriter(nil))
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.Equal(t, int32(0), calls)
}

func writeDataset(t *testing.T, dir, name string, seed int64) sshmm.Dataset {

	a, err := model.NewAlphabet(sshmm.Contexts, false)
	require.NoError(t, err)
	ps, err := hmm.PlantMotif(a, "GACU", "SHHS", 20, 12, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)

	d := sshmm.Dataset{
		Name:          name,
		SequenceFile:  filepath.Join(dir, name+".fa"),
		StructureFile: filepath.Join(dir, name+".st.fa"),
	}
	sf, err := os.Create(d.SequenceFile)
	require.NoError(t, err)
	defer sf.Close()
	tf, err := os.Create(d.StructureFile)
	require.NoError(t, err)
	defer tf.Close()
	require.NoError(t, ps.WriteFasta(sf, tf))
	return d
}

func TestTrain(t *testing.T) {

	dir := t.TempDir()
	cfg := sshmm.DefaultConfig()
	cfg.OutDir = filepath.Join(dir, "out")
	cfg.Train.MotifLength = 4
	cfg.Train.TerminationInterval = 5
	cfg.Train.MaxIterations = 50
	cfg.Train.Threshold = 1000
	cfg.Train.WriteModelState = true
	cfg.Batch = []sshmm.Dataset{
		writeDataset(t, dir, "a", 1),
		writeDataset(t, dir, "b", 2),
	}

	jobs, err := Jobs(cfg)
	require.NoError(t, err)
	out := Run(context.Background(), jobs, 2, Train, ProgressWriter(nil))
	for _, o := range out {
		require.NoError(t, o.Err)
		assert.Equal(t, train.Converged, o.Result.State)
		for _, fn := range []string{ModelFile, TrajectoryFile, ProgressFile, GraphFile, "model-5.json"} {
			_, err := os.Stat(filepath.Join(Dir(o.Job), fn))
			assert.NoError(t, err, fn)
		}
		p, err := hmm.ReadFile(filepath.Join(Dir(o.Job), ModelFile))
		require.NoError(t, err)
		assert.True(t, p.Equal(o.Result.Params, 0))
	}

	// Continue from a trained model.
	job := jobs[0]
	job.Config.ModelIn = filepath.Join(Dir(jobs[0]), ModelFile)
	job.Name = "again"
	res, err := Train(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, train.Converged, res.State)

	// Motif longer than the records.
	job.Config.ModelIn = ""
	job.Config.Train.MotifLength = 13
	_, err = Train(context.Background(), job)
	assert.ErrorIs(t, err, sshmm.ErrConfiguration)

	job.Config.Train.MotifLength = 4
	job.Config.StructureFile = job.Config.SequenceFile
	_, err = Train(context.Background(), job)
	assert.ErrorIs(t, err, sshmm.ErrInputFormat)
}
