// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
	"github.com/phychaos/ssHMM/train"
)

// Output files written in the job dir.
const (
	ModelFile      = "model.json"
	TrajectoryFile = "trajectory.json"
	ProgressFile   = "progress.jsonl"
	GraphFile      = "graph.yaml"
)

// Dir returns the output dir of a job.
func Dir(job Job) string {
	return filepath.Join(job.Config.OutDir, job.Name)
}

// Train is a RunFunc that loads the dataset of the job, trains a model and
// writes the model, the trajectory and the checkpoint records to the job
// dir. Output is written even when the run does not converge.
func Train(ctx context.Context, job Job) (*train.Result, error) {

	cfg := job.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := model.NewAlphabet(cfg.Alphabet.Structure, cfg.Alphabet.IncludeN)
	if err != nil {
		return nil, err
	}
	ds, err := model.LoadFiles(cfg.SequenceFile, cfg.StructureFile, a, model.LoadOptions{
		OnlyBestShape: cfg.Alphabet.OnlyBestShape,
		ViewpointMask: cfg.Alphabet.ViewpointMask,
	})
	if err != nil {
		return nil, err
	}
	glog.Infof("[%s] loaded %d observations, shortest %d", job.Name, ds.Len(), ds.MinLen())

	p, err := initialParams(job.Name, cfg, a)
	if err != nil {
		return nil, err
	}

	dir := Dir(job)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, ProgressFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reporter := train.MultiReporter(train.LogReporter{}, train.NewJSONReporter(f))
	g, err := train.NewGibbs(cfg.Train, ds, p,
		train.WithReporter(reporter),
		train.SnapshotDir(dir),
		train.RunName(job.Name))
	if err != nil {
		return nil, err
	}
	res, runErr := g.Run(ctx)
	if res == nil || res.Params == nil {
		return res, runErr
	}
	if err := res.Params.WriteFile(filepath.Join(dir, ModelFile)); err != nil {
		return res, err
	}
	if err := res.Trajectory.WriteFile(filepath.Join(dir, TrajectoryFile)); err != nil {
		return res, err
	}
	if err := res.Params.WriteGraphFile(filepath.Join(dir, GraphFile), 5); err != nil {
		return res, err
	}
	glog.Infof("[%s] %s after %d iterations: %s", job.Name, res.State, res.Iterations, res.Params)
	return res, runErr
}

func initialParams(name string, cfg sshmm.Config, a *model.Alphabet) (*hmm.Params, error) {

	if cfg.ModelIn != "" {
		p, err := hmm.ReadFile(cfg.ModelIn)
		if err != nil {
			return nil, err
		}
		if pa := p.Alphabet(); pa != nil && !pa.Equal(a) {
			return nil, fmt.Errorf("%w: model [%s] alphabet %s does not match %s",
				sshmm.ErrConfiguration, cfg.ModelIn, pa.Name, a.Name)
		}
		return p, nil
	}
	top, err := hmm.NewTopology(cfg.Train.MotifLength)
	if err != nil {
		return nil, err
	}
	return hmm.NewParams(top, a.Size(),
		hmm.Name(name),
		hmm.Seed(cfg.Train.Seed),
		hmm.Perturbation(cfg.Train.Perturbation),
		hmm.WithAlphabet(a)), nil
}
