// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package batch trains independent motif models concurrently. Each job owns
// its dataset, params and random source.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/train"
)

// Job is one training run.
type Job struct {
	Name   string
	Config sshmm.Config
}

// Outcome is the result of a job.
type Outcome struct {
	Job     Job
	Result  *train.Result
	Err     error
	Elapsed time.Duration
}

// RunFunc runs a single job.
type RunFunc func(ctx context.Context, job Job) (*train.Result, error)

// Option type is used to pass options to Run().
type Option func(*runner)

type runner struct {
	progress io.Writer
}

// ProgressWriter sets the destination of the progress bar. Use nil to
// disable it. Default is stderr.
func ProgressWriter(w io.Writer) Option {
	return func(r *runner) { r.progress = w }
}

// Jobs returns one job per dataset of the config batch section. Every job
// gets a copy of the config with the dataset files and name replaced. Names
// select the output dir of a job so they must be present and unique.
func Jobs(cfg *sshmm.Config) ([]Job, error) {

	jobs := make([]Job, 0, len(cfg.Batch))
	seen := make(map[string]bool, len(cfg.Batch))
	for i, d := range cfg.Batch {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: batch dataset %d has no name", sshmm.ErrConfiguration, i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: duplicate batch dataset name [%s]", sshmm.ErrConfiguration, d.Name)
		}
		seen[d.Name] = true
		c := *cfg
		c.Batch = nil
		c.Name = d.Name
		c.SequenceFile = d.SequenceFile
		c.StructureFile = d.StructureFile
		jobs = append(jobs, Job{Name: d.Name, Config: c})
	}
	return jobs, nil
}

// Run executes the jobs on up to workers goroutines and returns the outcomes
// in job order. Jobs not started when ctx is cancelled fail with the context
// error.
func Run(ctx context.Context, jobs []Job, workers int, fn RunFunc, options ...Option) []Outcome {

	r := &runner{progress: os.Stderr}
	for _, option := range options {
		option(r)
	}
	if workers < 1 {
		workers = 1
	}

	var bar *pb.ProgressBar
	if r.progress != nil {
		bar = pb.Full.New(len(jobs)).SetWriter(r.progress).Start()
		defer bar.Finish()
	}

	outcomes := make([]Outcome, len(jobs))
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				outcomes[i] = runJob(ctx, jobs[i], fn)
				if bar != nil {
					bar.Increment()
				}
			}
		}()
	}
	for i := range jobs {
		next <- i
	}
	close(next)
	wg.Wait()
	return outcomes
}

func runJob(ctx context.Context, job Job, fn RunFunc) Outcome {

	out := Outcome{Job: job}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	start := time.Now()
	glog.Infof("[%s] start job", job.Name)
	out.Result, out.Err = fn(ctx, job)
	out.Elapsed = time.Since(start)
	if out.Err != nil {
		glog.Warningf("[%s] job finished in %v: %v", job.Name, out.Elapsed, out.Err)
	} else {
		glog.Infof("[%s] job finished in %v", job.Name, out.Elapsed)
	}
	return out
}
