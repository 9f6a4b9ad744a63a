// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"time"

	sshmm "github.com/phychaos/ssHMM"
	"gopkg.in/alecthomas/kingpin.v2"
)

// trainFlags override the yaml config. Only flags present on the command
// line are applied; their values are checked by Config.Validate.
type trainFlags struct {
	set map[string]bool

	motifLength         *int
	baumWelch           *bool
	flexibility         *int
	blockSize           *int
	threshold           *float64
	terminationInterval *int
	writeModelState     *bool
	onlyBestShape       *bool
	viewpointMask       *bool
	structureAlphabet   *string
	includeN            *bool
	maxIterations       *int
	seed                *int64
	workers             *int
	pseudocount         *float64
	timeout             *time.Duration
}

func trainOverrides(cmd *kingpin.CmdClause) *trainFlags {

	f := &trainFlags{set: make(map[string]bool)}
	flag := func(name, help string) *kingpin.FlagClause {
		return cmd.Flag(name, help).Action(func(*kingpin.ParseContext) error {
			f.set[name] = true
			return nil
		})
	}
	f.motifLength = flag("motif-length", "Number of motif states.").Short('k').Int()
	f.baumWelch = flag("baum-welch", "Warm start with Baum-Welch.").Bool()
	f.flexibility = flag("flexibility", "Sample the motif start among the top f candidates, 0 for all.").Int()
	f.blockSize = flag("block-size", "Observations held out per iteration.").Int()
	f.threshold = flag("threshold", "Minimum log likelihood change that prevents convergence.").Float64()
	f.terminationInterval = flag("termination-interval", "Iterations between checkpoints.").Int()
	f.writeModelState = flag("write-model-state", "Write the model at every checkpoint.").Bool()
	f.onlyBestShape = flag("only-best-shape", "Keep only the best structure candidate.").Bool()
	f.viewpointMask = flag("viewpoint-mask", "Restrict the motif to the uppercase core.").Bool()
	f.structureAlphabet = flag("structure-alphabet", "Structure alphabet (contexts|dotbracket).").String()
	f.includeN = flag("include-n", "Add N to the nucleotide alphabet.").Bool()
	f.maxIterations = flag("max-iterations", "Maximum number of Gibbs iterations.").Int()
	f.seed = flag("seed", "Seed for random number generator.").Int64()
	f.workers = flag("workers", "Goroutines used for forward-backward.").Int()
	f.pseudocount = flag("pseudocount", "Pseudocount added to every count.").Float64()
	f.timeout = flag("timeout", "Stop the run after this duration.").Duration()
	return f
}

// apply copies the flags given on the command line into cfg.
func (f *trainFlags) apply(cfg *sshmm.Config) {

	t := &cfg.Train
	ints := map[string]struct {
		dst *int
		v   *int
	}{
		"motif-length":         {&t.MotifLength, f.motifLength},
		"flexibility":          {&t.Flexibility, f.flexibility},
		"block-size":           {&t.BlockSize, f.blockSize},
		"termination-interval": {&t.TerminationInterval, f.terminationInterval},
		"max-iterations":       {&t.MaxIterations, f.maxIterations},
		"workers":              {&t.Workers, f.workers},
	}
	for name, x := range ints {
		if f.set[name] {
			*x.dst = *x.v
		}
	}
	bools := map[string]struct {
		dst *bool
		v   *bool
	}{
		"baum-welch":        {&t.BaumWelch, f.baumWelch},
		"write-model-state": {&t.WriteModelState, f.writeModelState},
		"only-best-shape":   {&cfg.Alphabet.OnlyBestShape, f.onlyBestShape},
		"viewpoint-mask":    {&cfg.Alphabet.ViewpointMask, f.viewpointMask},
		"include-n":         {&cfg.Alphabet.IncludeN, f.includeN},
	}
	for name, x := range bools {
		if f.set[name] {
			*x.dst = *x.v
		}
	}
	if f.set["threshold"] {
		t.Threshold = *f.threshold
	}
	if f.set["pseudocount"] {
		t.Pseudocount = *f.pseudocount
	}
	if f.set["seed"] {
		t.Seed = *f.seed
	}
	if f.set["timeout"] {
		t.Timeout = *f.timeout
	}
	if f.set["structure-alphabet"] {
		cfg.Alphabet.Structure = *f.structureAlphabet
	}
}
