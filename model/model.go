// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package model defines observations of RNA binding sites over a combined
// sequence/structure alphabet and the interfaces implemented by models that
// score, align and sample them.
package model

import (
	sshmm "github.com/phychaos/ssHMM"
)

const (
	// DefaultSeed provided for model implementation.
	DefaultSeed = sshmm.DefaultSeed
)

// Scorer computes log probabilities.
type Scorer interface {
	LogProb(o *Observation) (float64, error)
}

// Aligner finds the most likely motif alignment of an observation. Returns
// the state path, the motif start position and the path log probability.
type Aligner interface {
	Align(o *Observation) (path []int, start int, logProb float64, err error)
}

// The Sampler type generates random data using the model.
type Sampler interface {
	// Returns a sample drawn from the underlying distribution.
	Sample(id string, length int) (*Observation, []int, error)
}

// Modeler is a complete motif model.
type Modeler interface {

	// The model name.
	Name() string

	Scorer
	Aligner
}
