// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"fmt"

	sshmm "github.com/phychaos/ssHMM"
)

// Observation is a binding site as a sequence of sequence/structure symbols.
// Must not be modified once loaded.
type Observation struct {
	ID      string
	Symbols []int

	// Viewpoint core [CoreStart, CoreEnd). Covers the whole observation when
	// masking is disabled.
	CoreStart int
	CoreEnd   int

	// Score and rank of the structure candidate this observation was built from.
	Score float64
	Rank  int
}

// Len returns the number of symbols.
func (o *Observation) Len() int { return len(o.Symbols) }

// AllowedStart returns true if a motif of length k may start at position s.
// The motif window must lie inside the core. When the core is shorter than the
// motif, the window only needs to overlap it.
func (o *Observation) AllowedStart(s, k int) bool {

	if s < 0 || s+k > len(o.Symbols) {
		return false
	}
	if o.CoreEnd-o.CoreStart >= k {
		return s >= o.CoreStart && s+k <= o.CoreEnd
	}
	return s < o.CoreEnd && s+k > o.CoreStart
}

// NumStarts returns the number of allowed motif start positions.
func (o *Observation) NumStarts(k int) int {
	var n int
	for s := 0; s+k <= len(o.Symbols); s++ {
		if o.AllowedStart(s, k) {
			n++
		}
	}
	return n
}

// Dataset is an ordered collection of observations over one alphabet.
type Dataset struct {
	Alphabet *Alphabet
	Obs      []*Observation
}

// NewDataset creates a dataset. Returns an input error if obs is empty or if
// an observation uses symbols outside the alphabet.
func NewDataset(a *Alphabet, obs []*Observation) (*Dataset, error) {

	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", sshmm.ErrInputFormat)
	}
	n := a.Size()
	for _, o := range obs {
		if o.Len() == 0 {
			return nil, fmt.Errorf("%w: observation [%s] is empty", sshmm.ErrInputFormat, o.ID)
		}
		for _, s := range o.Symbols {
			if s < 0 || s >= n {
				return nil, fmt.Errorf("%w: observation [%s] has symbol %d outside alphabet of size %d",
					sshmm.ErrInputFormat, o.ID, s, n)
			}
		}
	}
	return &Dataset{Alphabet: a, Obs: obs}, nil
}

// Len returns the number of observations.
func (ds *Dataset) Len() int { return len(ds.Obs) }

// MinLen returns the length of the shortest observation.
func (ds *Dataset) MinLen() int {

	if len(ds.Obs) == 0 {
		return 0
	}
	min := ds.Obs[0].Len()
	for _, o := range ds.Obs[1:] {
		if o.Len() < min {
			min = o.Len()
		}
	}
	return min
}

// NumSymbols returns the total number of symbols in the dataset.
func (ds *Dataset) NumSymbols() int {
	var n int
	for _, o := range ds.Obs {
		n += o.Len()
	}
	return n
}

// CheckMotifLength returns a configuration error if no motif of length k fits
// in the shortest observation.
func (ds *Dataset) CheckMotifLength(k int) error {

	if min := ds.MinLen(); k > min {
		return fmt.Errorf("%w: motif length %d exceeds shortest observation length %d",
			sshmm.ErrConfiguration, k, min)
	}
	return nil
}
