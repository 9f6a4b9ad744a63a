// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	sshmm "github.com/phychaos/ssHMM"
	"gonum.org/v1/gonum/floats"
)

// RandIntFromDist samples an index from a discrete prob distribution.
func RandIntFromDist(dist []float64, r *rand.Rand) (int, error) {
	N := len(dist)
	if N == 0 {
		return -1, fmt.Errorf("prob distribution has len 0")
	}
	ran := r.Float64()
	cum := 0.0
	for i := 0; i < N; i++ {
		cum = cum + dist[i]
		if ran < cum {
			return i, nil
		}
	}
	if !sshmm.Comparef64(cum, 1.0, 0.001) {
		return -1, fmt.Errorf("distribution doesn't sum to 1, got %f", cum)
	}
	return N - 1, nil
}

// RandIntFromLogDist is like RandIntFromDist using log probs. Entries equal
// to -Inf are never selected.
func RandIntFromLogDist(dist []float64, r *rand.Rand) (int, error) {
	N := len(dist)
	if N == 0 {
		return -1, fmt.Errorf("prob distribution has len 0")
	}
	ran := r.Float64()
	cum := 0.0
	last := -1
	for i := 0; i < N; i++ {
		if math.IsInf(dist[i], -1) {
			continue
		}
		last = i
		cum = cum + math.Exp(dist[i])
		if ran < cum {
			return i, nil
		}
	}
	if last < 0 || !sshmm.Comparef64(cum, 1.0, 0.001) {
		return -1, fmt.Errorf("distribution doesn't sum to 1, got %f", cum)
	}
	return last, nil
}

// RandSubset returns k distinct indices in [0,n) in the order they were drawn.
func RandSubset(n, k int, r *rand.Rand) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	return r.Perm(n)[:k]
}

// TopIndices returns the indices of the f largest values, largest first. Ties
// are broken by the lower index. When f is zero or not smaller than the number
// of finite values, all indices with finite values are returned.
func TopIndices(values []float64, f int) []int {

	idx := make([]int, 0, len(values))
	for i, v := range values {
		if !math.IsInf(v, -1) && !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	if f > 0 && f < len(idx) {
		idx = idx[:f]
	}
	return idx
}

// Renormalize returns log probs for the selected entries that sum to one.
// Other entries are set to -Inf.
func Renormalize(logp []float64, selected []int) []float64 {

	out := make([]float64, len(logp))
	sel := make([]float64, len(selected))
	for i := range out {
		out[i] = math.Inf(-1)
	}
	for i, j := range selected {
		sel[i] = logp[j]
	}
	z := floats.LogSumExp(sel)
	for _, j := range selected {
		out[j] = logp[j] - z
	}
	return out
}
