// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package floatx provides helpers for slices of float64 values in the log domain.
package floatx

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrZeroLength = Error("floatx: zero length in slice definition")
	ErrLength     = Error("floatx: length mismatch")
	ErrZeroSum    = Error("floatx: cannot normalize a slice that sums to zero")
)

// LogZero is log(0).
var LogZero = math.Inf(-1)

// MakeFloat2D allocates an n1 x n2 slice backed by a single array.
func MakeFloat2D(n1, n2 int) [][]float64 {

	buf := make([]float64, n1*n2)
	s := make([][]float64, n1)
	for i := range s {
		s[i] = buf[i*n2 : (i+1)*n2 : (i+1)*n2]
	}
	return s
}

// Fill sets all values to v.
func Fill(s []float64, v float64) {
	for i := range s {
		s[i] = v
	}
}

// Fill2D sets all values to v.
func Fill2D(s [][]float64, v float64) {
	for _, row := range s {
		Fill(row, v)
	}
}

// Clear2D sets all values to zero.
func Clear2D(s [][]float64) {
	Fill2D(s, 0)
}

// LogAdd returns log(exp(a) + exp(b)).
func LogAdd(a, b float64) float64 {

	switch {
	case math.IsInf(a, -1):
		return b
	case math.IsInf(b, -1):
		return a
	case a > b:
		return a + math.Log1p(math.Exp(b-a))
	default:
		return b + math.Log1p(math.Exp(a-b))
	}
}

// LogSumExp returns log(sum(exp(s))). Returns LogZero for an empty slice.
func LogSumExp(s []float64) float64 {

	if len(s) == 0 {
		return LogZero
	}
	return floats.LogSumExp(s)
}

// Log applies math.Log elementwise from in to out. Returns out.
func Log(out, in []float64) []float64 {

	if len(out) != len(in) {
		panic(ErrLength)
	}
	for i, v := range in {
		out[i] = math.Log(v)
	}
	return out
}

// Exp applies math.Exp elementwise from in to out. Returns out.
func Exp(out, in []float64) []float64 {

	if len(out) != len(in) {
		panic(ErrLength)
	}
	for i, v := range in {
		out[i] = math.Exp(v)
	}
	return out
}

// Normalize scales s in place so it sums to one.
func Normalize(s []float64) error {

	if len(s) == 0 {
		return ErrZeroLength
	}
	sum := floats.Sum(s)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return ErrZeroSum
	}
	floats.Scale(1/sum, s)
	return nil
}

// LogNormalize shifts log values in place so that their exponentials sum to one.
// Returns the normalization constant.
func LogNormalize(s []float64) (float64, error) {

	if len(s) == 0 {
		return LogZero, ErrZeroLength
	}
	z := floats.LogSumExp(s)
	if math.IsInf(z, 0) || math.IsNaN(z) {
		return z, ErrZeroSum
	}
	floats.AddConst(-z, s)
	return z, nil
}

// HasNaN returns true if any value is NaN.
func HasNaN(s [][]float64) bool {
	for _, row := range s {
		if floats.HasNaN(row) {
			return true
		}
	}
	return false
}
