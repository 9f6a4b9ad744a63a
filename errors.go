// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sshmm

// Error is the type of the sentinel errors returned by sshmm packages.
// Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
type Error string

func (err Error) Error() string { return string(err) }

const (
	// ErrConfiguration reports invalid or contradictory training parameters.
	ErrConfiguration = Error("sshmm: configuration error")
	// ErrInputFormat reports misaligned, malformed or empty sequence/structure input.
	ErrInputFormat = Error("sshmm: input format error")
	// ErrDegenerateLikelihood reports an observation whose likelihood underflows.
	ErrDegenerateLikelihood = Error("sshmm: degenerate likelihood")
	// ErrNonConvergence is returned together with the best model found when
	// the iteration cap is reached before the termination rule holds.
	ErrNonConvergence = Error("sshmm: maximum number of iterations reached without convergence")
)
