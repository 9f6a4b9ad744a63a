// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"fmt"

	sshmm "github.com/phychaos/ssHMM"
)

// Nucleotide letters. T is read as U.
const (
	Nucleotides      = "ACGU"
	NucleotidesWithN = "ACGUN"
)

// Structure classes.
const (
	// Structural contexts: exterior, hairpin, internal loop, multiloop, stem, bulge.
	ContextLetters = "EHIMSB"
	// Paired, unpaired.
	DotBracketLetters = "PU"
)

// Alphabet is the cross product of a nucleotide alphabet and a structure
// alphabet. Symbols are numbered nuc*len(Structures)+structure.
type Alphabet struct {
	Name        string `json:"name"`
	Nucleotides string `json:"nucleotides"`
	Structures  string `json:"structures"`
	nucIndex    [256]int8
	strIndex    [256]int8
}

// NewAlphabet creates an alphabet. The structure argument is one of
// sshmm.Contexts or sshmm.DotBracket.
func NewAlphabet(structure string, withN bool) (*Alphabet, error) {

	nucs := Nucleotides
	if withN {
		nucs = NucleotidesWithN
	}

	var strs string
	switch structure {
	case sshmm.Contexts:
		strs = ContextLetters
	case sshmm.DotBracket:
		strs = DotBracketLetters
	default:
		return nil, fmt.Errorf("%w: unknown structure alphabet [%s]", sshmm.ErrConfiguration, structure)
	}
	a := &Alphabet{Name: structure, Nucleotides: nucs, Structures: strs}
	a.init()
	return a, nil
}

func (a *Alphabet) init() {

	for i := range a.nucIndex {
		a.nucIndex[i] = -1
		a.strIndex[i] = -1
	}
	for i := 0; i < len(a.Nucleotides); i++ {
		c := a.Nucleotides[i]
		a.nucIndex[c] = int8(i)
		a.nucIndex[lower(c)] = int8(i)
	}
	if u := a.nucIndex['U']; u >= 0 {
		a.nucIndex['T'] = u
		a.nucIndex['t'] = u
	}
	for i := 0; i < len(a.Structures); i++ {
		c := a.Structures[i]
		a.strIndex[c] = int8(i)
		a.strIndex[lower(c)] = int8(i)
	}
	if a.Name == sshmm.DotBracket {
		p, u := a.strIndex['P'], a.strIndex['U']
		for _, c := range []byte("()[]{}<>") {
			a.strIndex[c] = p
		}
		a.strIndex['.'] = u
	}
}

// Size returns the number of symbols.
func (a *Alphabet) Size() int {
	return len(a.Nucleotides) * len(a.Structures)
}

// Symbol returns the symbol for a nucleotide and a structure letter.
func (a *Alphabet) Symbol(nuc, st byte) (int, bool) {

	n, s := a.nucIndex[nuc], a.strIndex[st]
	if n < 0 || s < 0 {
		return -1, false
	}
	return int(n)*len(a.Structures) + int(s), true
}

// Letters returns the canonical nucleotide and structure letters of a symbol.
func (a *Alphabet) Letters(sym int) (nuc, st byte) {
	ns := len(a.Structures)
	return a.Nucleotides[sym/ns], a.Structures[sym%ns]
}

// SymbolName returns a printable name such as "A/S".
func (a *Alphabet) SymbolName(sym int) string {
	n, s := a.Letters(sym)
	return string([]byte{n, '/', s})
}

// Equal returns true when both alphabets define the same symbols.
func (a *Alphabet) Equal(b *Alphabet) bool {
	return a.Name == b.Name && a.Nucleotides == b.Nucleotides && a.Structures == b.Structures
}

// Observation combines a nucleotide string and a structure string of equal
// length into an observation. When mask is true, the uppercase region of the
// sequence is the viewpoint core.
func (a *Alphabet) Observation(id, sequence, structure string, mask bool) (*Observation, error) {

	if len(sequence) != len(structure) {
		return nil, fmt.Errorf("%w: [%s] sequence length %d does not match structure length %d",
			sshmm.ErrInputFormat, id, len(sequence), len(structure))
	}
	if len(sequence) == 0 {
		return nil, fmt.Errorf("%w: [%s] empty record", sshmm.ErrInputFormat, id)
	}

	syms := make([]int, len(sequence))
	for i := 0; i < len(sequence); i++ {
		sym, ok := a.Symbol(sequence[i], structure[i])
		if !ok {
			return nil, fmt.Errorf("%w: [%s] unrecognized pair (%q,%q) at position %d",
				sshmm.ErrInputFormat, id, sequence[i], structure[i], i)
		}
		syms[i] = sym
	}

	o := &Observation{
		ID:        id,
		Symbols:   syms,
		CoreStart: 0,
		CoreEnd:   len(syms),
	}
	if mask {
		o.CoreStart, o.CoreEnd = core(sequence)
	}
	return o, nil
}

// core returns the span from the first to the last uppercase letter. The whole
// sequence is returned when there are no uppercase letters.
func core(s string) (start, end int) {

	start, end = -1, -1
	for i := 0; i < len(s); i++ {
		if isUpper(s[i]) {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return 0, len(s)
	}
	return start, end
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func lower(c byte) byte {
	if isUpper(c) {
		return c + 'a' - 'A'
	}
	return c
}
