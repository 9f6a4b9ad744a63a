// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
)

// Persisted model. Probabilities are stored in linear scale.
type paramsJSON struct {
	Name        string      `json:"name"`
	MotifLength int         `json:"motif_length"`
	States      []string    `json:"states"`
	NumSymbols  int         `json:"num_symbols"`
	Alphabet    *alphaJSON  `json:"alphabet,omitempty"`
	Iteration   int         `json:"iteration"`
	Init        []float64   `json:"initial"`
	Trans       [][]float64 `json:"transitions"`
	Emit        [][]float64 `json:"emissions"`
}

type alphaJSON struct {
	Structure   string `json:"structure"`
	Nucleotides string `json:"nucleotides"`
	Structures  string `json:"structures"`
}

// Write writes the parameters as json.
func (p *Params) Write(w io.Writer) error {

	N := p.NumStates()
	v := paramsJSON{
		Name:        p.name,
		MotifLength: p.top.MotifLength(),
		NumSymbols:  p.numSymbols,
		Iteration:   p.iteration,
		Init:        p.InitProbs(),
		Trans:       make([][]float64, N),
		Emit:        make([][]float64, N),
	}
	for i := 0; i < N; i++ {
		v.States = append(v.States, p.top.StateName(i))
		v.Trans[i] = p.Transitions(i)
		v.Emit[i] = p.Emissions(i)
	}
	if a := p.alphabet; a != nil {
		v.Alphabet = &alphaJSON{Structure: a.Name, Nucleotides: a.Nucleotides, Structures: a.Structures}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteFile writes the parameters to a json file. Creates the parent dir.
func (p *Params) WriteFile(fn string) error {

	if e := os.MkdirAll(filepath.Dir(fn), 0755); e != nil {
		return e
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	if e := p.Write(f); e != nil {
		return e
	}
	return f.Close()
}

// Read reads parameters written by Write.
func Read(r io.Reader) (*Params, error) {

	var v paramsJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", sshmm.ErrInputFormat, err)
	}

	if v.NumSymbols < 1 {
		return nil, fmt.Errorf("%w: model has %d symbols", sshmm.ErrInputFormat, v.NumSymbols)
	}
	top, err := NewTopology(v.MotifLength)
	if err != nil {
		return nil, err
	}
	N := top.NumStates()
	if len(v.Init) != N || len(v.Trans) != N || len(v.Emit) != N {
		return nil, fmt.Errorf("%w: model has %d states, expected %d", sshmm.ErrInputFormat, len(v.Trans), N)
	}

	p := &Params{
		name:       v.Name,
		top:        top,
		numSymbols: v.NumSymbols,
		iteration:  v.Iteration,
	}
	if v.Alphabet != nil {
		a, err := model.NewAlphabet(v.Alphabet.Structure, v.Alphabet.Nucleotides == model.NucleotidesWithN)
		if err != nil {
			return nil, err
		}
		if a.Size() != v.NumSymbols || a.Structures != v.Alphabet.Structures {
			return nil, fmt.Errorf("%w: alphabet [%s] does not match %d symbols", sshmm.ErrInputFormat, a.Name, v.NumSymbols)
		}
		p.alphabet = a
	}
	p.alloc()
	for i := 0; i < N; i++ {
		if len(v.Trans[i]) != N || len(v.Emit[i]) != v.NumSymbols {
			return nil, fmt.Errorf("%w: bad row length for state [%s]", sshmm.ErrInputFormat, top.StateName(i))
		}
		p.trans.SetRow(i, v.Trans[i])
		p.emit.SetRow(i, v.Emit[i])
	}
	copy(p.init, v.Init)
	p.updateLogs()

	if err := p.CheckRows(RowTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", sshmm.ErrInputFormat, err)
	}
	return p, nil
}

// ReadFile reads parameters from a json file.
func ReadFile(fn string) (*Params, error) {

	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
