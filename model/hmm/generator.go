// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/phychaos/ssHMM/floatx"
	"github.com/phychaos/ssHMM/model"
)

// Generator generates random observations using a motif model.
type Generator struct {
	p *Params
	r *rand.Rand
}

var _ model.Sampler = (*Generator)(nil)

// NewGenerator returns a data generator.
func NewGenerator(p *Params, seed int64) *Generator {
	return &Generator{
		p: p,
		r: rand.New(rand.NewSource(seed)),
	}
}

// Sample returns an observation of the given length and its state path. The
// motif start is drawn from the distribution implied by the initial and
// transition probabilities conditioned on the length.
func (gen *Generator) Sample(id string, length int) (*model.Observation, []int, error) {

	p := gen.p
	top := p.top
	n := top.NumStarts(length)
	if n == 0 {
		return nil, nil, fmt.Errorf("length [%d] is shorter than motif length [%d]", length, top.MotifLength())
	}

	// log P(start = s | T) up to a constant.
	b5, m1 := top.Background5(), top.Motif(0)
	starts := make([]float64, n)
	starts[0] = p.LogInit(m1)
	for s := 1; s < n; s++ {
		starts[s] = p.LogInit(b5) + float64(s-1)*p.LogTrans(b5, b5) + p.LogTrans(b5, m1)
	}
	if _, err := floatx.LogNormalize(starts); err != nil {
		return nil, nil, err
	}
	s, err := model.RandIntFromLogDist(starts, gen.r)
	if err != nil {
		return nil, nil, err
	}
	path, err := top.PathFromStart(length, s)
	if err != nil {
		return nil, nil, err
	}

	syms := make([]int, length)
	for t, state := range path {
		sym, err := model.RandIntFromDist(p.emit.RawRowView(state), gen.r)
		if err != nil {
			return nil, nil, err
		}
		syms[t] = sym
	}
	o := &model.Observation{ID: id, Symbols: syms, CoreStart: 0, CoreEnd: length}
	return o, path, nil
}

// PlantedSet is a synthetic dataset in text form with a known motif start for
// each record.
type PlantedSet struct {
	IDs        []string
	Sequences  []string
	Structures []string
	Starts     []int
}

// PlantMotif creates n records of the given length. Each record has the motif
// (a sequence and a structure string of equal length) planted at a random
// position. Flanks are drawn uniformly from the alphabet. The motif with a
// margin of two positions on each side is uppercase, the rest lowercase.
func PlantMotif(a *model.Alphabet, motifSeq, motifStruct string, n, length int, r *rand.Rand) (*PlantedSet, error) {

	k := len(motifSeq)
	if k == 0 || k != len(motifStruct) {
		return nil, fmt.Errorf("motif sequence and structure must have the same non-zero length")
	}
	if length < k {
		return nil, fmt.Errorf("record length [%d] is shorter than motif length [%d]", length, k)
	}
	nucs := a.Nucleotides
	if nucs == model.NucleotidesWithN {
		nucs = model.Nucleotides
	}

	ps := &PlantedSet{}
	for i := 0; i < n; i++ {
		s := r.Intn(length - k + 1)
		sq := make([]byte, length)
		st := make([]byte, length)
		for t := 0; t < length; t++ {
			if t >= s && t < s+k {
				sq[t] = motifSeq[t-s]
				st[t] = motifStruct[t-s]
				continue
			}
			sq[t] = nucs[r.Intn(len(nucs))]
			st[t] = a.Structures[r.Intn(len(a.Structures))]
		}
		lo, hi := s-2, s+k+2
		if lo < 0 {
			lo = 0
		}
		if hi > length {
			hi = length
		}
		lower := strings.ToLower(string(sq))
		seq := lower[:lo] + strings.ToUpper(lower[lo:hi]) + lower[hi:]

		ps.IDs = append(ps.IDs, fmt.Sprintf("site%d", i+1))
		ps.Sequences = append(ps.Sequences, seq)
		ps.Structures = append(ps.Structures, string(st))
		ps.Starts = append(ps.Starts, s)
	}
	return ps, nil
}

// Observations converts the records using the alphabet.
func (ps *PlantedSet) Observations(a *model.Alphabet, mask bool) ([]*model.Observation, error) {

	obs := make([]*model.Observation, len(ps.IDs))
	for i, id := range ps.IDs {
		o, err := a.Observation(id, ps.Sequences[i], ps.Structures[i], mask)
		if err != nil {
			return nil, err
		}
		obs[i] = o
	}
	return obs, nil
}

// WriteFasta writes the sequence and structure records in FASTA format.
func (ps *PlantedSet) WriteFasta(seqW, structW io.Writer) error {

	for i, id := range ps.IDs {
		if _, err := fmt.Fprintf(seqW, ">%s\n%s\n", id, ps.Sequences[i]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(structW, ">%s\n%s\n", id, ps.Structures[i]); err != nil {
			return err
		}
	}
	return nil
}
