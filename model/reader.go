// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/TuftsBCB/io/fasta"
	"github.com/TuftsBCB/seq"
	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
)

// LoadOptions control how FASTA records become observations.
type LoadOptions struct {
	// Keep only the highest scored structure candidate of each sequence.
	OnlyBestShape bool
	// Use the uppercase region of each sequence as the viewpoint core.
	ViewpointMask bool
}

// LoadFiles reads a sequence FASTA file and a structure FASTA file.
func LoadFiles(seqPath, structPath string, a *Alphabet, opt LoadOptions) (*Dataset, error) {

	sf, err := os.Open(seqPath)
	if err != nil {
		return nil, err
	}
	defer sf.Close()

	tf, err := os.Open(structPath)
	if err != nil {
		return nil, err
	}
	defer tf.Close()

	ds, err := Load(sf, tf, a, opt)
	if err != nil {
		return nil, fmt.Errorf("loading [%s, %s]: %w", seqPath, structPath, err)
	}
	return ds, nil
}

// Load reads sequence records and structure records and pairs them. When
// both files have the same number of records, record i of the sequence file
// matches record i of the structure file. Otherwise sequence record i
// matches the i-th group of consecutive structure records sharing its name,
// each record of the group being one structure candidate. The second header
// field of a structure record, when numeric, is the candidate score.
func Load(seqReader, structReader io.Reader, a *Alphabet, opt LoadOptions) (*Dataset, error) {

	seqs, err := readFasta(seqReader)
	if err != nil {
		return nil, err
	}
	structs, err := readFasta(structReader)
	if err != nil {
		return nil, err
	}
	groups, err := pairRecords(seqs, structs)
	if err != nil {
		return nil, err
	}

	var obs []*Observation
	var masked bool
	for i, s := range seqs {
		id := recordName(s.Name)
		residues := residueString(s)
		if strings.ToUpper(residues) != residues {
			masked = true
		}
		g := groups[i]
		if g.name != id {
			glog.Warningf("sequence record %d [%s] paired with structure record [%s]", i, id, g.name)
		}
		cands := g.records
		if opt.OnlyBestShape {
			cands = []candidate{g.best()}
		}
		for _, c := range cands {
			oid := id
			if len(cands) > 1 {
				oid = fmt.Sprintf("%s#%d", id, c.rank)
			}
			o, err := a.Observation(oid, residues, c.structure, opt.ViewpointMask)
			if err != nil {
				return nil, err
			}
			o.Score = c.score
			o.Rank = c.rank
			obs = append(obs, o)
		}
	}
	if opt.ViewpointMask && !masked && len(seqs) > 0 {
		glog.Warningf("viewpoint mask requested but no lowercase flanks found, using whole records")
	}

	ds, err := NewDataset(a, obs)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("loaded %d observations from %d sequence records, %d symbols", ds.Len(), len(seqs), ds.NumSymbols())
	return ds, nil
}

func readFasta(r io.Reader) ([]seq.Sequence, error) {

	reader := fasta.NewReader(r)
	reader.TrustSequences = true
	seqs, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sshmm.ErrInputFormat, err)
	}
	return seqs, nil
}

func residueString(s seq.Sequence) string {
	b := make([]byte, len(s.Residues))
	for i, r := range s.Residues {
		b[i] = byte(r)
	}
	return string(b)
}

func recordName(header string) string {
	f := strings.Fields(header)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func recordScore(header string) float64 {
	f := strings.Fields(header)
	if len(f) < 2 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(f[1], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

type candidate struct {
	structure string
	score     float64
	rank      int
}

type group struct {
	name    string
	records []candidate
}

// best returns the candidate with the highest score. Candidates without a
// score lose against scored ones; ties keep the first.
func (g group) best() candidate {

	b := g.records[0]
	for _, c := range g.records[1:] {
		if math.IsNaN(c.score) {
			continue
		}
		if math.IsNaN(b.score) || c.score > b.score {
			b = c
		}
	}
	return b
}

// pairRecords returns one structure group per sequence record.
func pairRecords(seqs, structs []seq.Sequence) ([]group, error) {

	if len(seqs) == len(structs) {
		groups := make([]group, len(structs))
		for i, r := range structs {
			groups[i] = group{
				name: recordName(r.Name),
				records: []candidate{{
					structure: residueString(r),
					score:     recordScore(r.Name),
					rank:      1,
				}},
			}
		}
		return groups, nil
	}

	groups := groupRecords(structs)
	if len(seqs) != len(groups) {
		return nil, fmt.Errorf("%w: %d sequence records but %d structure records in %d groups",
			sshmm.ErrInputFormat, len(seqs), len(structs), len(groups))
	}
	for i, s := range seqs {
		if id := recordName(s.Name); groups[i].name != id {
			return nil, fmt.Errorf("%w: sequence record %d [%s] does not match structure group [%s]",
				sshmm.ErrInputFormat, i, id, groups[i].name)
		}
	}
	return groups, nil
}

func groupRecords(recs []seq.Sequence) []group {

	var groups []group
	for _, r := range recs {
		name := recordName(r.Name)
		if len(groups) == 0 || groups[len(groups)-1].name != name {
			groups = append(groups, group{name: name})
		}
		g := &groups[len(groups)-1]
		g.records = append(g.records, candidate{
			structure: residueString(r),
			score:     recordScore(r.Name),
			rank:      len(g.records) + 1,
		})
	}
	return groups
}
