// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"math/rand"
	"testing"

	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
)

// Motifs with distinct sequence/structure symbols at every position.
const (
	motif4Seq    = "GACU"
	motif4Struct = "SHHS"
	motif6Seq    = "GACUCA"
	motif6Struct = "SHHHSS"
)

func planted(t *testing.T, motifSeq, motifStruct string, n, length int, seed int64) (*model.Dataset, *hmm.PlantedSet) {

	a, err := model.NewAlphabet(sshmm.Contexts, false)
	if err != nil {
		t.Fatal(err)
	}
	ps, err := hmm.PlantMotif(a, motifSeq, motifStruct, n, length, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	obs, err := ps.Observations(a, true)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := model.NewDataset(a, obs)
	if err != nil {
		t.Fatal(err)
	}
	return ds, ps
}

func initParams(t *testing.T, ds *model.Dataset, k int) *hmm.Params {

	top, err := hmm.NewTopology(k)
	if err != nil {
		t.Fatal(err)
	}
	return hmm.NewParams(top, ds.Alphabet.Size(),
		hmm.Name("test"),
		hmm.Seed(11),
		hmm.WithAlphabet(ds.Alphabet))
}

func testTrain(k int) sshmm.Train {
	cfg := sshmm.DefaultTrain()
	cfg.MotifLength = k
	cfg.Workers = 2
	cfg.TerminationInterval = 5
	cfg.MaxIterations = 50
	return cfg
}

type recorder struct {
	checkpoints []Checkpoint
}

func (r *recorder) Report(c Checkpoint) error {
	r.checkpoints = append(r.checkpoints, c)
	return nil
}
