// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package train

import (
	"context"
	"math"
	"testing"

	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaumWelchMonotone(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 30, 15, 1)
	p := initParams(t, ds, 4)
	orig := p.Clone()

	q, obj, err := BaumWelch(context.Background(), p, ds, BWOptions{
		Tolerance:   1e-6,
		MaxIter:     30,
		Pseudocount: 0.1,
		Workers:     3,
	})
	require.NoError(t, err)
	require.True(t, len(obj) >= 2)
	t.Logf("objective: %v", obj)
	for i := 1; i < len(obj); i++ {
		assert.True(t, obj[i] >= obj[i-1]-1e-9*math.Abs(obj[i-1]),
			"pass %d: objective decreased from %f to %f", i, obj[i-1], obj[i])
	}
	assert.True(t, obj[len(obj)-1] > obj[0])
	assert.NoError(t, q.CheckRows(hmm.RowTolerance))
	assert.True(t, p.Equal(orig, 0), "input params must not change")
	assert.NotEqual(t, p.Version(), q.Version())
}

func TestBaumWelchMaxIter(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 10, 12, 2)
	p := initParams(t, ds, 4)
	q, obj, err := BaumWelch(context.Background(), p, ds, BWOptions{MaxIter: 3, Pseudocount: 0.1, Tolerance: -1})
	require.NoError(t, err)
	assert.Len(t, obj, 4)
	assert.Equal(t, 3, q.Iteration())

	_, _, err = BaumWelch(context.Background(), p, ds, BWOptions{MaxIter: 0, Pseudocount: 0.1})
	assert.ErrorIs(t, err, sshmm.ErrConfiguration)
}

func TestBaumWelchCancel(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 10, 12, 2)
	p := initParams(t, ds, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, obj, err := BaumWelch(ctx, p, ds, BWOptions{MaxIter: 10, Pseudocount: 0.1, Tolerance: -1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, obj, 1)
}

func TestBaumWelchDegenerate(t *testing.T) {

	ds, _ := planted(t, motif4Seq, motif4Struct, 5, 12, 3)

	// One observation without allowed motif starts is skipped.
	obs := append([]*model.Observation(nil), ds.Obs...)
	bad := *obs[0]
	bad.ID = "bad"
	bad.CoreStart, bad.CoreEnd = 0, 0
	obs = append(obs, &bad)
	mixed, err := model.NewDataset(ds.Alphabet, obs)
	require.NoError(t, err)
	p := initParams(t, mixed, 4)
	_, obj, err := BaumWelch(context.Background(), p, mixed, BWOptions{MaxIter: 5, Pseudocount: 0.1})
	require.NoError(t, err)
	assert.NotEmpty(t, obj)

	only, err := model.NewDataset(ds.Alphabet, []*model.Observation{&bad})
	require.NoError(t, err)
	_, _, err = BaumWelch(context.Background(), p, only, BWOptions{MaxIter: 5, Pseudocount: 0.1})
	assert.ErrorIs(t, err, sshmm.ErrDegenerateLikelihood)
}
