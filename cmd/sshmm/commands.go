// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"github.com/phychaos/ssHMM/model/hmm"
)

// signalContext is cancelled on SIGINT or SIGTERM. Training stops at the next
// iteration boundary and writes the best model found so far.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func doAlign() error {

	p, err := hmm.ReadFile(*alignModel)
	if err != nil {
		return err
	}
	a := p.Alphabet()
	if a == nil {
		return fmt.Errorf("%w: model [%s] has no alphabet", sshmm.ErrInputFormat, *alignModel)
	}
	ds, err := model.LoadFiles(*alignSeq, *alignStruct, a, model.LoadOptions{
		OnlyBestShape: *alignBest,
		ViewpointMask: *alignMask,
	})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, o := range ds.Obs {
		node, err := p.Alignment(o)
		if err != nil {
			glog.Warningf("unable to align [%s]: %v", o.ID, err)
			continue
		}
		fmt.Fprintln(w, node)
	}
	return nil
}

func doScore() error {

	p, err := hmm.ReadFile(*scoreModel)
	if err != nil {
		return err
	}
	if p.Alphabet() == nil {
		return fmt.Errorf("%w: model [%s] has no alphabet", sshmm.ErrInputFormat, *scoreModel)
	}
	ds, err := model.LoadFiles(*scoreSeq, *scoreStruct, p.Alphabet(), model.LoadOptions{ViewpointMask: true})
	if err != nil {
		return err
	}

	out := os.Stdout
	if *scoreOut == "" {
		glog.Infof("no score file specified, writing to stdout")
	} else {
		f, err := os.Create(*scoreOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	return score(w, p, ds)
}

// score writes one line per observation with its log likelihood and the
// Viterbi motif start, followed by the average log likelihood.
func score(w io.Writer, m model.Modeler, ds *model.Dataset) error {

	var sum float64
	var n int
	for _, o := range ds.Obs {
		lp, err := m.LogProb(o)
		if err != nil {
			glog.Warningf("unable to score [%s]: %v", o.ID, err)
			continue
		}
		_, start, vlp, err := m.Align(o)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.4f\t%d\t%.4f\n", o.ID, lp, start, vlp)
		sum += lp
		n++
	}
	if n == 0 {
		return fmt.Errorf("%w: no observation could be scored with [%s]", sshmm.ErrDegenerateLikelihood, m.Name())
	}
	_, err := fmt.Fprintf(w, "\nAVG: %s log prob: %.4f\n", m.Name(), sum/float64(n))
	return err
}

func doRand() error {

	seqOut, err := os.Create(*randSeqOut)
	if err != nil {
		return err
	}
	defer seqOut.Close()
	stOut, err := os.Create(*randStOut)
	if err != nil {
		return err
	}
	defer stOut.Close()
	sw, tw := bufio.NewWriter(seqOut), bufio.NewWriter(stOut)

	err = writeRand(sw, tw)
	if e := flush(sw, tw); err == nil {
		err = e
	}
	for _, f := range []*os.File{seqOut, stOut} {
		if e := f.Close(); err == nil {
			err = e
		}
	}
	return err
}

// flush flushes all writers and returns the first error.
func flush(writers ...*bufio.Writer) error {
	var err error
	for _, w := range writers {
		if e := w.Flush(); err == nil {
			err = e
		}
	}
	return err
}

func writeRand(sw, tw io.Writer) error {

	r := rand.New(rand.NewSource(*randSeed))
	if *randMotif != "" {
		a, err := model.NewAlphabet(*randAlpha, false)
		if err != nil {
			return err
		}
		ps, err := hmm.PlantMotif(a, *randMotif, *randMotifSt, *randNum, *randLength, r)
		if err != nil {
			return fmt.Errorf("%w: %v", sshmm.ErrConfiguration, err)
		}
		return ps.WriteFasta(sw, tw)
	}

	if *randModel == "" {
		return fmt.Errorf("%w: rand needs --model or --motif-seq", sshmm.ErrConfiguration)
	}
	p, err := hmm.ReadFile(*randModel)
	if err != nil {
		return err
	}
	a := p.Alphabet()
	if a == nil {
		return fmt.Errorf("%w: model [%s] has no alphabet", sshmm.ErrInputFormat, *randModel)
	}
	gen := hmm.NewGenerator(p, *randSeed)
	for i := 0; i < *randNum; i++ {
		id := fmt.Sprintf("rand%d", i+1)
		o, _, err := gen.Sample(id, *randLength)
		if err != nil {
			return fmt.Errorf("%w: %v", sshmm.ErrConfiguration, err)
		}
		sq := make([]byte, o.Len())
		st := make([]byte, o.Len())
		for t, sym := range o.Symbols {
			sq[t], st[t] = a.Letters(sym)
		}
		if _, err := fmt.Fprintf(sw, ">%s\n%s\n", id, sq); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, ">%s\n%s\n", id, st); err != nil {
			return err
		}
	}
	return nil
}

func doGraph() error {

	p, err := hmm.ReadFile(*graphModel)
	if err != nil {
		return err
	}
	glog.Infof("writing graph of [%s] to %s", p.Name(), *graphOut)
	return p.WriteGraphFile(*graphOut, *graphMax)
}
