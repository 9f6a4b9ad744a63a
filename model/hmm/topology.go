// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"fmt"
	"sort"
	"strconv"

	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Topology is the state network of a motif model:
//
//	B5 -> M1 -> M2 -> ... -> Mk -> B3
//
// B5 and B3 have self loops. A path may start in B5 or M1 and may end in Mk
// or B3, so every path visits the motif states exactly once and is defined by
// the position of M1.
//
// Arcs between distinct states are kept in a directed graph that must be
// acyclic. Self loops are kept separately.
type Topology struct {
	k        int
	g        *simple.DirectedGraph
	selfLoop []bool
	initial  []bool
	final    []bool
	pred     [][]int
	succ     [][]int
}

// NewTopology creates the topology for a motif of length k.
func NewTopology(k int) (*Topology, error) {

	if k < 1 {
		return nil, fmt.Errorf("%w: motif length must be positive, got %d", sshmm.ErrConfiguration, k)
	}
	n := k + 2
	top := &Topology{
		k:        k,
		g:        simple.NewDirectedGraph(),
		selfLoop: make([]bool, n),
		initial:  make([]bool, n),
		final:    make([]bool, n),
	}
	for i := 0; i < n; i++ {
		top.g.AddNode(simple.Node(i))
	}
	b5, b3 := top.Background5(), top.Background3()
	top.selfLoop[b5] = true
	top.selfLoop[b3] = true
	top.addArc(b5, top.Motif(0))
	for i := 0; i < k-1; i++ {
		top.addArc(top.Motif(i), top.Motif(i+1))
	}
	top.addArc(top.Motif(k-1), b3)

	top.initial[b5] = true
	top.initial[top.Motif(0)] = true
	top.final[top.Motif(k-1)] = true
	top.final[b3] = true

	if err := top.index(); err != nil {
		return nil, err
	}
	return top, nil
}

func (top *Topology) addArc(from, to int) {
	top.g.SetEdge(top.g.NewEdge(simple.Node(from), simple.Node(to)))
}

// index builds sorted predecessor and successor lists and checks the network
// is left to right.
func (top *Topology) index() error {

	if _, err := topo.Sort(top.g); err != nil {
		return fmt.Errorf("motif network is not left to right: %v", err)
	}
	n := top.NumStates()
	top.pred = make([][]int, n)
	top.succ = make([][]int, n)
	for i := 0; i < n; i++ {
		top.pred[i] = ids(top.g.To(int64(i)))
		top.succ[i] = ids(top.g.From(int64(i)))
		if top.selfLoop[i] {
			top.pred[i] = insertSorted(top.pred[i], i)
			top.succ[i] = insertSorted(top.succ[i], i)
		}
	}
	return nil
}

func ids(it graph.Nodes) []int {
	var out []int
	for _, n := range graph.NodesOf(it) {
		out = append(out, int(n.ID()))
	}
	sort.Ints(out)
	return out
}

func insertSorted(s []int, v int) []int {
	s = append(s, v)
	sort.Ints(s)
	return s
}

// MotifLength returns the number of motif states.
func (top *Topology) MotifLength() int { return top.k }

// NumStates returns the total number of states.
func (top *Topology) NumStates() int { return top.k + 2 }

// Background5 returns the id of the 5' flank state.
func (top *Topology) Background5() int { return 0 }

// Background3 returns the id of the 3' flank state.
func (top *Topology) Background3() int { return top.k + 1 }

// Motif returns the id of motif state i, 0 <= i < k.
func (top *Topology) Motif(i int) int { return i + 1 }

// IsMotif returns true if state s is a motif state.
func (top *Topology) IsMotif(s int) bool { return s >= 1 && s <= top.k }

// Arc returns true if the transition from i to j is allowed.
func (top *Topology) Arc(i, j int) bool {
	if i == j {
		return top.selfLoop[i]
	}
	return top.g.HasEdgeFromTo(int64(i), int64(j))
}

// Initial returns true if a path may start in state i.
func (top *Topology) Initial(i int) bool { return top.initial[i] }

// Final returns true if a path may end in state i.
func (top *Topology) Final(i int) bool { return top.final[i] }

// Pred returns the predecessors of state j in increasing order.
func (top *Topology) Pred(j int) []int { return top.pred[j] }

// Succ returns the successors of state i in increasing order.
func (top *Topology) Succ(i int) []int { return top.succ[i] }

// StateName returns B5, M1..Mk or B3.
func (top *Topology) StateName(s int) string {
	switch {
	case s == top.Background5():
		return "B5"
	case s == top.Background3():
		return "B3"
	}
	return "M" + strconv.Itoa(s)
}

// Region returns the alignment region of state s.
func (top *Topology) Region(s int) string {
	switch {
	case s == top.Background5():
		return model.Flank5
	case s == top.Background3():
		return model.Flank3
	}
	return model.Motif
}

// PathFromStart returns the state path of length T with the motif starting
// at position s.
func (top *Topology) PathFromStart(T, s int) ([]int, error) {

	if s < 0 || s+top.k > T {
		return nil, fmt.Errorf("motif start [%d] out of range for length [%d] and motif length [%d]", s, T, top.k)
	}
	path := make([]int, T)
	for t := range path {
		switch {
		case t < s:
			path[t] = top.Background5()
		case t < s+top.k:
			path[t] = top.Motif(t - s)
		default:
			path[t] = top.Background3()
		}
	}
	return path, nil
}

// StartFromPath returns the position of the first motif state, or -1.
func (top *Topology) StartFromPath(path []int) int {
	for t, s := range path {
		if s == top.Motif(0) {
			return t
		}
	}
	return -1
}

// NumStarts returns the number of possible motif starts for length T.
func (top *Topology) NumStarts(T int) int {
	if T < top.k {
		return 0
	}
	return T - top.k + 1
}
