// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"encoding/json"
	"fmt"
)

// Region names of a motif alignment.
const (
	Flank5 = "flank5"
	Motif  = "motif"
	Flank3 = "flank3"
)

// ANode is an alignment node. Assumptions:
//   - Root node (no parent) covers the full interval.
//   - A child node interval is included in the parent interval.
//   - Concatenation of children intervals must match exactly the parent interval.
type ANode struct {
	// Start index (inclusive)
	Start int `json:"s"`
	// End index (exclusive)
	End int `json:"e"`
	// Name of unit being aligned.
	Name string `json:"n"`
	// Pointers to child alignments one level down.
	Children []*ANode `json:"c,omitempty"`
}

// NewANode creates a new ANode.
func NewANode(start, end int, name string) *ANode {
	return &ANode{Start: start, End: end, Name: name, Children: []*ANode{}}
}

// AppendChild creates a new ANode and appends to the receiver node.
// The start index of the new node equals the end index of the last child.
// Returns an error if end < start OR end > parent's end.
func (a *ANode) AppendChild(end int, name string) (*ANode, error) {

	start := a.Start
	if len(a.Children) != 0 {
		start = a.Children[len(a.Children)-1].End
	}
	if end < start {
		return nil, fmt.Errorf("end index [%d] must be greater than start index [%d]", end, start)
	}
	if end > a.End {
		return nil, fmt.Errorf("end index [%d] must be less or equal than parent end index [%d]", end, a.End)
	}
	child := NewANode(start, end, name)
	a.Children = append(a.Children, child)
	return child, nil
}

// Find returns the first node with the given name in depth-first order.
func (a *ANode) Find(name string) *ANode {
	if a.Name == name {
		return a
	}
	for _, c := range a.Children {
		if n := c.Find(name); n != nil {
			return n
		}
	}
	return nil
}

// IsValid returns true if the children of every node tile the node's interval.
func (a *ANode) IsValid() bool {

	if len(a.Children) == 0 {
		return a.Start <= a.End
	}
	last := a.Start
	for _, v := range a.Children {
		if !v.IsValid() || v.Start != last {
			return false
		}
		last = v.End
	}
	return last == a.End
}

// String prints an ANode as json.
func (a *ANode) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return err.Error()
	}
	return string(b)
}

// AlignLabels converts a slice of strings to a slice of ANodes.
// Consecutive elements with the same label are merged into an ANode.
func AlignLabels(labels []string) []*ANode {
	if len(labels) == 0 {
		return nil
	}
	lastLabel := labels[0]
	anode := NewANode(0, 0, labels[0])
	anodes := []*ANode{}
	for idx, v := range labels {
		if v != lastLabel {
			anode.End = idx
			anodes = append(anodes, anode)
			anode = NewANode(idx, 0, v)
			lastLabel = v
		}
	}
	anode.End = len(labels)
	anodes = append(anodes, anode)

	return anodes
}

// MotifAlignment builds a two level alignment tree for a state path. Level
// one holds the flank and motif regions, level two the individual states.
// The region of each state is given by region(state).
func MotifAlignment(id string, path []int, stateName func(int) string, region func(int) string) (*ANode, error) {

	root := NewANode(0, len(path), id)
	regions := make([]string, len(path))
	for t, s := range path {
		regions[t] = region(s)
	}
	for _, r := range AlignLabels(regions) {
		child, err := root.AppendChild(r.End, r.Name)
		if err != nil {
			return nil, err
		}
		names := make([]string, r.End-r.Start)
		for t := r.Start; t < r.End; t++ {
			names[t-r.Start] = stateName(path[t])
		}
		for _, n := range AlignLabels(names) {
			if _, err := child.AppendChild(r.Start+n.End, n.Name); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}
