// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"
)

// Node is a state of the exported graph with its most likely symbols.
type Node struct {
	Name      string       `yaml:"name" json:"name"`
	Emissions []SymbolProb `yaml:"emissions,omitempty" json:"emissions,omitempty"`
}

// SymbolProb is a symbol name with its emission probability.
type SymbolProb struct {
	Symbol string  `yaml:"symbol" json:"symbol"`
	Prob   float64 `yaml:"prob" json:"prob"`
}

// Edge is a weighted arc between two named nodes.
type Edge struct {
	FromName string  `yaml:"from" json:"from"`
	From     *Node   `yaml:"-" json:"-"`
	ToName   string  `yaml:"to" json:"to"`
	To       *Node   `yaml:"-" json:"-"`
	Weight   float64 `yaml:"weight" json:"weight"`
}

// Graph is the export format consumed by the model renderer.
type Graph struct {
	Name        string  `yaml:"name" json:"name"`
	MotifLength int     `yaml:"motif_length" json:"motif_length"`
	Nodes       []*Node `yaml:"nodes" json:"nodes"`
	Edges       []*Edge `yaml:"edges" json:"edges"`
	nodes       map[string]*Node
}

// Graph exports the state network with transition probabilities as edge
// weights. Each node lists the top emission symbols, at most maxSymbols
// (all when maxSymbols <= 0).
func (p *Params) Graph(maxSymbols int) *Graph {

	top := p.top
	g := &Graph{Name: p.name, MotifLength: top.MotifLength()}
	for i := 0; i < top.NumStates(); i++ {
		node := &Node{Name: top.StateName(i)}
		em := p.Emissions(i)
		idx := make([]int, len(em))
		for k := range idx {
			idx[k] = k
		}
		sort.SliceStable(idx, func(a, b int) bool { return em[idx[a]] > em[idx[b]] })
		if maxSymbols > 0 && maxSymbols < len(idx) {
			idx = idx[:maxSymbols]
		}
		for _, k := range idx {
			node.Emissions = append(node.Emissions, SymbolProb{Symbol: p.symbolName(k), Prob: em[k]})
		}
		g.Nodes = append(g.Nodes, node)
	}
	for i := 0; i < top.NumStates(); i++ {
		for _, j := range top.Succ(i) {
			g.Edges = append(g.Edges, &Edge{
				FromName: top.StateName(i),
				ToName:   top.StateName(j),
				Weight:   p.trans.At(i, j),
			})
		}
	}
	g.createNodes()
	return g
}

func (p *Params) symbolName(k int) string {
	if p.alphabet == nil {
		return strconv.Itoa(k)
	}
	return p.alphabet.SymbolName(k)
}

// WriteGraphFile writes the graph of p as yaml.
func (p *Params) WriteGraphFile(fn string, maxSymbols int) error {
	return p.Graph(maxSymbols).WriteFile(fn)
}

// Write writes the graph to an io.Writer.
func (g *Graph) Write(w io.Writer) error {

	b, err := yaml.Marshal(g)
	if err != nil {
		return err
	}
	_, e := w.Write(b)
	return e
}

// WriteFile writes the graph to a file.
func (g *Graph) WriteFile(fn string) error {

	if e := os.MkdirAll(filepath.Dir(fn), 0755); e != nil {
		return e
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	if ee := g.Write(f); ee != nil {
		return ee
	}
	return f.Close()
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Weights returns the outgoing edge weights by node name.
func (g *Graph) Weights() map[string]map[string]float64 {
	w := make(map[string]map[string]float64)
	for _, e := range g.Edges {
		if w[e.FromName] == nil {
			w[e.FromName] = make(map[string]float64)
		}
		w[e.FromName][e.ToName] = e.Weight
	}
	return w
}

// Link edges to nodes. Creates nodes that are only referenced by edges.
func (g *Graph) createNodes() {

	g.nodes = make(map[string]*Node)
	for _, n := range g.Nodes {
		g.nodes[n.Name] = n
	}
	for _, v := range g.Edges {
		for _, name := range []string{v.FromName, v.ToName} {
			if _, ok := g.nodes[name]; !ok {
				n := &Node{Name: name}
				g.nodes[name] = n
				g.Nodes = append(g.Nodes, n)
			}
		}
		v.From = g.nodes[v.FromName]
		v.To = g.nodes[v.ToName]
	}
	glog.V(2).Infof("graph [%s] has %d nodes and %d edges", g.Name, len(g.nodes), len(g.Edges))
}
