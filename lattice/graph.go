// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/akualab/bw/model"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Names of the entry and exit nodes of a graph.
const (
	Start = "<s>"
	End   = "</s>"
)

// Node is a model instance in a graph. The model name is the node name up
// to the first colon so a model can appear more than once: "SIL:1", "SIL:2".
type Node struct {
	Name string `yaml:"name" json:"name"`
}

// Model returns the name of the model of the node.
func (n *Node) Model() string {
	if i := strings.Index(n.Name, ":"); i >= 0 {
		return n.Name[:i]
	}
	return n.Name
}

// Edge is a weighted connection between nodes. Weights leaving a node are
// normalized to transition probabilities.
type Edge struct {
	FromName string  `yaml:"from" json:"from"`
	From     *Node   `yaml:"-" json:"-"`
	ToName   string  `yaml:"to" json:"to"`
	To       *Node   `yaml:"-" json:"-"`
	Weight   float64 `yaml:"weight" json:"weight"`
}

// Graph is a word or phone graph whose nodes are models.
type Graph struct {
	Name  string  `yaml:"name" json:"name"`
	Edges []*Edge `yaml:"edges" json:"edges"`
	nodes map[string]*Node
}

// NewGraph returns an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{Name: name, nodes: make(map[string]*Node)}
}

// AddEdge adds a weighted edge creating the nodes as needed.
func (g *Graph) AddEdge(from, to string, weight float64) {
	e := &Edge{FromName: from, ToName: to, Weight: weight}
	g.Edges = append(g.Edges, e)
	e.From = g.node(from)
	e.To = g.node(to)
}

func (g *Graph) node(name string) *Node {
	if g.nodes == nil {
		g.nodes = make(map[string]*Node)
	}
	n, ok := g.nodes[name]
	if !ok {
		n = &Node{Name: name}
		g.nodes[name] = n
	}
	return n
}

// ReadGraph reads a graph from an io.Reader.
func ReadGraph(r io.Reader) (*Graph, error) {

	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	g := NewGraph("")
	if err = yaml.Unmarshal(b, g); err != nil {
		return nil, err
	}
	g.createNodes()
	return g, nil
}

// ReadGraphFile reads a graph from a file.
func ReadGraphFile(fn string) (*Graph, error) {

	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraph(f)
}

// Write writes the graph to an io.Writer.
func (g *Graph) Write(w io.Writer) error {

	b, err := yaml.Marshal(g)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteFile writes the graph to a file.
func (g *Graph) WriteFile(fn string) error {

	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err = g.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Create the nodes given the names.
func (g *Graph) createNodes() {

	for _, e := range g.Edges {
		e.From = g.node(e.FromName)
		e.To = g.node(e.ToName)
	}
	glog.V(4).Infof("graph %s has %d nodes", g.Name, len(g.nodes))
}

// NodesAndProbs returns the nodes sorted by name and the transition
// probabilities between them. Rows of nodes without successors are nil.
func (g *Graph) NodesAndProbs() ([]*Node, [][]float64) {

	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.Name] = i
	}

	probs := make([][]float64, len(nodes))
	for _, e := range g.Edges {
		row := index[e.FromName]
		if probs[row] == nil {
			probs[row] = make([]float64, len(nodes))
		}
		probs[row][index[e.ToName]] += e.Weight
	}
	for _, row := range probs {
		var sum float64
		for _, v := range row {
			sum += v
		}
		for j := range row {
			if sum > 0 {
				row[j] /= sum
			}
		}
	}
	return nodes, probs
}

type link struct {
	to   string
	prob float64
}

// links returns the normalized outgoing transitions of every node in edge order.
func (g *Graph) links() (map[string][]link, error) {

	sum := make(map[string]float64)
	for _, e := range g.Edges {
		if !(e.Weight > 0) {
			return nil, errors.Errorf("lattice: edge %s -> %s has weight %g", e.FromName, e.ToName, e.Weight)
		}
		if e.FromName == End || e.ToName == Start {
			return nil, errors.Errorf("lattice: bad edge %s -> %s", e.FromName, e.ToName)
		}
		sum[e.FromName] += e.Weight
	}
	out := make(map[string][]link)
	for _, e := range g.Edges {
		out[e.FromName] = append(out[e.FromName], link{e.ToName, e.Weight / sum[e.FromName]})
	}
	return out, nil
}

// Lattice expands the graph into a state lattice. Every node contributes
// the emitting states of its model and a non-emitting exit state. The
// start node must have a single successor which becomes the entry state;
// the end node becomes the final state. Nodes not reachable from the
// start node are ignored.
func (g *Graph) Lattice(inv *model.Inventory) (*Lattice, error) {

	out, err := g.links()
	if err != nil {
		return nil, err
	}
	entry := out[Start]
	if len(entry) != 1 || entry[0].to == End {
		return nil, errors.Errorf("lattice: start node of graph [%s] must have a single model successor", g.Name)
	}

	// Visit nodes breadth first from the entry node.
	order := []string{entry[0].to}
	seen := map[string]bool{entry[0].to: true}
	for i := 0; i < len(order); i++ {
		for _, l := range out[order[i]] {
			if l.to != End && !seen[l.to] {
				seen[l.to] = true
				order = append(order, l.to)
			}
		}
	}

	lat := &Lattice{}
	first := make(map[string]int, len(order))
	exit := make(map[string]int, len(order))
	for _, name := range order {
		n := g.node(name)
		f, x, err := appendModel(lat, inv, n.Model())
		if err != nil {
			return nil, err
		}
		first[name], exit[name] = f, x
	}

	final := NonEmitting()
	for _, name := range order {
		for _, l := range out[name] {
			arc := Arc{From: exit[name], Prob: l.prob, Row: None, Col: None}
			if l.to == End {
				final.Prev = append(final.Prev, arc)
				continue
			}
			s := &lat.States[first[l.to]]
			s.Prev = append(s.Prev, arc)
		}
	}
	if len(final.Prev) == 0 {
		return nil, errors.Errorf("lattice: end node of graph [%s] is not reachable", g.Name)
	}
	lat.States = append(lat.States, final)

	if err = lat.Validate(); err != nil {
		return nil, err
	}
	glog.V(2).Infof("expanded graph [%s] with %d nodes into %d states", g.Name, len(order), lat.Len())
	return lat, nil
}

// FillerBuilder builds a lattice with an optional filler model, such as
// silence, between words. Each word is expanded with the assigner.
type FillerBuilder struct {
	Inv      *model.Inventory
	Assigner Assigner
	// Filler model name. No filler is inserted when empty.
	Filler string
	// Probability of visiting the filler after a word, in [0,1).
	Prob float64
}

// Graph returns the word graph for a transcript.
func (b *FillerBuilder) Graph(transcript []string) (*Graph, error) {

	if len(transcript) == 0 {
		return nil, errors.Errorf("lattice: empty transcript")
	}
	if b.Prob < 0 || b.Prob >= 1 {
		return nil, errors.Errorf("lattice: filler probability %g not in [0,1)", b.Prob)
	}
	assigner := b.Assigner
	if assigner == nil {
		assigner = DirectAssigner{}
	}

	g := NewGraph(strings.Join(transcript, " "))
	k := 0
	node := func(m string) string {
		name := fmt.Sprintf("%s:%d", m, k)
		k++
		return name
	}
	last := Start
	for i, word := range transcript {
		names, err := assigner.Assign([]string{word})
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, errors.Errorf("lattice: no models for word [%s]", word)
		}
		var prev string
		for j, m := range names {
			cur := node(m)
			switch {
			case j > 0:
				g.AddEdge(prev, cur, 1)
			case i == 0 || len(b.Filler) == 0 || b.Prob == 0:
				g.AddEdge(last, cur, 1)
			default:
				filler := node(b.Filler)
				g.AddEdge(last, filler, b.Prob)
				g.AddEdge(last, cur, 1-b.Prob)
				g.AddEdge(filler, cur, 1)
			}
			prev = cur
		}
		last = prev
	}
	g.AddEdge(last, End, 1)
	return g, nil
}

// Build implements Builder.
func (b *FillerBuilder) Build(transcript []string) (*Lattice, error) {

	g, err := b.Graph(transcript)
	if err != nil {
		return nil, err
	}
	return g.Lattice(b.Inv)
}
