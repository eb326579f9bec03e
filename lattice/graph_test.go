package lattice

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akualab/bw"
)

func TestGraph(t *testing.T) {

	g, e := ReadGraph(strings.NewReader(graphData))
	bw.CheckError(t, e)
	if g.Name != "southcourt" || len(g.Edges) != 11 || g.Edges[0].To.Name != "DINING" {
		t.Fatalf("bad graph %+v", g)
	}

	fn := filepath.Join(t.TempDir(), "graph-out.yaml")
	bw.CheckError(t, g.WriteFile(fn))
	g2, e := ReadGraphFile(fn)
	bw.CheckError(t, e)
	if len(g2.Edges) != len(g.Edges) {
		t.Fatalf("expected %d edges, got %d", len(g.Edges), len(g2.Edges))
	}

	// Get transition probs.
	nodes, tpm := g.NodesAndProbs()
	if len(nodes) != 11 || nodes[0].Name != "BACKYARD" {
		t.Fatalf("bad nodes %v", nodes)
	}
	for i := range expectedProbs {
		bw.CompareSliceFloat(t, expectedProbs[i], tpm[i], "Error in row", 0.0001)
	}
	if len(tpm[5]) > 0 {
		t.Fatalf("Expected nil, got %v.", tpm[5])
	}
}

const graphData string = `
name: southcourt
edges:
  - {from: BACKYARD, to: DINING, weight: 2.0}
  - {from: BACKYARD, to: LIVING, weight: 1.0}
  - {from: BACKYARD, to: KITCHEN, weight: 1.0}
  - {from: BATH1, to: BED1, weight: 3.0}
  - {from: BATH1, to: BED2, weight: 2.0}
  - {from: BATH2, to: BED4, weight: 2.0}
  - {from: BATH2, to: BED2, weight: 2.0}
  - {from: BATH3, to: BED5, weight: 2.0}
  - {from: BATH3, to: DINING, weight: 3.0}
  - {from: BED1, to: BED4, weight: 2.0}
  - {from: BED1, to: BATH1, weight: 2.0}
`

var expectedProbs = [][]float64{
	{0, 0, 0, 0, 0, 0, 0, 0, 0.5, 0.25, 0.25},
	{0, 0, 0, 0, 0.6, 0.4, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0.5, 0.5, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0.4, 0.6, 0, 0},
}

func TestGraphLattice(t *testing.T) {

	inv := testInventory()
	g := NewGraph("loop")
	g.AddEdge(Start, "A", 1)
	g.AddEdge("A", "B+A", 1)
	g.AddEdge("B+A", "A", 1)
	g.AddEdge("B+A", End, 3)
	lat, e := g.Lattice(inv)
	bw.CheckError(t, e)
	if lat.Len() != 7 {
		t.Fatalf("expected 7 states, got %d", lat.Len())
	}

	// The loop back into A comes from the exit of B+A.
	back := lat.States[0].Prev[len(lat.States[0].Prev)-1]
	if back.From != 5 || back.Row != None {
		t.Fatalf("bad loop arc %+v", back)
	}
	bw.CompareFloats(t, 0.25, back.Prob, "loop prob", 1e-12)
	final := lat.States[lat.Final()]
	if len(final.Prev) != 1 || final.Prev[0].From != 5 {
		t.Fatalf("bad final arcs %+v", final.Prev)
	}
	bw.CompareFloats(t, 0.75, final.Prev[0].Prob, "end prob", 1e-12)

	var buf bytes.Buffer
	bw.CheckError(t, g.Write(&buf))
	if !strings.Contains(buf.String(), "<s>") {
		t.Fatalf("bad yaml:\n%s", buf.String())
	}

	bad := NewGraph("fork")
	bad.AddEdge(Start, "A", 1)
	bad.AddEdge(Start, "B", 1)
	bad.AddEdge("A", End, 1)
	bad.AddEdge("B", End, 1)
	if _, e = bad.Lattice(inv); e == nil {
		t.Fatal("expected error for more than one entry node")
	}
	bad = NewGraph("zero")
	bad.AddEdge(Start, "A", 0)
	bad.AddEdge("A", End, 1)
	if _, e = bad.Lattice(inv); e == nil {
		t.Fatal("expected error for zero weight")
	}
	bad = NewGraph("noend")
	bad.AddEdge(Start, "A", 1)
	if _, e = bad.Lattice(inv); e == nil {
		t.Fatal("expected error for unreachable end")
	}
}

func TestFillerBuilder(t *testing.T) {

	inv := testInventory()
	b := &FillerBuilder{Inv: inv, Filler: "B", Prob: 0.25}
	lat, e := b.Build([]string{"A", "A"})
	bw.CheckError(t, e)

	// A:0 [0 1 x2], B:2 [3 4 x5], A:1 [6 7 x8], final 9.
	if lat.Len() != 10 {
		t.Fatalf("expected 10 states, got %d", lat.Len())
	}
	var glue []Arc
	for _, a := range lat.States[6].Prev {
		if a.Row == None {
			glue = append(glue, a)
		}
	}
	if len(glue) != 2 || glue[0].From != 2 || glue[1].From != 5 {
		t.Fatalf("bad arcs into second word %+v", glue)
	}
	bw.CompareFloats(t, 0.75, glue[0].Prob, "skip filler", 1e-12)
	bw.CompareFloats(t, 1, glue[1].Prob, "after filler", 1e-12)
	into := lat.States[3].Prev[len(lat.States[3].Prev)-1]
	if into.From != 2 {
		t.Fatalf("bad arc into filler %+v", into)
	}
	bw.CompareFloats(t, 0.25, into.Prob, "filler prob", 1e-12)

	// Without a filler the lattice matches the model builder plus a
	// final state after the last exit.
	b.Prob = 0
	lat, e = b.Build([]string{"A", "B+A"})
	bw.CheckError(t, e)
	ref, e := (&ModelBuilder{Inv: inv}).Build([]string{"A", "B+A"})
	bw.CheckError(t, e)
	if lat.Len() != ref.Len()+1 {
		t.Fatalf("expected %d states, got %d", ref.Len()+1, lat.Len())
	}
	for i := range ref.States {
		if lat.States[i].MixW != ref.States[i].MixW || len(lat.States[i].Prev) != len(ref.States[i].Prev) {
			t.Fatalf("state %d differs: %+v != %+v", i, lat.States[i], ref.States[i])
		}
	}

	b.Prob = 1
	if _, e = b.Build([]string{"A"}); e == nil {
		t.Fatal("expected probability error")
	}
	b.Prob = 0.5
	if _, e = b.Build([]string{"C"}); e == nil {
		t.Fatal("expected unknown model error")
	}
}
