package density

import (
	"math"
	"testing"

	"github.com/akualab/bw"
	"gonum.org/v1/gonum/stat/distuv"
)

func makeGauden(t *testing.T) *Gauden {

	// One codebook, one stream, three 2-dim components.
	mean := [][][][]float64{{{{0, 0}, {3, 3}, {-2, 1}}}}
	variance := [][][][]float64{{{{1, 1}, {2, 0.5}, {1, 4}}}}
	g, e := NewGauden(mean, variance)
	bw.CheckError(t, e)
	return g
}

func TestLogProb(t *testing.T) {

	g := makeGauden(t)
	x := []float64{0.5, 2.0}

	// Diagonal Gaussian is a product of univariate normals.
	n0 := distuv.Normal{Mu: 3, Sigma: math.Sqrt(2)}
	n1 := distuv.Normal{Mu: 3, Sigma: math.Sqrt(0.5)}
	expected := n0.LogProb(x[0]) + n1.LogProb(x[1])
	bw.CompareFloats(t, expected, g.LogProb(0, 0, 1, x), "component 1", 1e-10)
}

func TestTopN(t *testing.T) {

	g := makeGauden(t)
	frame := [][]float64{{2.9, 3.1}}

	den, e := g.TopN(0, frame, 2)
	bw.CheckError(t, e)
	if len(den) != 1 || len(den[0]) != 2 {
		t.Fatalf("expected 1 stream with 2 densities, got %v", den)
	}
	if den[0][0].Index != 1 {
		t.Fatalf("expected component 1 first, got %d", den[0][0].Index)
	}
	if den[0][0].Score < den[0][1].Score {
		t.Fatalf("densities not sorted: %v", den[0])
	}

	all, e := g.TopN(0, frame, 0)
	bw.CheckError(t, e)
	if len(all[0]) != 3 {
		t.Fatalf("expected all 3 components, got %d", len(all[0]))
	}

	if _, e = g.TopN(1, frame, 2); e == nil {
		t.Fatal("expected out of range codebook error")
	}
	if _, e = g.TopN(0, [][]float64{{1}}, 2); e == nil {
		t.Fatal("expected dim mismatch error")
	}
}

func TestMixtureProbAndPosteriors(t *testing.T) {

	den := [][]Density{{{Index: 1, Score: math.Log(0.5)}, {Index: 0, Score: math.Log(0.25)}}}
	mixw := [][]float64{{0.2, 0.8}}
	norm := []float64{math.Log(0.5)}

	// (0.8*0.5 + 0.2*0.25)/0.5
	p := MixtureProb(den, norm, mixw)
	bw.CompareFloats(t, 0.9, p, "mixture prob", 1e-12)

	post := [][]float64{make([]float64, 2)}
	bw.CheckError(t, Posteriors(den, norm, mixw, 2.0, post))
	bw.CompareSliceFloat(t, []float64{2 * 0.4 / 0.45, 2 * 0.05 / 0.45}, post[0], "posteriors", 1e-12)

	zero := [][]float64{{0, 0}}
	if Posteriors(den, norm, zero, 1, post) == nil {
		t.Fatal("expected error for zero mixture weights")
	}
}
