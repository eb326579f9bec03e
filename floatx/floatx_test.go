package floatx

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestApply(t *testing.T) {

	in := []float64{1, 2, 3}
	out := make([]float64, 3)
	Apply(SetValueFunc(2), in, out)
	if !floats.Equal(out, []float64{2, 2, 2}) {
		t.Fatalf("set value failed, got %v", out)
	}
	Apply(Log, in, nil)
	if !floats.EqualApprox(in, []float64{0, math.Ln2, math.Log(3)}, 1e-15) {
		t.Fatalf("in place apply failed, got %v", in)
	}
}

func TestShape2D(t *testing.T) {

	r, c := Shape2D(MakeFloat2D(3, 4))
	if r != 3 || c != 4 {
		t.Fatalf("expected 3x4, got %dx%d", r, c)
	}
	defer func() {
		if recover() != ErrLength {
			t.Fatal("expected ErrLength panic for ragged slice")
		}
	}()
	Shape2D([][]float64{{1, 2}, {3}})
}

func TestArena(t *testing.T) {

	a := NewArena(8)
	x := a.Floats(5)
	y := a.Floats(5) // does not fit, moves to a second block
	for i := range x {
		x[i] = 1
		y[i] = 2
	}
	if !floats.Equal(x, []float64{1, 1, 1, 1, 1}) {
		t.Fatalf("slices overlap: %v", x)
	}
	if cap(x) != 5 {
		t.Fatalf("expected capped slice, got cap %d", cap(x))
	}
	if a.Len() != 10 {
		t.Fatalf("expected 10 elements in use, got %d", a.Len())
	}

	a.Reset()
	if a.Len() != 0 {
		t.Fatalf("expected empty arena after reset, got %d", a.Len())
	}
	z := a.Floats(5)
	if floats.Sum(z) != 0 {
		t.Fatalf("reused block not zeroed: %v", z)
	}

	big := a.Floats(100)
	if len(big) != 100 {
		t.Fatalf("oversized alloc has len %d", len(big))
	}

	m := a.Float2D(2, 3)
	m[1][2] = 7
	if len(m) != 2 || len(m[0]) != 3 || m[1][2] != 7 || m[0][2] != 0 {
		t.Fatalf("bad 2D slice %v", m)
	}

	ints := a.Ints(4)
	ints[3] = 9
	if len(ints) != 4 || ints[0] != 0 {
		t.Fatalf("bad int slice %v", ints)
	}
}
