package model

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/akualab/bw"
)

func flatSpec(semi bool) FlatSpec {
	return FlatSpec{
		Models:         []string{"AH", "B"},
		CD:             map[string]string{"B(AH,AH)": "B"},
		NumStates:      3,
		NumStreams:     1,
		VectorLength:   []int{2},
		NumDensities:   2,
		SemiContinuous: semi,
	}
}

func TestFlat(t *testing.T) {

	inv := Flat(flatSpec(false))
	bw.CheckError(t, inv.Validate())

	if inv.NumTMat() != 3 || inv.NumMixW() != 9 || inv.NumCodebooks() != 9 {
		t.Fatalf("unexpected sizes tmat=%d mixw=%d cb=%d", inv.NumTMat(), inv.NumMixW(), inv.NumCodebooks())
	}
	// CI models get the lowest ids.
	if inv.Models["AH"].TMat != 0 || inv.Models["B"].TMat != 1 {
		t.Fatalf("CI models not first: %+v %+v", inv.Models["AH"], inv.Models["B"])
	}
	cd := inv.Models["B(AH,AH)"]
	if cd.CI != "B" || cd.Senones[0] != 6 {
		t.Fatalf("bad CD def %+v", cd)
	}
	bw.CompareSliceFloat(t, []float64{0, 0.6, 0.4, 0}, inv.TMat[0][1], "tmat row", 1e-12)

	semi := Flat(flatSpec(true))
	bw.CheckError(t, semi.Validate())
	if semi.NumCodebooks() != 1 || semi.Codebook(8) != 0 {
		t.Fatalf("semi-continuous inventory must share one codebook")
	}
}

func TestValidate(t *testing.T) {

	inv := Flat(flatSpec(false))
	inv.TMat[0][0][0] = 0.9
	e := inv.Validate()
	if e == nil || !strings.Contains(e.Error(), "sums to") {
		t.Fatalf("expected row sum error, got %v", e)
	}

	inv = Flat(flatSpec(false))
	inv.Models["B(AH,AH)"].CI = "XX"
	if inv.Validate() == nil {
		t.Fatal("expected unknown CI model error")
	}

	inv = Flat(flatSpec(false))
	inv.Mean[2][0][1] = []float64{1}
	if inv.Validate() == nil {
		t.Fatal("expected dim error")
	}
}

func TestReadWriteFile(t *testing.T) {

	inv := Flat(flatSpec(true))
	fn := filepath.Join(t.TempDir(), "model", "inv.json")
	bw.CheckError(t, inv.WriteFile(fn))

	inv2, e := ReadFile(fn)
	bw.CheckError(t, e)
	if inv2.NumMixW() != inv.NumMixW() || inv2.Models["B"].TMat != inv.Models["B"].TMat {
		t.Fatalf("read back mismatch")
	}
	bw.CompareSliceFloat(t, inv.Mean[0][0][1], inv2.Mean[0][0][1], "mean", 1e-12)
	bw.CompareFloats(t, 1/float64(inv.NumDensities), inv2.MixW[0][0][0], "flat mixw", 1e-12)
	for _, v := range inv2.Var[0][0] {
		bw.CompareSliceFloat(t, []float64{1, 1}[:len(v)], v, "unit var", 1e-12)
	}

	// Invalid parameters are rejected on read.
	inv.TMat[0][0][0] = 2
	bw.CheckError(t, bw.WriteJSONFile(fn, inv))
	if _, e = ReadFile(fn); e == nil {
		t.Fatal("expected validation error")
	}
}
