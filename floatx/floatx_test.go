package floatx

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestMakeFloat2D(t *testing.T) {

	s := MakeFloat2D(3, 2)
	s[1][1] = 5
	s[2] = append(s[2], 7) // must not clobber the next row.
	if len(s) != 3 || len(s[0]) != 2 || s[1][1] != 5 {
		t.Fatalf("bad shape or value: %v", s)
	}
	Clear2D(s)
	if s[1][1] != 0 || s[2][0] != 0 {
		t.Fatalf("Clear2D left values: %v", s)
	}
	if HasNaN(s) {
		t.Fatalf("unexpected NaN")
	}
	s[0][1] = math.NaN()
	if !HasNaN(s) {
		t.Fatalf("NaN not detected")
	}
}

func TestLogAdd(t *testing.T) {

	a, b := math.Log(0.25), math.Log(0.5)
	if v := LogAdd(a, b); math.Abs(v-math.Log(0.75)) > 1e-12 {
		t.Fatalf("LogAdd: expected %f, got %f", math.Log(0.75), v)
	}
	if v := LogAdd(LogZero, b); v != b {
		t.Fatalf("LogAdd with LogZero: expected %f, got %f", b, v)
	}
	if v := LogAdd(LogZero, LogZero); !math.IsInf(v, -1) {
		t.Fatalf("LogAdd of two zeros: got %f", v)
	}
}

func TestLogSumExp(t *testing.T) {

	s := []float64{math.Log(0.1), math.Log(0.2), math.Log(0.7)}
	if v := LogSumExp(s); math.Abs(v) > 1e-12 {
		t.Fatalf("expected 0, got %g", v)
	}
	if v := LogSumExp([]float64{LogZero, LogZero}); !math.IsInf(v, -1) {
		t.Fatalf("expected -Inf, got %g", v)
	}
	if v := LogSumExp(nil); !math.IsInf(v, -1) {
		t.Fatalf("expected -Inf for empty slice, got %g", v)
	}
}

func TestNormalize(t *testing.T) {

	s := []float64{1, 3}
	if err := Normalize(s); err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(s, []float64{.25, .75}, 1e-12) {
		t.Fatalf("unexpected %v", s)
	}
	if err := Normalize([]float64{0, 0}); err != ErrZeroSum {
		t.Fatalf("expected ErrZeroSum, got %v", err)
	}

	l := []float64{0, math.Log(3)}
	z, err := LogNormalize(l)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(z-math.Log(4)) > 1e-12 {
		t.Fatalf("bad normalization constant %f", z)
	}
	if v := math.Exp(l[0]) + math.Exp(l[1]); math.Abs(v-1) > 1e-12 {
		t.Fatalf("row does not sum to one: %f", v)
	}
}
