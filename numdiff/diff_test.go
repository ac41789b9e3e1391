package numdiff

import (
	"math"
	"slices"
	"testing"
)

func objTrig(x []float64) float64 {
	return x[0]*math.Sin(x[1]) + x[1]*math.Cos(x[0]) + math.Pow(x[0], 3)*math.Pow(x[1], -0.5)
}

func gradTrig(x []float64) []float64 {
	return []float64{
		math.Sin(x[1]) - x[1]*math.Sin(x[0]) + 3*math.Pow(x[0], 2)*math.Pow(x[1], -0.5),
		x[0]*math.Cos(x[1]) + math.Cos(x[0]) - 0.5*math.Pow(x[0], 3)*math.Pow(x[1], -1.5),
	}
}

func relativeEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol*math.Max(1, math.Abs(b[i])) {
			return false
		}
	}
	return true
}

func TestCheck(t *testing.T) {
	x := []float64{1, 2}
	g := make([]float64, 2)

	cases := []ApproxSpec{
		{N: 0, Object: objTrig},
		{N: 2, Object: objTrig, Method: Method(7)},
		{N: 2},
		{N: 3, Object: objTrig},
	}
	for i, as := range cases {
		if err := as.Diff(x, g); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestForwardAndCentral(t *testing.T) {
	x0 := []float64{1.0, 0.5}
	expect := gradTrig(x0)

	for _, tc := range []struct {
		method Method
		tol    float64
	}{
		{Forward, 1e-6},
		{Central, 1e-9},
	} {
		as := ApproxSpec{N: 2, Object: objTrig, Method: tc.method}
		got := make([]float64, 2)
		x := slices.Clone(x0)
		if err := as.Diff(x, got); err != nil {
			t.Fatal(err)
		}
		switch {
		case !relativeEqual(got, expect, tc.tol):
			t.Fatalf("method %d: unexpected gradient %v, want %v", tc.method, got, expect)
		case !slices.Equal(x, x0):
			t.Fatal("x0 must be restored")
		}
	}
}

func TestAbsoluteStep(t *testing.T) {
	as := ApproxSpec{N: 3, Object: objTrig, Method: Forward, RelStep: 1e-3}
	x0 := []float64{0, 2, -4}
	_ = as.Check(x0, make([]float64, 3))
	as.absoluteStep(x0)

	// relative step vanishes at 0 and falls back to the automatic one
	expect := []float64{stepEps(Forward), 2e-3, -4e-3}
	if !relativeEqual(as.absStep, expect, 1e-12) {
		t.Fatalf("unexpected steps %v", as.absStep)
	}

	as.Method = Central
	as.RelStep, as.AbsStep = 0, -0.25
	as.absoluteStep(x0)
	for _, h := range as.absStep {
		if h != 0.25 {
			t.Fatalf("central step sign must be ignored, got %v", as.absStep)
		}
	}
}

func TestGradientShortcut(t *testing.T) {
	x := []float64{0.3, 1.7}
	g, err := Gradient(objTrig, x)
	if err != nil {
		t.Fatal(err)
	}
	if !relativeEqual(g, gradTrig(x), 1e-8) {
		t.Fatalf("unexpected gradient %v", g)
	}
}
