// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/oracle"
)

// Initializer selects how the first trial step t₀ of a line search is chosen.
type Initializer int

const (
	InitDefault Initializer = iota
	// Unit always tries t₀ = 1, the natural step of quasi-Newton directions.
	Unit
	// Quadratic interpolates fₖ₋₁, fₖ and φ′(0) to match the previous decrease:
	// t₀ = min(1, 1.01·2(fₖ - fₖ₋₁)/φ′(0)).
	Quadratic
	// Consistent keeps the first-order change of the previous iteration:
	// t₀ = tₖ₋₁·φ′ₖ₋₁(0)/φ′ₖ(0).
	Consistent
)

var initializers = enum.New("line-search initializer",
	enum.Pair[Initializer]{Value: Unit, ID: "unit"},
	enum.Pair[Initializer]{Value: Quadratic, ID: "quadratic"},
	enum.Pair[Initializer]{Value: Consistent, ID: "consistent"},
)

func (i Initializer) String() string { return initializers.String(i) }

// ParseInitializer maps a string id to an Initializer.
func ParseInitializer(id string) (Initializer, error) { return initializers.Parse(id) }

// Initializers lists the ids of all initializers.
func Initializers() []string { return initializers.IDs() }

// Init produces the first trial step of successive line searches.
type Init struct {
	method Initializer
	first  bool
	prevF  float64
	prevDg float64
}

// NewInit creates the step initializer of a fresh run.
func NewInit(method Initializer) *Init {
	return &Init{method: method, first: true}
}

// Step returns t₀ for the search starting at s along s.D.
// It must be called exactly once per iteration, before the line search.
func (in *Init) Step(s *oracle.State) (t0 float64) {
	dg := floats.Dot(s.G, s.D)

	switch in.method {
	case Quadratic, Consistent:
		if in.first {
			// scale the first step so that ‖t₀·d‖₂ ≤ 1
			t0 = math.Min(one, one/floats.Norm(s.D, 2))
		} else if in.method == Quadratic {
			t0 = math.Min(one, 1.01*two*(s.F-in.prevF)/dg)
		} else {
			t0 = s.T * in.prevDg / dg
		}
	default:
		t0 = one
	}

	if !(t0 > zero) || math.IsInf(t0, 0) || math.IsNaN(t0) {
		t0 = one
	}

	in.first = false
	in.prevF = s.F
	in.prevDg = dg
	return
}
