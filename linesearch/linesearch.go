// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linesearch finds a step length along a descent direction.
//
// Given xₖ, dₖ and (fₖ, gₖ) it searches φ(t) = f(xₖ + t·dₖ) for a step t > 0 satisfying
//   - sufficient decrease (Armijo): φ(t) ≤ φ(0) + c₁·t·φ′(0)
//   - curvature (Wolfe): φ′(t) ≥ c₂·φ′(0)
//   - strong curvature (strong Wolfe): |φ′(t)| ≤ c₂·|φ′(0)|
//
// see "Numerical optimization", Nocedal & Wright, 2nd edition, chapter 3.
package linesearch

import (
	"math"

	"github.com/pkg/errors"

	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/oracle"
)

const (
	zero  = 0.0
	one   = 1.0
	two   = 2.0
	three = 3.0
)

// Strategy selects the acceptance test and how trial steps are generated.
type Strategy int

const (
	StrategyDefault Strategy = iota
	// BacktrackArmijo shrinks t geometrically until the Armijo condition holds.
	BacktrackArmijo
	// BacktrackWolfe brackets t until the Armijo and Wolfe conditions hold.
	BacktrackWolfe
	// BacktrackStrongWolfe brackets t until the Armijo and strong Wolfe conditions hold.
	BacktrackStrongWolfe
	// InterpolationBisection brackets a strong Wolfe step then bisects the bracket.
	InterpolationBisection
	// InterpolationCubic brackets a strong Wolfe step then cubic-interpolates inside the bracket.
	InterpolationCubic
	// MoreThuente uses the safeguarded MINPACK search (dcsrch).
	MoreThuente
)

var strategies = enum.New("line-search strategy",
	enum.Pair[Strategy]{Value: BacktrackArmijo, ID: "backtrack-armijo"},
	enum.Pair[Strategy]{Value: BacktrackWolfe, ID: "backtrack-wolfe"},
	enum.Pair[Strategy]{Value: BacktrackStrongWolfe, ID: "backtrack-strong-wolfe"},
	enum.Pair[Strategy]{Value: InterpolationBisection, ID: "interpolation-bisection"},
	enum.Pair[Strategy]{Value: InterpolationCubic, ID: "interpolation-cubic"},
	enum.Pair[Strategy]{Value: MoreThuente, ID: "more-thuente"},
)

func (s Strategy) String() string { return strategies.String(s) }

// ParseStrategy maps a string id to a Strategy.
func ParseStrategy(id string) (Strategy, error) { return strategies.Parse(id) }

// Strategies lists the ids of all strategies.
func Strategies() []string { return strategies.IDs() }

// trial budgets per strategy family
const (
	maxBacktrack = 64
	maxBracket   = 20
	maxZoom      = 64
	maxMinpack   = 20
	// largest step tried while bracketing
	maxStep = 1e+10
)

// Result of a line search.
type Result struct {
	// T is the accepted step (zero on failure).
	T float64
	// OK is false when no acceptable step was found within the trial budget.
	OK bool
	// Trials counts the function and gradient evaluations.
	Trials int
}

// Searcher performs line searches with a fixed strategy.
// It keeps scratch buffers, so separate goroutines need separate searchers.
type Searcher struct {
	strategy Strategy
	c1, c2   float64
	p        step
	mt       SearchCtx
}

// New creates a searcher. The tolerances must satisfy 0 < c1 < c2 < 1,
// c2 is ignored by BacktrackArmijo.
func New(strategy Strategy, c1, c2 float64) (*Searcher, error) {
	switch {
	case !strategies.Valid(strategy):
		return nil, errors.Errorf("invalid line-search strategy %d", strategy)
	case !(zero < c1 && c1 < one):
		return nil, errors.Errorf("sufficient decrease tolerance c1=%g must lie in (0, 1)", c1)
	case strategy != BacktrackArmijo && !(c1 < c2 && c2 < one):
		return nil, errors.Errorf("curvature tolerance c2=%g must lie in (c1=%g, 1)", c2, c1)
	}
	return &Searcher{strategy: strategy, c1: c1, c2: c2}, nil
}

// Strategy returns the configured strategy.
func (ls *Searcher) Strategy() Strategy { return ls.strategy }

// Search looks for a step along s.D starting from the trial step t0.
//
// On success s.X, s.F, s.G and s.T describe the accepted point xₖ + t·dₖ,
// otherwise s is left untouched.
func (ls *Searcher) Search(o oracle.Oracle, s *oracle.State, t0 float64) (r Result) {
	p := &ls.p
	p.init(o, s)

	// Line search is impossible when the directional derivative ≥ 0.
	if !(p.dg0 < zero) || math.IsNaN(s.F) || math.IsInf(s.F, 0) {
		return
	}
	if !(t0 > zero) || math.IsInf(t0, 0) || math.IsNaN(t0) {
		t0 = one
	}

	switch ls.strategy {
	case BacktrackArmijo, BacktrackWolfe, BacktrackStrongWolfe:
		r.OK = ls.backtrack(t0)
	case InterpolationBisection, InterpolationCubic:
		r.OK = ls.interpolate(t0)
	case MoreThuente:
		r.OK = ls.moreThuente(t0)
	}

	r.Trials = p.trials
	if r.OK {
		r.T = p.t
		p.commit()
	}
	return
}
