// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"math"
)

const (
	p5         = 0.5
	p66        = 0.66
	xTrapLower = 1.1
	xTrapUpper = 4.0
)

const (
	stageArmijo = 1
	stageWolfe  = 2
)

// SearchTask is the reverse-communication state of MoreThuenteStep.
type SearchTask int

const (
	SearchStart SearchTask = 0
	SearchConv  SearchTask = 1 << (4 + iota)
	SearchFG
	SearchError
	SearchWarn
)

const (
	SearchErrOverLower = SearchError | (1 + iota)
	SearchErrOverUpper
	SearchErrNegInitG
	SearchErrNegAlpha
	SearchErrNegBeta
	SearchErrNegEps
	SearchErrLower
	SearchErrUpper
	SearchWarnRoundErr = SearchWarn | (1 + iota)
	SearchWarnReachEps
	SearchWarnReachMax
	SearchWarnReachMin
)

// SearchTol holds the tolerances of the Moré-Thuente search.
type SearchTol struct {
	// Alpha is the sufficient decrease tolerance (c₁).
	Alpha float64
	// Beta is the curvature tolerance (c₂).
	Beta float64
	// Eps is the relative width below which the bracket is considered collapsed.
	Eps float64
	// Lower and Upper bound the step.
	Lower, Upper float64
}

// endpoint of the uncertainty interval: step, value and derivative.
type endpoint struct {
	t, f, g float64
}

// SearchCtx is the state kept between successive MoreThuenteStep calls.
type SearchCtx struct {
	bracket bool
	stage   int
	origin  endpoint
	x, y    endpoint // x has the least value, y is the other end
	width   [2]float64
	bound   [2]float64
}

// MoreThuenteStep (dcsrch) advances the search with the value f and
// derivative g observed at step t, and returns the next trial step.
//
// The caller starts with task = SearchStart, f = φ(0), g = φ′(0) and a positive
// initial estimate t, then evaluates φ at the returned step while the task is SearchFG.
// On SearchConv the step satisfies sufficient decrease and the strong curvature
// condition. On SearchWarn it satisfies at most sufficient decrease.
//
// The interval [x, y] is chosen to contain a minimizer of the auxiliary
// ψ(t) = φ(t) - φ(0) - c₁·t·φ′(0) until a step with ψ(t) ≤ 0 and φ′(t) ≥ 0 is seen,
// after which it targets a minimizer of φ itself.
//
// see "Line search algorithms with guaranteed sufficient decrease", Moré & Thuente (1994).
func MoreThuenteStep(f, g, t float64, task SearchTask, tol *SearchTol, ctx *SearchCtx) (float64, SearchTask) {

	if task == SearchStart {
		switch {
		case t < tol.Lower:
			task = SearchErrOverLower
		case t > tol.Upper:
			task = SearchErrOverUpper
		case g >= zero:
			task = SearchErrNegInitG
		case tol.Alpha < zero:
			task = SearchErrNegAlpha
		case tol.Beta < zero:
			task = SearchErrNegBeta
		case tol.Eps < zero:
			task = SearchErrNegEps
		case tol.Lower < zero:
			task = SearchErrLower
		case tol.Upper < tol.Lower:
			task = SearchErrUpper
		}
		if task&SearchError > 0 {
			return t, task
		}

		ctx.bracket = false
		ctx.stage = stageArmijo
		ctx.origin = endpoint{zero, f, g}
		ctx.x, ctx.y = ctx.origin, ctx.origin
		ctx.width[0] = tol.Upper - tol.Lower
		ctx.width[1] = ctx.width[0] / p5
		ctx.bound = [2]float64{zero, t + xTrapUpper*t}
		return t, SearchFG
	}

	gTest := tol.Alpha * ctx.origin.g
	fTest := ctx.origin.f + t*gTest

	lo, hi := ctx.bound[0], ctx.bound[1]
	switch {
	case ctx.bracket && (t <= lo || t >= hi):
		task = SearchWarnRoundErr
	case ctx.bracket && hi-lo <= tol.Eps*hi:
		task = SearchWarnReachEps
	case t == tol.Upper && f <= fTest && g <= gTest:
		task = SearchWarnReachMax
	case t == tol.Lower && (f > fTest || g >= gTest):
		task = SearchWarnReachMin
	case f <= fTest && math.Abs(g) <= tol.Beta*(-ctx.origin.g):
		task = SearchConv
	}
	if task&(SearchWarn|SearchConv) > 0 {
		return t, task
	}

	if ctx.stage == stageArmijo && f <= fTest && g >= zero {
		ctx.stage = stageWolfe
	}

	trial := endpoint{t, f, g}
	if ctx.stage == stageArmijo && f <= ctx.x.f && f > fTest {
		// work on ψ while no point satisfies the Armijo condition with φ′ ≥ 0
		shift := func(e endpoint) endpoint { return endpoint{e.t, e.f - e.t*gTest, e.g - gTest} }
		unshift := func(e endpoint) endpoint { return endpoint{e.t, e.f + e.t*gTest, e.g + gTest} }
		x, y := shift(ctx.x), shift(ctx.y)
		t = safeguardedStep(&x, &y, shift(trial), &ctx.bracket, ctx.bound)
		ctx.x, ctx.y = unshift(x), unshift(y)
	} else {
		t = safeguardedStep(&ctx.x, &ctx.y, trial, &ctx.bracket, ctx.bound)
	}

	// force sufficient shrinking of the bracket by bisection
	if ctx.bracket {
		if math.Abs(ctx.y.t-ctx.x.t) >= p66*ctx.width[1] {
			t = ctx.x.t + p5*(ctx.y.t-ctx.x.t)
		}
		ctx.width[1] = ctx.width[0]
		ctx.width[0] = math.Abs(ctx.y.t - ctx.x.t)
	}

	if ctx.bracket {
		lo, hi = math.Min(ctx.x.t, ctx.y.t), math.Max(ctx.x.t, ctx.y.t)
	} else {
		lo, hi = t+xTrapLower*(t-ctx.x.t), t+xTrapUpper*(t-ctx.x.t)
	}
	ctx.bound = [2]float64{lo, hi}

	t = math.Min(math.Max(t, tol.Lower), tol.Upper)

	if ctx.bracket && (t <= lo || t >= hi || hi-lo <= tol.Eps*hi) {
		t = ctx.x.t
	}
	return t, SearchFG
}

// cubicTheta returns the θ and unsigned γ terms of the cubic interpolating a and b.
func cubicTheta(a, b endpoint) (theta, gamma float64) {
	theta = three*(a.f-b.f)/(b.t-a.t) + a.g + b.g
	s := math.Max(math.Max(math.Abs(theta), math.Abs(a.g)), math.Abs(b.g))
	gamma = s * math.Sqrt(math.Max(zero, (theta/s)*(theta/s)-(a.g/s)*(b.g/s)))
	return
}

// safeguardedStep (dcstep) computes a new trial step from the current bracket
// [x, y] and the trial point p, and updates the bracket.
//
// x holds the least value seen so far with derivative pointing towards p.
// When bracket is true, p.t lies strictly between x.t and y.t.
func safeguardedStep(x, y *endpoint, p endpoint, bracket *bool, bound [2]float64) float64 {

	var next float64
	lo, hi := bound[0], bound[1]
	sgnd := p.g * (x.g / math.Abs(x.g))

	switch {
	case p.f > x.f:
		// Higher value: the minimum is bracketed.
		// Take the cubic step when closer to x, otherwise the mean of cubic and quadratic steps.
		theta, gamma := cubicTheta(*x, p)
		if p.t < x.t {
			gamma = -gamma
		}
		r := ((gamma - x.g) + theta) / (((gamma - x.g) + gamma) + p.g)
		cubic := x.t + r*(p.t-x.t)
		quad := x.t + ((x.g/((x.f-p.f)/(p.t-x.t)+x.g))/two)*(p.t-x.t)
		if math.Abs(cubic-x.t) < math.Abs(quad-x.t) {
			next = cubic
		} else {
			next = cubic + (quad-cubic)/two
		}
		*bracket = true

	case sgnd < zero:
		// Lower value with derivatives of opposite sign: the minimum is bracketed.
		// Take the cubic step when farther from p, otherwise the secant step.
		theta, gamma := cubicTheta(*x, p)
		if p.t > x.t {
			gamma = -gamma
		}
		r := ((gamma - p.g) + theta) / (((gamma - p.g) + gamma) + x.g)
		cubic := p.t + r*(x.t-p.t)
		secant := p.t + (p.g/(p.g-x.g))*(x.t-p.t)
		if math.Abs(cubic-p.t) > math.Abs(secant-p.t) {
			next = cubic
		} else {
			next = secant
		}
		*bracket = true

	case math.Abs(p.g) < math.Abs(x.g):
		// Lower value, same derivative sign, decreasing magnitude.
		// The cubic step is used only when the cubic tends to infinity
		// in the step direction or its minimum lies beyond p.
		theta, gamma := cubicTheta(*x, p)
		if p.t > x.t {
			gamma = -gamma
		}
		r := ((gamma - p.g) + theta) / ((gamma + (x.g - p.g)) + gamma)
		var cubic float64
		if r < zero && gamma != zero {
			cubic = p.t + r*(x.t-p.t)
		} else if p.t > x.t {
			cubic = hi
		} else {
			cubic = lo
		}
		secant := p.t + (p.g/(p.g-x.g))*(x.t-p.t)
		if *bracket {
			if math.Abs(cubic-p.t) < math.Abs(secant-p.t) {
				next = cubic
			} else {
				next = secant
			}
			if p.t > x.t {
				next = math.Min(p.t+p66*(y.t-p.t), next)
			} else {
				next = math.Max(p.t+p66*(y.t-p.t), next)
			}
		} else {
			if math.Abs(cubic-p.t) > math.Abs(secant-p.t) {
				next = cubic
			} else {
				next = secant
			}
			next = math.Max(lo, math.Min(hi, next))
		}

	default:
		// Lower value, same derivative sign, non-decreasing magnitude.
		// Extrapolate to a bound unless bracketed, then use the cubic on [p, y].
		if *bracket {
			theta := three*(p.f-y.f)/(y.t-p.t) + y.g + p.g
			s := math.Max(math.Max(math.Abs(theta), math.Abs(y.g)), math.Abs(p.g))
			gamma := s * math.Sqrt((theta/s)*(theta/s)-(y.g/s)*(p.g/s))
			if p.t > y.t {
				gamma = -gamma
			}
			r := ((gamma - p.g) + theta) / (((gamma - p.g) + gamma) + y.g)
			next = p.t + r*(y.t-p.t)
		} else if p.t > x.t {
			next = hi
		} else {
			next = lo
		}
	}

	if p.f > x.f {
		*y = p
	} else {
		if sgnd < zero {
			*y = *x
		}
		*x = p
	}
	return next
}

// moreThuente drives MoreThuenteStep with the searcher tolerances.
func (ls *Searcher) moreThuente(t0 float64) bool {
	p := &ls.p
	tol := SearchTol{Alpha: ls.c1, Beta: ls.c2, Eps: 0.1, Lower: zero, Upper: maxStep}
	t, task := MoreThuenteStep(p.f0, p.dg0, math.Min(t0, maxStep), SearchStart, &tol, &ls.mt)
	for task == SearchFG && p.trials < maxMinpack {
		if !p.reset(t) {
			return false
		}
		t, task = MoreThuenteStep(p.f, p.dg, t, task, &tol, &ls.mt)
	}
	switch {
	case task == SearchConv:
		return true
	case task&SearchWarn > 0:
		// keep the last trial when it still decreases enough
		return p.t > zero && p.armijo(ls.c1)
	}
	return false
}
