// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batch

import (
	"github.com/curioloop/descent/internal/enum"
	"github.com/curioloop/descent/linesearch"
)

// Method selects how the descent direction is computed.
type Method int

const (
	// GD steepest descent dₖ = -gₖ.
	GD Method = iota + 1
	// CGD nonlinear conjugate gradient, Hestenes-Stiefel update.
	CGD
	// CGDHS Hestenes-Stiefel: β = gₖᵀyₖ / dₖ₋₁ᵀyₖ
	CGDHS
	// CGDFR Fletcher-Reeves: β = ‖gₖ‖² / ‖gₖ₋₁‖²
	CGDFR
	// CGDPR Polak-Ribière: β = gₖᵀyₖ / ‖gₖ₋₁‖²
	CGDPR
	// CGDCD Conjugate Descent: β = ‖gₖ‖² / -dₖ₋₁ᵀgₖ₋₁
	CGDCD
	// CGDLS Liu-Storey: β = -gₖᵀyₖ / dₖ₋₁ᵀgₖ₋₁
	CGDLS
	// CGDDY Dai-Yuan: β = ‖gₖ‖² / dₖ₋₁ᵀyₖ
	CGDDY
	// CGDN Hager-Zhang: β = (yₖ - 2dₖ₋₁‖yₖ‖²/dₖ₋₁ᵀyₖ)ᵀgₖ / dₖ₋₁ᵀyₖ
	CGDN
	// CGDDYCD hybrid Dai-Yuan / Conjugate Descent: β = ‖gₖ‖² / max(dₖ₋₁ᵀyₖ, -dₖ₋₁ᵀgₖ₋₁)
	CGDDYCD
	// CGDDYHS hybrid Dai-Yuan / Hestenes-Stiefel: β = max(0, min(βDY, βHS))
	CGDDYHS
	// LBFGS limited-memory BFGS with two-loop recursion.
	LBFGS
)

var methods = enum.New("batch solver",
	enum.Pair[Method]{Value: GD, ID: "gd"},
	enum.Pair[Method]{Value: CGD, ID: "cgd"},
	enum.Pair[Method]{Value: CGDHS, ID: "cgd-hs"},
	enum.Pair[Method]{Value: CGDFR, ID: "cgd-fr"},
	enum.Pair[Method]{Value: CGDPR, ID: "cgd-pr"},
	enum.Pair[Method]{Value: CGDCD, ID: "cgd-cd"},
	enum.Pair[Method]{Value: CGDLS, ID: "cgd-ls"},
	enum.Pair[Method]{Value: CGDDY, ID: "cgd-dy"},
	enum.Pair[Method]{Value: CGDN, ID: "cgd-n"},
	enum.Pair[Method]{Value: CGDDYCD, ID: "cgd-dycd"},
	enum.Pair[Method]{Value: CGDDYHS, ID: "cgd-dyhs"},
	enum.Pair[Method]{Value: LBFGS, ID: "lbfgs"},
)

func (m Method) String() string { return methods.String(m) }

// ParseMethod maps a string id to a Method.
func ParseMethod(id string) (Method, error) { return methods.Parse(id) }

// Methods lists the ids of all batch methods.
func Methods() []string { return methods.IDs() }

func (m Method) conjugate() bool { return m >= CGD && m <= CGDDYHS }

// searchDefaults returns the line-search setup used when the problem leaves it unset.
func (m Method) searchDefaults() (init linesearch.Initializer, strategy linesearch.Strategy, c1, c2 float64) {
	switch {
	case m == LBFGS:
		return linesearch.Unit, linesearch.InterpolationCubic, 1e-4, 0.9
	case m.conjugate():
		return linesearch.Quadratic, linesearch.InterpolationCubic, 1e-4, 0.1
	default:
		return linesearch.Quadratic, linesearch.BacktrackWolfe, 1e-4, 0.9
	}
}
