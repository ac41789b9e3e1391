// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// history is the ring buffer of the last m correction pairs
// sᵢ = xᵢ₊₁ - xᵢ and yᵢ = gᵢ₊₁ - gᵢ with ρᵢ = 1/sᵢᵀyᵢ.
type history struct {
	s, y   [][]float64
	ts, ty []float64 // scratch pair
	rho    []float64
	alpha  []float64
	head   int // index of the oldest pair
	size   int
}

func (h *history) init(n, m int) {
	h.s = make([][]float64, m)
	h.y = make([][]float64, m)
	for i := 0; i < m; i++ {
		h.s[i] = make([]float64, n)
		h.y[i] = make([]float64, n)
	}
	h.ts = make([]float64, n)
	h.ty = make([]float64, n)
	h.rho = make([]float64, m)
	h.alpha = make([]float64, m)
	h.clear()
}

func (h *history) clear() {
	h.head, h.size = 0, 0
}

// push appends the pair from (px, pg) to (x, g), evicting the oldest when full.
// The update is skipped when the curvature condition sᵀy > ε·yᵀy fails,
// keeping the inverse Hessian estimate positive definite.
func (h *history) push(px, x, pg, g []float64) {
	m := len(h.s)
	if m == 0 {
		return
	}
	k := (h.head + h.size) % m
	s, y := h.ts, h.ty
	floats.SubTo(s, x, px)
	floats.SubTo(y, g, pg)

	sy, yy := floats.Dot(s, y), floats.Dot(y, y)
	if !(sy > epsilon*yy) {
		return
	}
	h.s[k], h.ts = s, h.s[k]
	h.y[k], h.ty = y, h.y[k]
	h.rho[k] = 1 / sy
	if h.size == m {
		h.head = (h.head + 1) % m
	} else {
		h.size++
	}
}

var epsilon = math.Nextafter(1, 2) - 1

// direction stores d = -H·g computed with the two-loop recursion
// and returns false when the history is empty.
//
// see "Numerical optimization", Nocedal & Wright, algorithm 7.4.
func (h *history) direction(g, d []float64) bool {
	if h.size == 0 {
		return false
	}
	m := len(h.s)
	copy(d, g)

	for j := h.size - 1; j >= 0; j-- {
		i := (h.head + j) % m
		h.alpha[i] = h.rho[i] * floats.Dot(h.s[i], d)
		floats.AddScaled(d, -h.alpha[i], h.y[i])
	}

	// H₀ = γI with γ = sᵀy / yᵀy of the newest pair
	k := (h.head + h.size - 1) % m
	floats.Scale(1/(h.rho[k]*floats.Dot(h.y[k], h.y[k])), d)

	for j := 0; j < h.size; j++ {
		i := (h.head + j) % m
		b := h.rho[i] * floats.Dot(h.y[i], d)
		floats.AddScaled(d, h.alpha[i]-b, h.s[i])
	}

	floats.Scale(-1, d)
	return true
}
