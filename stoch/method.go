// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stoch

import "github.com/curioloop/descent/internal/enum"

// Method selects the stochastic update rule.
type Method int

const (
	// SG plain stochastic gradient: x ← x - αₜ·g
	SG Method = iota + 1
	// SGA stochastic gradient with an exponential moving average of the gradients.
	SGA
	// SIA stochastic gradient reporting the running mean of the iterates.
	SIA
	// AG Nesterov accelerated gradient with momentum (k-1)/(k+2).
	AG
	// AGFR accelerated gradient restarted when the objective value increases,
	// costing one Value query per step.
	AGFR
	// AGGR accelerated gradient restarted when the step points uphill: gᵀ(xₖ₊₁ - xₖ) > 0.
	AGGR
	// ADAGRAD per-coordinate step α₀/(√Gₜ + ε) with Gₜ the sum of squared gradients.
	ADAGRAD
	// ADADELTA per-coordinate step from decayed averages of squared gradients and updates.
	ADADELTA
)

var methods = enum.New("stochastic solver",
	enum.Pair[Method]{Value: SG, ID: "sg"},
	enum.Pair[Method]{Value: SGA, ID: "sga"},
	enum.Pair[Method]{Value: SIA, ID: "sia"},
	enum.Pair[Method]{Value: AG, ID: "ag"},
	enum.Pair[Method]{Value: AGFR, ID: "agfr"},
	enum.Pair[Method]{Value: AGGR, ID: "aggr"},
	enum.Pair[Method]{Value: ADAGRAD, ID: "adagrad"},
	enum.Pair[Method]{Value: ADADELTA, ID: "adadelta"},
)

func (m Method) String() string { return methods.String(m) }

// ParseMethod maps a string id to a Method.
func ParseMethod(id string) (Method, error) { return methods.Parse(id) }

// Methods lists the ids of all stochastic methods.
func Methods() []string { return methods.IDs() }

func (m Method) accelerated() bool { return m == AG || m == AGFR || m == AGGR }
