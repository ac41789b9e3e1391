// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accum

import "github.com/curioloop/descent/internal/enum"

// Regularizer selects the penalty blended into the mean loss by λ.
type Regularizer int

const (
	// L2 penalizes the parameter norm: (1-λ)·mean ℓ + λ·‖p‖²/2.
	L2 Regularizer = iota
	// None reports the plain mean loss and ignores λ.
	None
	// Variational penalizes the spread of the sample losses:
	// λ·mean ℓ² + (1-λ)·(mean ℓ)².
	Variational
)

var regularizers = enum.New("regularizer",
	enum.Pair[Regularizer]{Value: None, ID: "none"},
	enum.Pair[Regularizer]{Value: L2, ID: "l2"},
	enum.Pair[Regularizer]{Value: Variational, ID: "variational"},
)

func (r Regularizer) String() string { return regularizers.String(r) }

// ParseRegularizer maps a string id to a Regularizer.
func ParseRegularizer(id string) (Regularizer, error) { return regularizers.Parse(id) }

// Regularizers lists the ids of all regularizers.
func Regularizers() []string { return regularizers.IDs() }
