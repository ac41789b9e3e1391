// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accum

import (
	"github.com/pkg/errors"

	"github.com/curioloop/descent/oracle"
)

// Oracle evaluates the regularized loss over the whole sample set.
func (a *Accumulator) Oracle() oracle.Oracle { return fullOracle{a} }

type fullOracle struct{ a *Accumulator }

func (o fullOracle) Size() int { return o.a.Size() }

func (o fullOracle) Value(x []float64) float64 {
	a := o.a
	a.SetMode(ModeValue)
	a.Reset(x)
	a.Update()
	return a.Value()
}

func (o fullOracle) ValueGrad(x, g []float64) float64 {
	a := o.a
	a.SetMode(ModeVGrad)
	a.Reset(x)
	a.Update()
	return a.VGrad(g)
}

// Minibatch is a stochastic oracle: ValueGrad evaluates the next mini-batch,
// cycling through the samples in order, while Value evaluates the whole set.
type Minibatch struct {
	fullOracle
	size, next int
}

// Minibatch creates a stochastic oracle drawing size samples per gradient.
func (a *Accumulator) Minibatch(size int) (*Minibatch, error) {
	if size <= 0 || size > len(a.samples) {
		return nil, errors.Errorf("batch size %d must lie in [1, %d]", size, len(a.samples))
	}
	return &Minibatch{fullOracle: fullOracle{a}, size: size}, nil
}

// BatchSize returns the number of samples per gradient.
func (m *Minibatch) BatchSize() int { return m.size }

func (m *Minibatch) ValueGrad(x, g []float64) float64 {
	a := m.a
	a.SetMode(ModeVGrad)
	a.Reset(x)

	n := len(a.samples)
	begin := m.next
	end := begin + m.size
	if end <= n {
		a.UpdateRange(begin, end)
	} else {
		a.UpdateRange(begin, n)
		a.UpdateRange(0, end-n)
	}
	m.next = end % n
	return a.VGrad(g)
}
