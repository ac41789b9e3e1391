// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package accum evaluates a model loss and its gradient over a sample set
// by fork-join reduction, and exposes the result as an oracle.
//
// The samples of an update are split into contiguous shards, one per thread.
// Each shard owns a clone of the model and sums its contributions locally;
// the shards are reduced in index order on read, so a given thread count
// always produces the same result.
package accum

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/descent/pool"
)

// Model is the parametric function being trained.
// Output and Gradient may reuse internal buffers, so a model serves one goroutine at a time.
type Model interface {
	Size() int
	Params() []float64
	SetParams(p []float64)
	// Output computes the score of one input.
	Output(input []float64) []float64
	// Gradient back-propagates the loss gradient with respect to the last output
	// and returns the gradient with respect to the parameters.
	Gradient(outputGrad []float64) []float64
	Clone() Model
}

// Loss compares a score with its target.
type Loss interface {
	Value(target, score []float64) float64
	// Error is the human-interpretable error of one sample, e.g. a misclassification indicator.
	Error(target, score []float64) float64
	Gradient(target, score []float64) []float64
}

// Sample is one labelled observation.
type Sample struct {
	Input, Target []float64
}

// Mode selects what an update computes.
type Mode int

const (
	// ModeValue accumulates the loss and error only.
	ModeValue Mode = iota
	// ModeVGrad accumulates the gradient as well.
	ModeVGrad
)

// ErrNoSamples is returned for an empty sample set.
var ErrNoSamples = errors.New("empty sample set")

// shard holds the partial sums of one thread.
type shard struct {
	model  Model
	count  int
	value  float64   // Σℓ
	value2 float64   // Σℓ²
	grad   []float64 // Σ∇ℓ
	grad2  []float64 // Σℓ·∇ℓ, variational only
	errSum float64
	errSq  float64
}

func (s *shard) clear() {
	s.count, s.value, s.value2, s.errSum, s.errSq = 0, 0, 0, 0, 0
	for i := range s.grad {
		s.grad[i] = 0
	}
	for i := range s.grad2 {
		s.grad2[i] = 0
	}
}

// Accumulator implements the parallel reduction.
// It is not safe for concurrent use: one pass at a time per instance.
type Accumulator struct {
	loss    Loss
	samples []Sample
	pool    *pool.Pool
	threads int
	lambda  float64
	reg     Regularizer
	mode    Mode

	params []float64
	shards []*shard
}

// Option configures an Accumulator.
type Option func(a *Accumulator)

// WithPool runs the shards on p instead of the process-wide pool.
func WithPool(p *pool.Pool) Option { return func(a *Accumulator) { a.pool = p } }

// WithThreads sets the number of shards (default: the pool workers).
func WithThreads(n int) Option { return func(a *Accumulator) { a.threads = n } }

// WithLambda sets the regularization weight.
func WithLambda(lambda float64) Option { return func(a *Accumulator) { a.lambda = lambda } }

// WithRegularizer selects the regularizer (default L2).
func WithRegularizer(reg Regularizer) Option { return func(a *Accumulator) { a.reg = reg } }

// WithMode sets the initial mode.
func WithMode(mode Mode) Option { return func(a *Accumulator) { a.mode = mode } }

// New creates an accumulator starting from the current model parameters.
// The model is cloned once per thread and never mutated.
func New(model Model, loss Loss, samples []Sample, opts ...Option) (*Accumulator, error) {
	a := &Accumulator{loss: loss, samples: samples}
	for _, opt := range opts {
		opt(a)
	}
	if a.pool == nil {
		a.pool = pool.Default()
	}
	if a.threads == 0 {
		a.threads = a.pool.Workers()
	}

	switch {
	case model == nil:
		return nil, errors.New("model is required")
	case loss == nil:
		return nil, errors.New("loss is required")
	case model.Size() <= 0:
		return nil, errors.Errorf("model size %d must be positive", model.Size())
	case len(samples) == 0:
		return nil, ErrNoSamples
	case a.threads < 0:
		return nil, errors.Errorf("thread count %d must be positive", a.threads)
	case a.mode != ModeValue && a.mode != ModeVGrad:
		return nil, errors.Errorf("invalid mode %d", a.mode)
	case !regularizers.Valid(a.reg):
		return nil, errors.Errorf("invalid regularizer %d", a.reg)
	}
	if err := a.SetLambda(a.lambda); err != nil {
		return nil, err
	}

	n := model.Size()
	a.params = append(make([]float64, 0, n), model.Params()...)
	a.shards = make([]*shard, a.threads)
	for i := range a.shards {
		a.shards[i] = &shard{model: model.Clone(), grad: make([]float64, n)}
		if a.reg == Variational {
			a.shards[i].grad2 = make([]float64, n)
		}
	}
	return a, nil
}

// Size returns the number of parameters.
func (a *Accumulator) Size() int { return len(a.params) }

// Threads returns the number of shards.
func (a *Accumulator) Threads() int { return len(a.shards) }

// Mode returns the current mode.
func (a *Accumulator) Mode() Mode { return a.mode }

// SetMode switches between value and value+gradient accumulation.
// It must be called between passes.
func (a *Accumulator) SetMode(mode Mode) { a.mode = mode }

// Regularizer returns the selected regularizer.
func (a *Accumulator) Regularizer() Regularizer { return a.reg }

// Lambda returns the regularization weight.
func (a *Accumulator) Lambda() float64 { return a.lambda }

// SetLambda sets the regularization weight λ ∈ [0, 1].
func (a *Accumulator) SetLambda(lambda float64) error {
	if !(lambda >= 0 && lambda <= 1) {
		return errors.Errorf("regularization weight %g must lie in [0, 1]", lambda)
	}
	a.lambda = lambda
	return nil
}

// Params returns the parameters of the current pass.
func (a *Accumulator) Params() []float64 { return a.params }

// Reset starts a new pass at params, clearing every statistic.
func (a *Accumulator) Reset(params []float64) {
	if len(params) != len(a.params) {
		panic("parameter dimension not match model")
	}
	copy(a.params, params)
	for _, s := range a.shards {
		s.model.SetParams(params)
		s.clear()
	}
}

// Update accumulates every sample.
func (a *Accumulator) Update() {
	a.UpdateRange(0, len(a.samples))
}

// UpdateRange accumulates the samples [begin, end).
func (a *Accumulator) UpdateRange(begin, end int) {
	if begin < 0 || end > len(a.samples) || begin > end {
		panic("sample range out of bounds")
	}
	k := len(a.shards)
	n := end - begin
	a.pool.ForEach(k, func(i int) {
		lo, hi := begin+i*n/k, begin+(i+1)*n/k
		a.shards[i].update(a.samples[lo:hi], a.loss, a.mode)
	})
}

func (s *shard) update(samples []Sample, loss Loss, mode Mode) {
	for _, smp := range samples {
		score := s.model.Output(smp.Input)
		v := loss.Value(smp.Target, score)
		s.value += v
		s.value2 += v * v
		e := loss.Error(smp.Target, score)
		s.errSum += e
		s.errSq += e * e
		if mode == ModeVGrad {
			g := s.model.Gradient(loss.Gradient(smp.Target, score))
			floats.Add(s.grad, g)
			if s.grad2 != nil {
				floats.AddScaled(s.grad2, v, g)
			}
		}
		s.count++
	}
}

// Count returns the number of samples accumulated since the last Reset.
func (a *Accumulator) Count() (count int) {
	for _, s := range a.shards {
		count += s.count
	}
	return
}

// Value returns the regularized mean loss, NaN when nothing was accumulated.
func (a *Accumulator) Value() float64 {
	count, value, value2 := 0, 0.0, 0.0
	for _, s := range a.shards {
		count += s.count
		value += s.value
		value2 += s.value2
	}
	if count == 0 {
		return math.NaN()
	}
	n := float64(count)
	switch a.reg {
	case None:
		return value / n
	case Variational:
		return a.lambda*value2/n + (1-a.lambda)*(value/n)*(value/n)
	}
	return (1-a.lambda)*value/n + a.lambda*floats.Dot(a.params, a.params)/2
}

// VGrad stores the gradient of Value into g and returns Value.
// It panics unless the pass ran in ModeVGrad.
func (a *Accumulator) VGrad(g []float64) float64 {
	if a.mode != ModeVGrad {
		panic("gradient not accumulated in value mode")
	}
	for i := range g {
		g[i] = 0
	}
	count, value := 0, 0.0
	for _, s := range a.shards {
		count += s.count
		value += s.value
		floats.Add(g, s.grad)
	}
	if count == 0 {
		return a.Value()
	}
	n := float64(count)
	switch a.reg {
	case None:
		floats.Scale(1/n, g)
	case Variational:
		// 2λ/N·Σℓ∇ℓ + 2(1-λ)/N²·Σℓ·Σ∇ℓ
		floats.Scale(2*(1-a.lambda)*value/(n*n), g)
		for _, s := range a.shards {
			floats.AddScaled(g, 2*a.lambda/n, s.grad2)
		}
	default:
		floats.Scale((1-a.lambda)/n, g)
		floats.AddScaled(g, a.lambda, a.params)
	}
	return a.Value()
}

// ErrorAvg returns the mean sample error.
func (a *Accumulator) ErrorAvg() float64 {
	count, sum := 0, 0.0
	for _, s := range a.shards {
		count += s.count
		sum += s.errSum
	}
	return sum / float64(count)
}

// ErrorVar returns the variance of the sample errors.
func (a *Accumulator) ErrorVar() float64 {
	count, sum, sq := 0, 0.0, 0.0
	for _, s := range a.shards {
		count += s.count
		sum += s.errSum
		sq += s.errSq
	}
	avg := sum / float64(count)
	return math.Max(0, sq/float64(count)-avg*avg)
}
