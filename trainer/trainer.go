// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trainer

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/curioloop/descent/accum"
	"github.com/curioloop/descent/logger"
	"github.com/curioloop/descent/oracle"
	"github.com/curioloop/descent/pool"
	"github.com/curioloop/descent/registry"
	"github.com/curioloop/descent/tune"
)

// Data is the sample split of a training run.
type Data struct {
	Train, Valid, Test []accum.Sample
}

// Trainer runs hyperparameter tuning followed by a final training run.
type Trainer struct {
	cfg    Config
	reg    accum.Regularizer
	solver Solver
	pool   *pool.Pool
	logger *logger.Logger
}

// New validates cfg and resolves its solver in solvers.
func New(cfg Config, solvers *registry.Registry[Solver], log *logger.Logger) (*Trainer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	reg, err := accum.ParseRegularizer(cfg.Regularizer)
	if err != nil {
		return nil, err
	}
	solver, err := solvers.Get(cfg.Solver)
	if err != nil {
		return nil, err
	}
	tr := &Trainer{cfg: cfg, reg: reg, solver: solver, pool: pool.Default(), logger: log}
	if cfg.Threads > 0 {
		tr.pool = pool.New(cfg.Threads)
	}
	// fail fast on invalid solver settings
	if _, err = solver.New(&tr.cfg, tr.setting(1), nil); err != nil {
		return nil, err
	}
	return tr, nil
}

func (tr *Trainer) setting(samples int) Setting {
	cfg := &tr.cfg
	set := Setting{Alpha0: cfg.Alpha0, Decay: cfg.Decay, Lambda: cfg.Lambda, BatchSize: cfg.BatchSize}
	if set.BatchSize == 0 {
		set.BatchSize = min(32, samples)
	}
	return tr.epochSize(set, samples)
}

func (tr *Trainer) epochSize(set Setting, samples int) Setting {
	set.BatchSize = max(1, min(set.BatchSize, samples))
	set.EpochSize = tr.cfg.EpochSize
	if set.EpochSize == 0 {
		set.EpochSize = (samples + set.BatchSize - 1) / set.BatchSize
	}
	return set
}

// maxDecay bounds the tuned decay, which adadelta requires below 1.
const maxDecay = 0.99

// tunable is a hyperparameter searched in log10 space.
type tunable struct {
	name           string
	minLog, maxLog float64
	apply          func(set *Setting, param float64)
}

// tunables lists the enabled searches. Refined brackets may leave the
// initial range, so apply clamps the parameters that have a hard bound.
func (tr *Trainer) tunables(samples int) (ts []tunable) {
	cfg := &tr.cfg
	if cfg.Tune.Lambda && tr.reg != accum.None {
		ts = append(ts, tunable{"lambda", -6, 0, func(s *Setting, p float64) { s.Lambda = math.Min(p, 1) }})
	}
	if !tr.solver.Stochastic {
		return
	}
	if cfg.Tune.Alpha0 && cfg.Solver != "adadelta" {
		ts = append(ts, tunable{"alpha0", -4, 0, func(s *Setting, p float64) { s.Alpha0 = p }})
	}
	if cfg.Tune.Decay {
		ts = append(ts, tunable{"decay", -4, -0.01, func(s *Setting, p float64) { s.Decay = math.Min(p, maxDecay) }})
	}
	if cfg.Tune.BatchSize {
		ts = append(ts, tunable{"batch_size", 0, math.Log10(float64(samples)), func(s *Setting, p float64) {
			s.BatchSize = int(math.Round(p))
		}})
	}
	return
}

// Train tunes the selected hyperparameters one after another, each search
// keeping the best values found so far, then trains with the final setting.
// The returned result is the better of the final run and the best tuned run.
// The model is only used as a prototype and is never modified.
func (tr *Trainer) Train(model accum.Model, loss accum.Loss, data Data) (*Result, error) {
	switch {
	case model == nil || loss == nil:
		return nil, errors.New("model and loss are required")
	case len(data.Train) == 0:
		return nil, errors.Wrap(accum.ErrNoSamples, "training")
	case len(data.Valid) == 0:
		return nil, errors.Wrap(accum.ErrNoSamples, "validation")
	}

	set, tuned, err := tr.tune(model, loss, data)
	if err != nil {
		return nil, err
	}
	result, err := tr.run(model, loss, data, set, tr.logger)
	if err != nil {
		return nil, err
	}
	if tuned != nil {
		result.Merge(tuned)
	}
	return result, nil
}

// tune runs the enabled searches and returns the final setting with the
// best result seen along the way, nil when nothing is tuned.
func (tr *Trainer) tune(model accum.Model, loss accum.Loss, data Data) (Setting, *Result, error) {
	log := tr.logger
	n := len(data.Train)
	set := tr.setting(n)

	var tuned *Result
	for _, t := range tr.tunables(n) {
		var (
			mu     sync.Mutex
			runErr error
		)
		op := func(param float64) *Result {
			s := set
			t.apply(&s, param)
			r, err := tr.run(model, loss, data, tr.epochSize(s, n), nil)
			if err != nil {
				mu.Lock()
				runErr = err
				mu.Unlock()
				return NewResult(*tr.cfg.Patience)
			}
			return r
		}
		spec := tune.Spec{MinLog: t.minLog, MaxLog: t.maxLog, EpsLog: tr.cfg.Tune.EpsLog,
			Splits: tr.cfg.Tune.Splits, Logger: log}

		var best tune.Record[*Result]
		var err error
		less := func(a, b *Result) bool { return a.Less(b) }
		if tr.cfg.Tune.Parallel {
			best, err = tune.Log10PoolFunc(tr.pool, op, less, spec)
		} else {
			best, err = tune.Log10Func(op, less, spec)
		}
		if err == nil {
			err = runErr
		}
		if err != nil {
			return set, nil, errors.Wrapf(err, "tune %s", t.name)
		}
		t.apply(&set, best.Param())
		set = tr.epochSize(set, n)
		if tuned == nil {
			tuned = best.Result
		} else {
			tuned.Merge(best.Result)
		}
		if log.Enable(logger.LogLast) {
			log.Log("tuned %s= %.4g: %v\n", t.name, best.Param(), best.Result)
		}
	}
	return set, tuned, nil
}

// run trains once with a fixed setting.
func (tr *Trainer) run(model accum.Model, loss accum.Loss, data Data, set Setting, log *logger.Logger) (*Result, error) {
	cfg := &tr.cfg
	opt, err := tr.solver.New(cfg, set, log)
	if err != nil {
		return nil, err
	}

	opts := []accum.Option{accum.WithPool(tr.pool), accum.WithThreads(tr.pool.Workers())}
	objective, err := accum.New(model, loss, data.Train,
		append(opts, accum.WithRegularizer(tr.reg), accum.WithLambda(set.Lambda))...)
	if err != nil {
		return nil, err
	}
	var o oracle.Oracle = objective.Oracle()
	if tr.solver.Stochastic {
		if o, err = objective.Minibatch(set.BatchSize); err != nil {
			return nil, err
		}
	}

	measure := func(samples []accum.Sample) (func(x []float64) Measurement, error) {
		if len(samples) == 0 {
			nan := Measurement{Value: math.NaN(), Error: math.NaN()}
			return func([]float64) Measurement { return nan }, nil
		}
		acc, err := accum.New(model, loss, samples, append(opts, accum.WithRegularizer(accum.None))...)
		if err != nil {
			return nil, err
		}
		return func(x []float64) Measurement {
			acc.Reset(x)
			acc.Update()
			return Measurement{Value: acc.Value(), Error: acc.ErrorAvg()}
		}, nil
	}
	train, err := measure(data.Train)
	if err != nil {
		return nil, err
	}
	valid, err := measure(data.Valid)
	if err != nil {
		return nil, err
	}
	test, err := measure(data.Test)
	if err != nil {
		return nil, err
	}

	config := Hypers{{"lambda", set.Lambda}}
	if tr.solver.Stochastic {
		config = append(config, Hyper{"alpha0", set.Alpha0}, Hyper{"decay", set.Decay},
			Hyper{"batch_size", float64(set.BatchSize)})
	}

	result := NewResult(*cfg.Patience)
	start := time.Now()
	epoch := 0
	observe := func(s *oracle.State) bool {
		epoch++
		state := State{
			Epoch: epoch, Elapsed: time.Since(start),
			Train: train(s.X), Valid: valid(s.X), Test: test(s.X),
		}
		converged := !tr.solver.Stochastic && s.Converged(cfg.Epsilon)
		status := result.Update(s.X, state, config, converged)
		if log.Enable(logger.LogEval) {
			log.Log("[train= %v, valid= %v (%s), epoch= %d/%d, %v] done in %s\n",
				state.Train, state.Valid, status, epoch, cfg.Epochs, config,
				logger.FormatNs(state.Elapsed.Nanoseconds()))
		}
		return !status.Terminal()
	}

	x0 := append([]float64(nil), model.Params()...)
	final, err := opt.Minimize(o, x0, observe)
	if err != nil {
		return nil, err
	}
	result.Finish(Outcome(final, cfg.Epsilon))
	return result, nil
}
