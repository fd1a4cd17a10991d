// Package solve answers threshold questions about a fixed plan: the smallest
// starting capital or fund return rate that keeps the scheme solvent over the
// whole horizon. Feasibility is close enough to monotone in both quantities
// for bisection to work.
package solve

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
	"github.com/jseok/housingfund/internal/simulation"
)

// Target names the quantity being solved for.
type Target string

const (
	TargetInitialCash Target = "initial_cash"
	TargetReturnRate  Target = "return_rate"
)

// SolveError carries the failing operation alongside the cause.
type SolveError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *SolveError) Error() string {
	if e.Cause != nil {
		return e.Operation + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Operation + ": " + e.Message
}

func (e *SolveError) Unwrap() error {
	return e.Cause
}

// Options bounds the bisection.
type Options struct {
	MaxIterations int
	Tolerance     decimal.Decimal
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 100,
		Tolerance:     decimal.NewFromFloat(0.01),
	}
}

// Result reports the solved threshold. Simulation is the strict-mode run at
// the solved value.
type Result struct {
	Target     Target
	Value      decimal.Decimal
	Iterations int
	Converged  bool
	Simulation domain.SimulationResult
}

// Solver bisects over one scheme parameter with all others held fixed.
type Solver struct {
	Params  domain.Parameters
	Options Options
}

// NewSolver creates a solver over the given parameter record.
func NewSolver(params domain.Parameters, options Options) *Solver {
	if options.MaxIterations <= 0 {
		options.MaxIterations = DefaultOptions().MaxIterations
	}
	if options.Tolerance.LessThanOrEqual(decimal.Zero) {
		options.Tolerance = DefaultOptions().Tolerance
	}
	return &Solver{Params: params, Options: options}
}

// MinimumInitialCash finds the smallest starting capital under which the plan
// stays solvent. The upper bracket starts at the configured initial cash (or
// the house price when that is zero) and doubles until feasible.
func (s *Solver) MinimumInitialCash(ctx context.Context, plan domain.Plan) (*Result, error) {
	lo := decimal.Zero
	hi := s.Params.InitialCash
	if !hi.IsPositive() {
		hi = s.Params.HousePrice
	}
	if !hi.IsPositive() {
		hi = decimal.NewFromInt(1)
	}

	feasible := func(cash decimal.Decimal) domain.SimulationResult {
		p := s.Params
		p.InitialCash = cash
		return simulation.NewEngine(p).Simulate(plan, simulation.ModeStrict)
	}

	if r := feasible(lo); r.Feasible {
		return &Result{Target: TargetInitialCash, Value: lo, Converged: true, Simulation: r}, nil
	}

	// Grow the bracket until it contains the threshold.
	probe := feasible(hi)
	for doublings := 0; !probe.Feasible; doublings++ {
		if doublings >= 60 {
			return nil, &SolveError{
				Operation: "minimum_initial_cash",
				Message:   "plan stays insolvent at every bracketed capital level",
			}
		}
		hi = hi.Mul(decimal.NewFromInt(2))
		probe = feasible(hi)
	}

	iterations := 0
	for iterations < s.Options.MaxIterations && hi.Sub(lo).GreaterThan(s.Options.Tolerance) {
		iterations++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		mid := lo.Add(hi).Div(decimal.NewFromInt(2))
		if r := feasible(mid); r.Feasible {
			hi = mid
			probe = r
		} else {
			lo = mid
		}
	}

	return &Result{
		Target:     TargetInitialCash,
		Value:      hi,
		Iterations: iterations,
		Converged:  hi.Sub(lo).LessThanOrEqual(s.Options.Tolerance),
		Simulation: probe,
	}, nil
}

// MinimumReturnRate finds the smallest fund return rate in [lo, hi] under
// which the plan stays solvent. The plan's own rate is ignored; the candidate
// rate replaces it.
func (s *Solver) MinimumReturnRate(ctx context.Context, plan domain.Plan, lo, hi decimal.Decimal) (*Result, error) {
	if lo.GreaterThan(hi) {
		return nil, &SolveError{
			Operation: "minimum_return_rate",
			Message:   fmt.Sprintf("lower bound %s exceeds upper bound %s", lo, hi),
		}
	}

	engine := simulation.NewEngine(s.Params)
	feasible := func(rate decimal.Decimal) domain.SimulationResult {
		candidate := plan.Clone()
		candidate.ReturnRate = rate
		return engine.Simulate(candidate, simulation.ModeStrict)
	}

	if r := feasible(lo); r.Feasible {
		return &Result{Target: TargetReturnRate, Value: lo, Converged: true, Simulation: r}, nil
	}
	probe := feasible(hi)
	if !probe.Feasible {
		return nil, &SolveError{
			Operation: "minimum_return_rate",
			Message:   fmt.Sprintf("plan stays insolvent even at the upper rate %s", hi),
		}
	}

	iterations := 0
	for iterations < s.Options.MaxIterations && hi.Sub(lo).GreaterThan(s.Options.Tolerance) {
		iterations++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		mid := lo.Add(hi).Div(decimal.NewFromInt(2))
		if r := feasible(mid); r.Feasible {
			hi = mid
			probe = r
		} else {
			lo = mid
		}
	}

	return &Result{
		Target:     TargetReturnRate,
		Value:      hi,
		Iterations: iterations,
		Converged:  hi.Sub(lo).LessThanOrEqual(s.Options.Tolerance),
		Simulation: probe,
	}, nil
}
