// Package optimize searches the space of issuance and purchase plans with
// random sampling followed by greedy hill-climbing.
package optimize

import (
	"errors"
	"runtime"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
)

// ErrInvalidConfiguration marks fatal input errors caught before any
// simulation is attempted.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrNoUsablePlan is returned when every candidate scored below the usable
// threshold, or when nothing could be scored at all.
var ErrNoUsablePlan = errors.New("no usable plan found")

// SearchError carries the failing operation alongside the cause.
type SearchError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *SearchError) Error() string {
	if e.Cause != nil {
		return e.Operation + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Operation + ": " + e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Bounds delimits the sampled plan space.
type Bounds struct {
	MaxStandardPerYear int             `yaml:"max_standard_per_year" json:"maxStandardPerYear"`
	MaxDepositPerYear  int             `yaml:"max_deposit_per_year" json:"maxDepositPerYear"`
	MaxPurchaseSignals int             `yaml:"max_purchase_signals" json:"maxPurchaseSignals"`
	ReturnRateMin      decimal.Decimal `yaml:"return_rate_min" json:"returnRateMin"`
	ReturnRateMax      decimal.Decimal `yaml:"return_rate_max" json:"returnRateMax"`
}

// Validate checks the bounds against the simulation horizon. Violations are
// fatal and wrap ErrInvalidConfiguration.
func (b Bounds) Validate(horizon int) error {
	fail := func(msg string) error {
		return &SearchError{Operation: "validate_bounds", Message: msg, Cause: ErrInvalidConfiguration}
	}
	if horizon <= 0 {
		return fail("horizon must be at least one year")
	}
	if b.MaxStandardPerYear < 0 {
		return fail("max_standard_per_year cannot be negative")
	}
	if b.MaxDepositPerYear < 0 {
		return fail("max_deposit_per_year cannot be negative")
	}
	if b.MaxPurchaseSignals < 0 {
		return fail("max_purchase_signals cannot be negative")
	}
	if b.ReturnRateMin.GreaterThan(b.ReturnRateMax) {
		return fail("return_rate_min cannot exceed return_rate_max")
	}
	return nil
}

// SearchOptions configures the two search phases.
type SearchOptions struct {
	// SampleBudget is the number of random candidates drawn before
	// hill-climbing starts.
	SampleBudget int

	// TimeBudget bounds both phases together; the sampling phase yields to
	// hill-climbing after at most half of it.
	TimeBudget time.Duration

	// Workers sets the parallelism of the sampling phase. Candidate
	// evaluations share no state, so they fan out safely.
	Workers int

	// MaxMutations caps the number of mutations applied per perturbation.
	MaxMutations int

	// PenaltyWeight scales the penalty on the worst insolvency excursion.
	PenaltyWeight decimal.Decimal

	// UsableThreshold is the minimum score a best candidate must reach for
	// the search to report success.
	UsableThreshold decimal.Decimal

	Seed int64
}

// DefaultSearchOptions returns the defaults used by the CLI.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		SampleBudget:    2000,
		TimeBudget:      15 * time.Second,
		Workers:         runtime.GOMAXPROCS(0),
		MaxMutations:    4,
		PenaltyWeight:   decimal.NewFromInt(10),
		UsableThreshold: decimal.Zero,
		Seed:            time.Now().UnixNano(),
	}
}

// Phase names the optimizer's position in its state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSampling   Phase = "sampling"
	PhasePerturbing Phase = "perturbing"
	PhaseDone       Phase = "done"
)

// Candidate pairs a plan with its simulation result and score.
type Candidate struct {
	Plan   domain.Plan
	Result domain.SimulationResult
	Score  decimal.Decimal
}

// SearchState is the explicit mutable state threaded through the search loop.
// Progress callbacks receive copies of it.
type SearchState struct {
	Phase     Phase
	Best      *Candidate
	BestScore decimal.Decimal
	Evaluated int
	Accepted  int
	Elapsed   time.Duration
}

// SearchResult is the final outcome of a search.
type SearchResult struct {
	BestPlan   domain.Plan
	BestResult domain.SimulationResult
	BestScore  decimal.Decimal
	Evaluated  int
	Accepted   int
	Elapsed    time.Duration
}
