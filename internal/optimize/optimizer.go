package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
	"github.com/jseok/housingfund/internal/simulation"
)

// progressEvery throttles progress callbacks to one per this many
// evaluations.
const progressEvery = 50

// Optimizer runs the two-phase search: a budget of random samples, then
// greedy hill-climbing from the best sample. A hard feasibility cutoff would
// make the landscape too discontinuous to climb, so candidates are always
// evaluated in scored mode and insolvency enters the score as a penalty.
type Optimizer struct {
	Engine  *simulation.Engine
	Bounds  Bounds
	Options SearchOptions
	Logger  simulation.Logger

	// Progress, when set, receives state snapshots during the search.
	Progress func(SearchState)
}

// NewOptimizer creates an optimizer over the engine's parameter record.
func NewOptimizer(engine *simulation.Engine, bounds Bounds, options SearchOptions) *Optimizer {
	return &Optimizer{
		Engine:  engine,
		Bounds:  bounds,
		Options: options,
		Logger:  simulation.NopLogger{},
	}
}

// Search explores the plan space until the time budget or ctx expires and
// returns the best candidate found. Individual bad candidates never abort
// the search; the only fatal condition is malformed bounds. When the best
// score stays below the usable threshold the search reports ErrNoUsablePlan.
func (o *Optimizer) Search(ctx context.Context) (*SearchResult, error) {
	horizon := o.Engine.Params.HorizonYears
	if err := o.Bounds.Validate(horizon); err != nil {
		return nil, err
	}

	start := time.Now()
	deadline := start.Add(o.Options.TimeBudget)
	state := SearchState{Phase: PhaseSampling}

	o.samplePhase(ctx, start, &state)
	o.climbPhase(ctx, start, deadline, &state)

	state.Phase = PhaseDone
	state.Elapsed = time.Since(start)
	o.report(state)

	if state.Best == nil {
		return nil, &SearchError{
			Operation: "search",
			Message:   "no candidate was scoreable",
			Cause:     ErrNoUsablePlan,
		}
	}
	if state.Best.Score.LessThan(o.Options.UsableThreshold) {
		return nil, &SearchError{
			Operation: "search",
			Message: fmt.Sprintf("best score %s is below the usable threshold %s",
				state.Best.Score.StringFixed(0), o.Options.UsableThreshold.StringFixed(0)),
			Cause: ErrNoUsablePlan,
		}
	}

	return &SearchResult{
		BestPlan:   state.Best.Plan,
		BestResult: state.Best.Result,
		BestScore:  state.Best.Score,
		Evaluated:  state.Evaluated,
		Accepted:   state.Accepted,
		Elapsed:    state.Elapsed,
	}, nil
}

// samplePhase draws random candidates and evaluates them across parallel
// workers. Plans are generated on a single seeded source so a fixed seed
// yields a reproducible candidate set regardless of worker count.
func (o *Optimizer) samplePhase(ctx context.Context, start time.Time, state *SearchState) {
	sampleDeadline := start.Add(o.Options.TimeBudget / 2)
	rng := rand.New(rand.NewSource(o.Options.Seed))
	sampler := NewSampler(o.Engine.Params, o.Bounds, rng)

	workers := o.Options.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan domain.Plan, workers)
	results := make(chan Candidate, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range jobs {
				result := o.Engine.Simulate(plan, simulation.ModeScored)
				results <- Candidate{Plan: plan, Result: result, Score: o.score(result)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < o.Options.SampleBudget; i++ {
			if ctx.Err() != nil || time.Now().After(sampleDeadline) {
				return
			}
			jobs <- sampler.Plan()
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for cand := range results {
		cand := cand
		state.Evaluated++
		if state.Best == nil || cand.Score.GreaterThan(state.Best.Score) {
			state.Best = &cand
			state.BestScore = cand.Score
		}
		if state.Evaluated%progressEvery == 0 {
			state.Elapsed = time.Since(start)
			o.report(*state)
		}
	}
	o.logf("sampling done: %d candidates evaluated", state.Evaluated)
}

// climbPhase perturbs the best plan greedily: a mutation is kept only when
// it strictly improves the score.
func (o *Optimizer) climbPhase(ctx context.Context, start time.Time, deadline time.Time, state *SearchState) {
	if state.Best == nil {
		return
	}
	state.Phase = PhasePerturbing
	rng := rand.New(rand.NewSource(o.Options.Seed + 1))

	for ctx.Err() == nil && time.Now().Before(deadline) {
		plan := o.mutate(state.Best.Plan, rng)
		result := o.Engine.Simulate(plan, simulation.ModeScored)
		score := o.score(result)
		state.Evaluated++
		if score.GreaterThan(state.Best.Score) {
			state.Best = &Candidate{Plan: plan, Result: result, Score: score}
			state.BestScore = score
			state.Accepted++
		}
		if state.Evaluated%progressEvery == 0 {
			state.Elapsed = time.Since(start)
			o.report(*state)
		}
	}
	o.logf("hill-climbing done: %d improvements accepted", state.Accepted)
}

// score collapses a result to a single scalar: terminal wealth minus a
// penalty proportional to the worst insolvency excursion. Insolvency is
// expensive but not impossible, so the search can traverse temporarily
// infeasible regions.
func (o *Optimizer) score(result domain.SimulationResult) decimal.Decimal {
	score := result.FinalBalance
	if result.MinBalance.IsNegative() {
		score = score.Sub(o.Options.PenaltyWeight.Mul(result.MinBalance.Neg()))
	}
	return score
}

// mutate clones the plan and applies a small number of bounded random edits:
// mostly issuance nudges, occasionally a return-rate nudge or a purchase-year
// toggle.
func (o *Optimizer) mutate(plan domain.Plan, rng *rand.Rand) domain.Plan {
	out := plan.Clone()
	horizon := o.Engine.Params.HorizonYears
	maxMutations := o.Options.MaxMutations
	if maxMutations < 1 {
		maxMutations = 1
	}
	n := 1 + rng.Intn(maxMutations)
	for i := 0; i < n; i++ {
		switch rng.Intn(10) {
		case 0:
			out.ReturnRate = o.nudgeRate(out.ReturnRate, rng)
		case 1:
			o.toggleBuyYear(&out, rng)
		default:
			o.nudgeIssuance(&out, horizon, rng)
		}
	}
	return out
}

func (o *Optimizer) nudgeRate(rate decimal.Decimal, rng *rand.Rand) decimal.Decimal {
	r, _ := rate.Float64()
	nudged := decimal.NewFromFloat(r + (rng.Float64()*2-1)*0.005)
	if nudged.LessThan(o.Bounds.ReturnRateMin) {
		return o.Bounds.ReturnRateMin
	}
	if nudged.GreaterThan(o.Bounds.ReturnRateMax) {
		return o.Bounds.ReturnRateMax
	}
	return nudged
}

func (o *Optimizer) toggleBuyYear(plan *domain.Plan, rng *rand.Rand) {
	eligible := o.Engine.Params.PurchaseCalendar.Eligible(o.Engine.Params.HorizonYears)
	if len(eligible) == 0 {
		return
	}
	year := eligible[rng.Intn(len(eligible))]
	if plan.BuySignals[year] {
		plan.BuySignals[year] = false
	} else if len(plan.BuyYears()) < o.Bounds.MaxPurchaseSignals {
		plan.BuySignals[year] = true
	}
}

func (o *Optimizer) nudgeIssuance(plan *domain.Plan, horizon int, rng *rand.Rand) {
	year := rng.Intn(horizon)
	delta := 1 + rng.Intn(3)
	if rng.Intn(2) == 0 {
		delta = -delta
	}
	counts, max := plan.StandardIssuance, o.Bounds.MaxStandardPerYear
	if o.Bounds.MaxDepositPerYear > 0 && rng.Intn(4) == 0 {
		counts, max = plan.DepositIssuance, o.Bounds.MaxDepositPerYear
	}
	v := counts[year] + delta
	if v < 0 {
		v = 0
	}
	if v > max {
		v = max
	}
	counts[year] = v
}

func (o *Optimizer) report(state SearchState) {
	if o.Progress != nil {
		o.Progress(state)
	}
}

func (o *Optimizer) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Debugf(format, args...)
	}
}
