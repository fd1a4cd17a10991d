package optimize

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
)

// Sampler draws random candidate plans within configured bounds. It is not
// safe for concurrent use; give each goroutine its own Sampler.
type Sampler struct {
	Params domain.Parameters
	Bounds Bounds
	rng    *rand.Rand
}

// NewSampler creates a sampler over the given plan space.
func NewSampler(params domain.Parameters, bounds Bounds, rng *rand.Rand) *Sampler {
	return &Sampler{Params: params, Bounds: bounds, rng: rng}
}

// Plan draws a random candidate: issuance counts uniform in [0, max] per year
// per contract type, the return rate uniform over the configured interval,
// and purchase years chosen by drawing a count and sampling eligible years
// without replacement. Purchase necessity is not derived from demand; that
// keeps the full eligible-year subset space reachable.
func (s *Sampler) Plan() domain.Plan {
	horizon := s.Params.HorizonYears
	plan := domain.NewPlan(horizon)

	for year := 0; year < horizon; year++ {
		if s.Bounds.MaxStandardPerYear > 0 {
			plan.StandardIssuance[year] = s.rng.Intn(s.Bounds.MaxStandardPerYear + 1)
		}
		if s.Bounds.MaxDepositPerYear > 0 {
			plan.DepositIssuance[year] = s.rng.Intn(s.Bounds.MaxDepositPerYear + 1)
		}
	}

	plan.ReturnRate = s.randomRate()

	eligible := s.Params.PurchaseCalendar.Eligible(horizon)
	maxSignals := s.Bounds.MaxPurchaseSignals
	if maxSignals > len(eligible) {
		maxSignals = len(eligible)
	}
	if maxSignals > 0 {
		k := s.rng.Intn(maxSignals + 1)
		for _, idx := range s.rng.Perm(len(eligible))[:k] {
			plan.BuySignals[eligible[idx]] = true
		}
	}

	return plan
}

// randomRate draws uniformly from [ReturnRateMin, ReturnRateMax].
func (s *Sampler) randomRate() decimal.Decimal {
	lo, _ := s.Bounds.ReturnRateMin.Float64()
	hi, _ := s.Bounds.ReturnRateMax.Float64()
	if hi <= lo {
		return s.Bounds.ReturnRateMin
	}
	return decimal.NewFromFloat(lo + s.rng.Float64()*(hi-lo))
}
