package simulation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jseok/housingfund/internal/domain"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// baseParams is a five-year scheme with no churn, no growth and a house
// price far beyond reach.
func baseParams() domain.Parameters {
	return domain.Parameters{
		Installment:        dec(100),
		Deposit:            dec(0),
		HousePrice:         dec(10000),
		ContractTerm:       20,
		ChurnRate:          decimal.Zero,
		RefundRatio:        dec(0.5),
		MaturityReturnRate: decimal.Zero,
		InitialCash:        dec(1000),
		HorizonYears:       5,
		PurchaseCalendar:   domain.WindowCalendar(0, 3),
	}
}

func singleCohortPlan(horizon int) domain.Plan {
	plan := domain.NewPlan(horizon)
	plan.StandardIssuance[0] = 1
	return plan
}

func assertBalances(t *testing.T, result domain.SimulationResult, expected ...float64) {
	t.Helper()
	require.Len(t, result.Balances, len(expected))
	for i, want := range expected {
		assert.True(t, result.Balances[i].Equal(dec(want)),
			"year %d: want %v, got %s", i+1, want, result.Balances[i])
	}
}

func TestSimulateSingleCohortNoChurn(t *testing.T) {
	engine := NewEngine(baseParams())
	result := engine.Simulate(singleCohortPlan(5), ModeScored)

	assert.True(t, result.Feasible)
	assertBalances(t, result, 1100, 1200, 1300, 1400, 1500)
	assert.True(t, result.FinalBalance.Equal(dec(1500)))
	assert.Equal(t, 0, result.HousesPurchased)
}

func TestSimulateFullChurnAfterFirstInflow(t *testing.T) {
	params := baseParams()
	params.ChurnRate = dec(1.0)
	engine := NewEngine(params)

	result := engine.Simulate(singleCohortPlan(5), ModeScored)

	// Installment accrues before churn, so the refund is half of one
	// installment; the emptied cohort never pays again.
	assert.True(t, result.Feasible)
	assertBalances(t, result, 1050, 1050, 1050, 1050, 1050)
}

func TestSimulateDepositCohortCashflows(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 3
	params.ContractTerm = 3
	params.Deposit = dec(500)
	engine := NewEngine(params)

	plan := domain.NewPlan(3)
	plan.DepositIssuance[0] = 1

	result := engine.Simulate(plan, ModeScored)

	// The upfront deposit is never cash in the fund's balance; it only
	// enters the cumulative-paid base, so the zero-rate maturity pays out
	// installments plus deposit against installment inflows alone.
	assertBalances(t, result, 1100, 1200, 500)
}

func TestSimulateZeroIssuanceCompounds(t *testing.T) {
	params := baseParams()
	engine := NewEngine(params)
	plan := domain.NewPlan(5)
	plan.ReturnRate = dec(0.05)

	result := engine.Simulate(plan, ModeScored)

	require.Len(t, result.Balances, 5)
	growth := decimal.NewFromInt(1).Add(dec(0.05))
	for i, balance := range result.Balances {
		expected := params.InitialCash.Mul(growth.Pow(decimal.NewFromInt(int64(i + 1))))
		assert.True(t, balance.Equal(expected), "year %d: want %s, got %s", i+1, expected, balance)
	}
}

func TestSimulateUnaffordablePurchaseIsNoOp(t *testing.T) {
	engine := NewEngine(baseParams())

	plain := engine.Simulate(singleCohortPlan(5), ModeScored)

	plan := singleCohortPlan(5)
	plan.BuySignals[0] = true
	attempted := engine.Simulate(plan, ModeScored)

	assert.Equal(t, 0, attempted.HousesPurchased)
	assertBalances(t, attempted, 1100, 1200, 1300, 1400, 1500)
	assert.True(t, attempted.FinalBalance.Equal(plain.FinalBalance))
}

func TestSimulatePurchaseSeatsDepositCohort(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 3
	params.HousePrice = dec(500)
	engine := NewEngine(params)

	plan := domain.NewPlan(3)
	plan.BuySignals[0] = true

	result := engine.Simulate(plan, ModeScored)

	assert.Equal(t, 1, result.HousesPurchased)
	assert.Equal(t, []int{1, 0, 0}, result.PurchasesByYear)
	// The occupant starts paying installments the year after purchase.
	assertBalances(t, result, 500, 600, 700)
}

func TestSimulatePurchasesCappedAtDemand(t *testing.T) {
	params := baseParams()
	params.HousePrice = dec(100)
	params.DemandTarget = 1
	engine := NewEngine(params)

	plan := domain.NewPlan(5)
	plan.BuySignals[0] = true
	plan.BuySignals[1] = true

	result := engine.Simulate(plan, ModeScored)
	assert.Equal(t, 1, result.HousesPurchased, "second signal exceeds demand")

	params.Policy.SpeculativePurchases = true
	result = NewEngine(params).Simulate(plan, ModeScored)
	assert.Equal(t, 2, result.HousesPurchased, "speculative policy ignores the demand target")
}

func TestSimulateMultiPurchasePerYear(t *testing.T) {
	params := baseParams()
	params.InitialCash = dec(2500)
	params.HousePrice = dec(1000)
	params.DemandTarget = 3
	params.Policy.MultiPurchasePerYear = true
	engine := NewEngine(params)

	plan := domain.NewPlan(5)
	plan.BuySignals[0] = true

	result := engine.Simulate(plan, ModeScored)
	assert.Equal(t, 2, result.HousesPurchased, "one signal buys up to affordability")
	assert.Equal(t, 2, result.PurchasesByYear[0])
}

func TestSimulatePurchaseStopsWhenBalanceStalls(t *testing.T) {
	params := baseParams()
	params.HousePrice = decimal.Zero
	params.Policy.SpeculativePurchases = true
	params.Policy.MultiPurchasePerYear = true
	engine := NewEngine(params)

	plan := domain.NewPlan(5)
	plan.BuySignals[0] = true

	done := make(chan domain.SimulationResult, 1)
	go func() { done <- engine.Simulate(plan, ModeScored) }()

	select {
	case result := <-done:
		// A free house cannot be bought in an unbounded loop; one purchase
		// per signal, balance untouched.
		assert.Equal(t, 1, result.HousesPurchased)
		assert.True(t, result.Balances[0].Equal(dec(1000)))
	case <-time.After(3 * time.Second):
		t.Fatal("Simulate did not return: purchase loop never terminated")
	}
}

func TestSimulateSpeculativeMultiPurchaseWithDepositContracts(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 2
	params.InitialCash = dec(2500)
	params.HousePrice = dec(1000)
	params.Deposit = dec(1000)
	params.Policy.SpeculativePurchases = true
	params.Policy.MultiPurchasePerYear = true
	engine := NewEngine(params)

	plan := domain.NewPlan(2)
	plan.BuySignals[0] = true

	result := engine.Simulate(plan, ModeScored)

	// Each purchase costs the full price; the occupant's deposit does not
	// flow back, so 2500 affords exactly two houses.
	assert.Equal(t, 2, result.HousesPurchased)
	assertBalances(t, result, 500, 700)
}

func TestSimulateCarryForwardDemand(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 4
	params.InitialCash = decimal.Zero
	params.Installment = dec(300)
	params.HousePrice = dec(1000)
	params.PurchaseCalendar = domain.PurchaseCalendar{EligibleYears: []int{0, 1, 3}}

	plan := domain.NewPlan(4)
	plan.StandardIssuance[0] = 1
	plan.BuySignals[0] = true

	// Forgone by default: the failed year-1 attempt never comes back.
	result := NewEngine(params).Simulate(plan, ModeScored)
	assert.Equal(t, 0, result.HousesPurchased)
	assertBalances(t, result, 300, 600, 900, 1200)

	// Carried forward: retried in year 2 (still short), skipped in the
	// ineligible year 3, satisfied in year 4.
	params.Policy.CarryForwardDemand = true
	result = NewEngine(params).Simulate(plan, ModeScored)
	assert.Equal(t, 1, result.HousesPurchased)
	assert.Equal(t, []int{0, 0, 0, 1}, result.PurchasesByYear)
	assertBalances(t, result, 300, 600, 900, 200)
}

func TestSimulateStrictStopsAtFirstNegative(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 3
	params.ContractTerm = 2
	params.InitialCash = decimal.Zero
	params.MaturityReturnRate = dec(1.0)
	engine := NewEngine(params)

	plan := singleCohortPlan(3)

	// Maturity pays 100 * ((1+1)^2 - 1) / 1 = 300 against 200 paid in.
	strict := engine.Simulate(plan, ModeStrict)
	assert.False(t, strict.Feasible)
	assertBalances(t, strict, 100, -100)
	assert.True(t, strict.MinBalance.Equal(dec(-100)))

	scored := engine.Simulate(plan, ModeScored)
	assert.False(t, scored.Feasible)
	assert.False(t, scored.Truncated)
	assertBalances(t, scored, 100, -100, -100)
	assert.True(t, scored.MinBalance.Equal(dec(-100)))
}

func TestSimulateScoredTruncatesOnDivergence(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 4
	params.ContractTerm = 2
	params.InitialCash = decimal.Zero
	params.Installment = dec(1e13)
	params.MaturityReturnRate = dec(1000)
	engine := NewEngine(params)

	result := engine.Simulate(singleCohortPlan(4), ModeScored)

	assert.True(t, result.Truncated)
	assert.False(t, result.Feasible)
	assert.Len(t, result.Balances, 2, "run stops once the balance passes the divergence floor")
	assert.True(t, result.FinalBalance.Equal(result.MinBalance))
}

func TestSimulateChurnReducesInstallmentInflows(t *testing.T) {
	params := baseParams()
	params.RefundRatio = decimal.Zero
	params.HorizonYears = 3

	run := func(churn float64) decimal.Decimal {
		p := params
		p.ChurnRate = dec(churn)
		return NewEngine(p).Simulate(singleCohortPlan(3), ModeScored).FinalBalance
	}

	// With refunds isolated away, more churn means fewer future payers.
	low := run(0.1)
	high := run(0.5)
	assert.True(t, low.GreaterThan(high), "low churn %s should beat high churn %s", low, high)
}

func TestSimulateReserveDeduction(t *testing.T) {
	params := baseParams()
	params.HorizonYears = 2
	params.ContractTerm = 2
	params.Policy.ReserveFraction = dec(0.5)
	engine := NewEngine(params)

	result := engine.Simulate(singleCohortPlan(2), ModeScored)

	// Exposure = 0.5 refund ratio * 200 paid over the term = 100; the 0.5
	// reserve fraction spread over 2 years deducts 25 per year. The cohort
	// matures in year 2 for installment * term = 200.
	assertBalances(t, result, 1075, 950)
}

func TestSimulateSharedEngineIsReadOnly(t *testing.T) {
	engine := NewEngine(baseParams())
	plan := singleCohortPlan(5)

	first := engine.Simulate(plan, ModeScored)
	second := engine.Simulate(plan, ModeScored)

	assert.True(t, first.FinalBalance.Equal(second.FinalBalance),
		"repeated runs on one engine must not share cohort state")
}
