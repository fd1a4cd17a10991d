package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jseok/housingfund/internal/optimize"
)

const validYAML = `
parameters:
  installment: 100
  deposit: 500
  house_price: 25000
  contract_term: 10
  churn_rate: 0.05
  refund_ratio: 0.5
  maturity_return_rate: 0.03
  initial_cash: 10000
  horizon_years: 20
  eligible_years: [5, 6, 7, 8]
  demand_target: 3
  reserve_fraction: 0.1
  carry_forward_demand: true
bounds:
  max_standard_per_year: 10
  max_deposit_per_year: 4
  max_purchase_signals: 3
  return_rate_min: 0.01
  return_rate_max: 0.06
search:
  sample_budget: 500
  time_budget_seconds: 2.5
  workers: 4
  penalty_weight: 25
  seed: 99
`

func TestParseValidInput(t *testing.T) {
	parser := NewInputParser()
	input, err := parser.Parse([]byte(validYAML))
	require.NoError(t, err)

	p := input.Parameters
	assert.True(t, p.Installment.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.Deposit.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 10, p.ContractTerm)
	assert.Equal(t, 20, p.HorizonYears)
	assert.Equal(t, 3, p.DemandTarget)
	assert.Equal(t, []int{5, 6, 7, 8}, p.PurchaseCalendar.EligibleYears)
	assert.True(t, p.Policy.ReserveFraction.Equal(decimal.NewFromFloat(0.1)))
	assert.True(t, p.Policy.CarryForwardDemand)
	assert.False(t, p.Policy.SpeculativePurchases)

	b := input.Bounds
	assert.Equal(t, 10, b.MaxStandardPerYear)
	assert.True(t, b.ReturnRateMax.Equal(decimal.NewFromFloat(0.06)))

	s := input.Search
	assert.Equal(t, 500, s.SampleBudget)
	assert.Equal(t, 2500*time.Millisecond, s.TimeBudget)
	assert.Equal(t, 4, s.Workers)
	assert.True(t, s.PenaltyWeight.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(99), s.Seed)
}

func TestParseAppliesSearchDefaults(t *testing.T) {
	parser := NewInputParser()
	input, err := parser.Parse([]byte(`
parameters:
  installment: 100
  contract_term: 5
  horizon_years: 5
bounds:
  max_standard_per_year: 5
`))
	require.NoError(t, err)

	defaults := optimize.DefaultSearchOptions()
	assert.Equal(t, defaults.SampleBudget, input.Search.SampleBudget)
	assert.Equal(t, defaults.TimeBudget, input.Search.TimeBudget)
	assert.Equal(t, defaults.Workers, input.Search.Workers)
	assert.True(t, input.Search.PenaltyWeight.Equal(defaults.PenaltyWeight))
}

func TestParseRejectsInvalidConfigurations(t *testing.T) {
	type row struct {
		name                    string
		installment, deposit    float64
		term                    int
		churn, refund, maturity float64
		horizon, demand         int
		reserve                 float64
		wantMsg                 string
	}
	ok := row{installment: 100, term: 10, churn: 0.05, refund: 0.5, maturity: 0.03, horizon: 20}
	cases := []row{
		func(r row) row { r.name = "zero horizon"; r.horizon = 0; r.wantMsg = "horizon_years"; return r }(ok),
		func(r row) row { r.name = "zero term"; r.term = 0; r.wantMsg = "contract_term"; return r }(ok),
		func(r row) row { r.name = "negative installment"; r.installment = -1; r.wantMsg = "installment"; return r }(ok),
		func(r row) row { r.name = "negative deposit"; r.deposit = -1; r.wantMsg = "deposit"; return r }(ok),
		func(r row) row { r.name = "churn above one"; r.churn = 1.5; r.wantMsg = "churn_rate"; return r }(ok),
		func(r row) row { r.name = "negative refund"; r.refund = -0.1; r.wantMsg = "refund_ratio"; return r }(ok),
		func(r row) row { r.name = "total loss maturity"; r.maturity = -1; r.wantMsg = "maturity_return_rate"; return r }(ok),
		func(r row) row { r.name = "negative demand"; r.demand = -1; r.wantMsg = "demand_target"; return r }(ok),
		func(r row) row { r.name = "reserve above one"; r.reserve = 1.1; r.wantMsg = "reserve_fraction"; return r }(ok),
	}

	parser := NewInputParser()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := fmt.Sprintf(`
parameters:
  installment: %v
  deposit: %v
  contract_term: %d
  churn_rate: %v
  refund_ratio: %v
  maturity_return_rate: %v
  horizon_years: %d
  demand_target: %d
  reserve_fraction: %v
bounds:
  max_standard_per_year: 5
`, tc.installment, tc.deposit, tc.term, tc.churn, tc.refund, tc.maturity,
				tc.horizon, tc.demand, tc.reserve)
			_, err := parser.Parse([]byte(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestParseRejectsFreeHousesWithPurchaseYears(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.Parse([]byte(`
parameters:
  installment: 100
  contract_term: 5
  horizon_years: 5
  eligible_years: [1, 2]
bounds:
  max_standard_per_year: 5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "house_price must be positive")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.Parse([]byte("parameters: [not a mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseRejectsInvalidBounds(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.Parse([]byte(`
parameters:
  installment: 100
  contract_term: 5
  horizon_years: 5
bounds:
  max_standard_per_year: 5
  return_rate_min: 0.1
  return_rate_max: 0.05
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bounds validation failed")
}

func TestLoadFromFileMissing(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.LoadFromFile("/nonexistent/input.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestLoadFromFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	parser := NewInputParser()
	input, err := parser.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 20, input.Parameters.HorizonYears)
}

func TestLoadPlanFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	doc := `
standard_issuance: [3, 2, 0]
deposit_issuance: [0, 1, 0]
buy_signals: [false, true, false]
return_rate: 0.045
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	parser := NewInputParser()
	plan, err := parser.LoadPlanFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 0}, plan.StandardIssuance)
	assert.Equal(t, []int{0, 1, 0}, plan.DepositIssuance)
	assert.Equal(t, []bool{false, true, false}, plan.BuySignals)
	assert.True(t, plan.ReturnRate.Equal(decimal.NewFromFloat(0.045)))
}
