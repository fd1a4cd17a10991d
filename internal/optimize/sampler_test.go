package optimize

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jseok/housingfund/internal/domain"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func testParams() domain.Parameters {
	return domain.Parameters{
		Installment:        dec(100),
		Deposit:            dec(500),
		HousePrice:         dec(5000),
		ContractTerm:       10,
		ChurnRate:          dec(0.05),
		RefundRatio:        dec(0.5),
		MaturityReturnRate: dec(0.03),
		InitialCash:        dec(1000),
		HorizonYears:       10,
		PurchaseCalendar:   domain.WindowCalendar(2, 6),
	}
}

func testBounds() Bounds {
	return Bounds{
		MaxStandardPerYear: 8,
		MaxDepositPerYear:  3,
		MaxPurchaseSignals: 2,
		ReturnRateMin:      dec(0.01),
		ReturnRateMax:      dec(0.06),
	}
}

func TestSamplerStaysWithinBounds(t *testing.T) {
	params := testParams()
	bounds := testBounds()
	sampler := NewSampler(params, bounds, rand.New(rand.NewSource(7)))

	eligible := map[int]bool{}
	for _, y := range params.PurchaseCalendar.Eligible(params.HorizonYears) {
		eligible[y] = true
	}

	for i := 0; i < 200; i++ {
		plan := sampler.Plan()
		require.Equal(t, params.HorizonYears, plan.Horizon())

		for year := 0; year < params.HorizonYears; year++ {
			assert.GreaterOrEqual(t, plan.StandardIssuance[year], 0)
			assert.LessOrEqual(t, plan.StandardIssuance[year], bounds.MaxStandardPerYear)
			assert.GreaterOrEqual(t, plan.DepositIssuance[year], 0)
			assert.LessOrEqual(t, plan.DepositIssuance[year], bounds.MaxDepositPerYear)
		}

		assert.True(t, plan.ReturnRate.GreaterThanOrEqual(bounds.ReturnRateMin))
		assert.True(t, plan.ReturnRate.LessThanOrEqual(bounds.ReturnRateMax))

		buyYears := plan.BuyYears()
		assert.LessOrEqual(t, len(buyYears), bounds.MaxPurchaseSignals)
		for _, y := range buyYears {
			assert.True(t, eligible[y], "buy signal outside the eligible window: year %d", y)
		}
	}
}

func TestSamplerIsDeterministicPerSeed(t *testing.T) {
	params := testParams()
	bounds := testBounds()
	a := NewSampler(params, bounds, rand.New(rand.NewSource(42)))
	b := NewSampler(params, bounds, rand.New(rand.NewSource(42)))

	for i := 0; i < 20; i++ {
		pa, pb := a.Plan(), b.Plan()
		assert.Equal(t, pa.StandardIssuance, pb.StandardIssuance)
		assert.Equal(t, pa.DepositIssuance, pb.DepositIssuance)
		assert.Equal(t, pa.BuySignals, pb.BuySignals)
		assert.True(t, pa.ReturnRate.Equal(pb.ReturnRate))
	}
}

func TestSamplerZeroBoundsYieldEmptyPlans(t *testing.T) {
	params := testParams()
	sampler := NewSampler(params, Bounds{}, rand.New(rand.NewSource(1)))

	plan := sampler.Plan()
	for year := 0; year < params.HorizonYears; year++ {
		assert.Zero(t, plan.StandardIssuance[year])
		assert.Zero(t, plan.DepositIssuance[year])
		assert.False(t, plan.BuySignals[year])
	}
	assert.True(t, plan.ReturnRate.Equal(decimal.Zero))
}
