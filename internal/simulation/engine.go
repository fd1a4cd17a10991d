// Package simulation replays a multi-year issuance and purchase plan against
// the fund's cash balance, year by year, and reports the balance trajectory
// and feasibility.
package simulation

import (
	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
	"github.com/jseok/housingfund/internal/ledger"
)

// Mode selects how the engine treats an insolvent year.
type Mode string

const (
	// ModeStrict stops at the first negative year-end balance and reports
	// the plan infeasible.
	ModeStrict Mode = "strict"
	// ModeScored runs the full horizon regardless of negative balances so
	// the optimizer can apply a soft penalty to the worst excursion.
	ModeScored Mode = "scored"
)

// divergenceFloor short-circuits scored runs whose balance has become
// numerically extreme. The truncated result is still well-formed and
// scoreable.
var divergenceFloor = decimal.New(-1, 15)

var one = decimal.NewFromInt(1)

// Engine runs plans against a fixed parameter record. One Engine may be
// shared across goroutines: Simulate builds all mutable state per call.
type Engine struct {
	Params domain.Parameters
	Logger Logger
}

// NewEngine creates an engine for the given parameters.
func NewEngine(params domain.Parameters) *Engine {
	return &Engine{Params: params, Logger: NopLogger{}}
}

// SetLogger replaces the engine logger; nil restores the no-op logger.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	e.Logger = l
}

// purchaseState carries purchase bookkeeping across the years of one run.
type purchaseState struct {
	houses  int
	backlog int
}

// Simulate replays the plan over the configured horizon. Each simulated year
// applies, in fixed order: cohort issuance, installment inflow, compound
// growth, purchase attempt, churn refunds, reserve deduction, maturity
// payouts, then records the year-end balance. Simulate never fails; an
// insolvent or diverging plan is reported through the result.
func (e *Engine) Simulate(plan domain.Plan, mode Mode) domain.SimulationResult {
	p := e.Params
	led := ledger.New(p.Installment, p.Deposit)
	balance := p.InitialCash
	growth := one.Add(plan.ReturnRate)
	reserve := e.annualReserve(plan)

	result := domain.SimulationResult{
		Feasible:        true,
		Balances:        make([]decimal.Decimal, 0, p.HorizonYears),
		PurchasesByYear: make([]int, p.HorizonYears),
	}
	st := purchaseState{}

	for year := 0; year < p.HorizonYears; year++ {
		for _, ct := range domain.ContractTypes() {
			if n := plan.IssuanceFor(ct, year); n > 0 {
				led.Add(year, ct, decimal.NewFromInt(int64(n)))
			}
		}

		balance = balance.Add(led.AccrueAnnualPayments())
		balance = balance.Mul(growth)

		var bought int
		balance, bought = e.attemptPurchase(year, plan, led, balance, &st)
		result.PurchasesByYear[year] = bought

		balance = balance.Sub(led.ApplyChurn(p.ChurnRate, p.RefundRatio))
		if reserve.IsPositive() {
			balance = balance.Sub(reserve)
		}
		balance = balance.Sub(led.ApplyMaturities(year, p.ContractTerm, p.MaturityReturnRate))

		result.Balances = append(result.Balances, balance)
		if len(result.Balances) == 1 || balance.LessThan(result.MinBalance) {
			result.MinBalance = balance
		}

		if balance.IsNegative() {
			result.Feasible = false
			if mode == ModeStrict {
				break
			}
			if balance.LessThan(divergenceFloor) {
				e.Logger.Warnf("balance diverged at year %d (%s), truncating run", year+1, balance.StringFixed(0))
				result.Truncated = true
				break
			}
		}
	}

	result.HousesPurchased = st.houses
	if n := len(result.Balances); n > 0 {
		result.FinalBalance = result.Balances[n-1]
	} else {
		result.FinalBalance = balance
		result.MinBalance = balance
	}
	return result
}

// attemptPurchase executes the year's purchase step and returns the updated
// balance and the number of houses bought. An unaffordable attempt fails
// silently; whether it is retried later is governed by the carry-forward
// policy.
func (e *Engine) attemptPurchase(year int, plan domain.Plan, led *ledger.Ledger, balance decimal.Decimal, st *purchaseState) (decimal.Decimal, int) {
	p := e.Params

	wants := 0
	if plan.BuySignal(year) {
		wants = 1
	}
	if p.Policy.CarryForwardDemand {
		wants += st.backlog
		st.backlog = 0
	}
	if wants == 0 {
		return balance, 0
	}

	if !p.PurchaseCalendar.CanPurchase(year) {
		if p.Policy.CarryForwardDemand {
			st.backlog = wants
		}
		return balance, 0
	}

	// Multi-purchase buys until cash (or demand) runs out rather than one
	// house per signal.
	unbounded := p.Policy.MultiPurchasePerYear
	if !p.Policy.SpeculativePurchases && p.DemandTarget > 0 {
		remaining := p.DemandTarget - st.houses
		if remaining <= 0 {
			return balance, 0
		}
		if unbounded || wants > remaining {
			wants = remaining
			unbounded = false
		}
	}

	bought := 0
	for (unbounded || wants > 0) && balance.GreaterThanOrEqual(p.HousePrice) {
		prev := balance
		balance = balance.Sub(p.HousePrice)
		bought++
		st.houses++
		// Every purchased house is immediately seated by a deposit contract.
		// The occupant's upfront deposit counts toward cumulative paid only;
		// it is not cash received by the fund.
		led.Add(year, domain.ContractDeposit, one)
		if !unbounded {
			wants--
		}
		// A purchase that leaves the balance unchanged would repeat forever.
		if !balance.LessThan(prev) {
			break
		}
	}
	if !unbounded && wants > 0 {
		e.Logger.Debugf("purchase attempt short %d house(s) at year %d", wants, year+1)
		if p.Policy.CarryForwardDemand {
			st.backlog += wants
		}
	}
	return balance, bought
}

// annualReserve sizes the yearly held-back buffer: the configured fraction of
// the plan's total expected refund exposure (cumulative contributions of all
// planned cohorts at full term, scaled by the refund ratio), spread evenly
// across the horizon. Cohorts seated by future purchases are not known up
// front and are excluded from the exposure.
func (e *Engine) annualReserve(plan domain.Plan) decimal.Decimal {
	p := e.Params
	if !p.Policy.ReserveFraction.IsPositive() || p.HorizonYears <= 0 {
		return decimal.Zero
	}
	termPaid := p.Installment.Mul(decimal.NewFromInt(int64(p.ContractTerm)))
	exposure := decimal.Zero
	for year := 0; year < p.HorizonYears; year++ {
		for _, ct := range domain.ContractTypes() {
			n := plan.IssuanceFor(ct, year)
			if n == 0 {
				continue
			}
			paid := termPaid
			if ct == domain.ContractDeposit {
				paid = paid.Add(p.Deposit)
			}
			exposure = exposure.Add(decimal.NewFromInt(int64(n)).Mul(paid))
		}
	}
	exposure = exposure.Mul(p.RefundRatio)
	return p.Policy.ReserveFraction.Mul(exposure).Div(decimal.NewFromInt(int64(p.HorizonYears)))
}
