package domain

import "github.com/shopspring/decimal"

// Plan is the decision variable under search: how many contracts of each type
// to issue per year, which years to attempt a house purchase, and the single
// fund return rate applied across the whole horizon. The simulator receives a
// Plan by value and never mutates it; the sampler and optimizer own it.
type Plan struct {
	StandardIssuance []int           `yaml:"standard_issuance" json:"standardIssuance"`
	DepositIssuance  []int           `yaml:"deposit_issuance" json:"depositIssuance"`
	BuySignals       []bool          `yaml:"buy_signals" json:"buySignals"`
	ReturnRate       decimal.Decimal `yaml:"return_rate" json:"returnRate"`
}

// NewPlan returns an all-zero plan over the given horizon.
func NewPlan(horizon int) Plan {
	return Plan{
		StandardIssuance: make([]int, horizon),
		DepositIssuance:  make([]int, horizon),
		BuySignals:       make([]bool, horizon),
		ReturnRate:       decimal.Zero,
	}
}

// Horizon returns the number of years the plan covers.
func (p Plan) Horizon() int {
	h := len(p.StandardIssuance)
	if len(p.DepositIssuance) > h {
		h = len(p.DepositIssuance)
	}
	if len(p.BuySignals) > h {
		h = len(p.BuySignals)
	}
	return h
}

// IssuanceFor returns the issuance count for a contract type in a year.
// Years beyond the recorded slices count as zero.
func (p Plan) IssuanceFor(ct ContractType, year int) int {
	var counts []int
	switch ct {
	case ContractDeposit:
		counts = p.DepositIssuance
	default:
		counts = p.StandardIssuance
	}
	if year < 0 || year >= len(counts) {
		return 0
	}
	return counts[year]
}

// BuySignal reports whether the plan signals a purchase attempt in a year.
func (p Plan) BuySignal(year int) bool {
	if year < 0 || year >= len(p.BuySignals) {
		return false
	}
	return p.BuySignals[year]
}

// BuyYears returns the years with an active buy signal, in order.
func (p Plan) BuyYears() []int {
	years := []int{}
	for y, on := range p.BuySignals {
		if on {
			years = append(years, y)
		}
	}
	return years
}

// Clone returns a deep copy the caller may mutate freely.
func (p Plan) Clone() Plan {
	out := p
	out.StandardIssuance = append([]int(nil), p.StandardIssuance...)
	out.DepositIssuance = append([]int(nil), p.DepositIssuance...)
	out.BuySignals = append([]bool(nil), p.BuySignals...)
	return out
}
