package domain

import "github.com/shopspring/decimal"

// SimulationResult is the outcome of one simulator run. It is immutable once
// produced; callers own it.
type SimulationResult struct {
	// Feasible is true when the balance never went negative.
	Feasible bool `json:"feasible"`

	// Balances holds the year-end balance for each simulated year. In strict
	// mode the trajectory stops at the first negative year; in scored mode it
	// covers the full horizon unless the divergence guard truncated the run.
	Balances []decimal.Decimal `json:"balances"`

	FinalBalance decimal.Decimal `json:"finalBalance"`

	// MinBalance is the worst year-end balance observed, used for the
	// optimizer's soft insolvency penalty.
	MinBalance decimal.Decimal `json:"minBalance"`

	HousesPurchased int   `json:"housesPurchased"`
	PurchasesByYear []int `json:"purchasesByYear"`

	// Truncated marks a run cut short by the divergence guard.
	Truncated bool `json:"truncated"`
}

// YearsSimulated returns the number of years the trajectory covers.
func (r SimulationResult) YearsSimulated() int {
	return len(r.Balances)
}
