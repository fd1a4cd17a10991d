package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ContractType identifies the payment profile of a cohort.
type ContractType string

const (
	// ContractStandard pays periodic installments only.
	ContractStandard ContractType = "standard"
	// ContractDeposit pays an upfront lump sum at inception in addition to
	// periodic installments. Purchased houses are seated by deposit contracts.
	ContractDeposit ContractType = "deposit"
)

// ContractTypes lists all contract types in a stable order.
func ContractTypes() []ContractType {
	return []ContractType{ContractStandard, ContractDeposit}
}

// PurchaseCalendar maps simulation years (0-indexed) to purchase eligibility.
// It is supplied by the adapter layer and never changes during a run.
type PurchaseCalendar struct {
	EligibleYears []int `yaml:"eligible_years" json:"eligibleYears"`
}

// WindowCalendar builds a calendar where every year in [first, last] is
// purchase-eligible.
func WindowCalendar(first, last int) PurchaseCalendar {
	if last < first {
		return PurchaseCalendar{}
	}
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return PurchaseCalendar{EligibleYears: years}
}

// CanPurchase reports whether a purchase may be attempted in the given year.
func (pc PurchaseCalendar) CanPurchase(year int) bool {
	for _, y := range pc.EligibleYears {
		if y == year {
			return true
		}
	}
	return false
}

// Eligible returns the sorted eligible years, bounded to [0, horizon).
func (pc PurchaseCalendar) Eligible(horizon int) []int {
	years := make([]int, 0, len(pc.EligibleYears))
	for _, y := range pc.EligibleYears {
		if y >= 0 && y < horizon {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// PurchasePolicy holds the configurable purchase and reserve behaviors. The
// zero value reproduces the baseline model: one house per signal, purchases
// capped at remaining demand, failed attempts forgone, no reserve.
type PurchasePolicy struct {
	// ReserveFraction sizes an annual held-back buffer as a fraction of the
	// plan's total expected refund exposure, spread evenly across the horizon.
	// Zero disables the reserve.
	ReserveFraction decimal.Decimal `yaml:"reserve_fraction" json:"reserveFraction"`

	// SpeculativePurchases buys whenever cash allows, ignoring the demand
	// target.
	SpeculativePurchases bool `yaml:"speculative_purchases" json:"speculativePurchases"`

	// CarryForwardDemand retries failed or ineligible purchase attempts in
	// later eligible years instead of forgoing them.
	CarryForwardDemand bool `yaml:"carry_forward_demand" json:"carryForwardDemand"`

	// MultiPurchasePerYear lets a single buy signal purchase as many houses
	// as affordability (and, unless speculative, remaining demand) allows.
	MultiPurchasePerYear bool `yaml:"multi_purchase_per_year" json:"multiPurchasePerYear"`
}

// Parameters is the read-only parameter record shared by every simulation run.
type Parameters struct {
	Installment        decimal.Decimal `yaml:"installment" json:"installment"`
	Deposit            decimal.Decimal `yaml:"deposit" json:"deposit"`
	HousePrice         decimal.Decimal `yaml:"house_price" json:"housePrice"`
	ContractTerm       int             `yaml:"contract_term" json:"contractTerm"`
	ChurnRate          decimal.Decimal `yaml:"churn_rate" json:"churnRate"`
	RefundRatio        decimal.Decimal `yaml:"refund_ratio" json:"refundRatio"`
	MaturityReturnRate decimal.Decimal `yaml:"maturity_return_rate" json:"maturityReturnRate"`
	InitialCash        decimal.Decimal `yaml:"initial_cash" json:"initialCash"`
	HorizonYears       int             `yaml:"horizon_years" json:"horizonYears"`

	// PurchaseCalendar marks the years a house purchase may be attempted.
	PurchaseCalendar PurchaseCalendar `yaml:"purchase_calendar" json:"purchaseCalendar"`

	// DemandTarget caps total houses purchased; zero means no cap.
	DemandTarget int `yaml:"demand_target" json:"demandTarget"`

	Policy PurchasePolicy `yaml:"policy" json:"policy"`
}
