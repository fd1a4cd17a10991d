// Package ledger tracks contract cohorts as expected-value aggregates.
// Churn and maturity are deterministic fractional reductions, which keeps one
// simulation run O(cohorts x years) and fully deterministic given a plan and
// return rate. Counts stay fractional; rounding is a presentation concern.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
)

// Cohort is a group of contract holders who started in the same year under
// the same contract type. Count is an expected value and becomes fractional
// after the first churn application. CumulativePaid is per surviving member
// and, for deposit contracts, includes the upfront deposit from inception.
type Cohort struct {
	StartYear      int
	Type           domain.ContractType
	Count          decimal.Decimal
	CumulativePaid decimal.Decimal
	Active         bool
}

// Ledger holds the live cohorts of one simulation run.
type Ledger struct {
	installment decimal.Decimal
	deposit     decimal.Decimal
	cohorts     []*Cohort
}

// New creates an empty ledger for the given per-contract amounts.
func New(installment, deposit decimal.Decimal) *Ledger {
	return &Ledger{installment: installment, deposit: deposit}
}

// Add appends a cohort starting this year. Deposit-type cohorts begin with
// the upfront deposit already counted as paid. Zero or negative counts are
// ignored.
func (l *Ledger) Add(startYear int, ct domain.ContractType, count decimal.Decimal) {
	if count.LessThanOrEqual(decimal.Zero) {
		return
	}
	c := &Cohort{
		StartYear: startYear,
		Type:      ct,
		Count:     count,
		Active:    true,
	}
	if ct == domain.ContractDeposit {
		c.CumulativePaid = l.deposit
	}
	l.cohorts = append(l.cohorts, c)
}

// AccrueAnnualPayments adds one installment to every active cohort's
// cumulative paid and returns the total inflow, count * installment summed
// over active cohorts.
func (l *Ledger) AccrueAnnualPayments() decimal.Decimal {
	inflow := decimal.Zero
	for _, c := range l.cohorts {
		if !c.Active {
			continue
		}
		inflow = inflow.Add(c.Count.Mul(l.installment))
		c.CumulativePaid = c.CumulativePaid.Add(l.installment)
	}
	return inflow
}

// ApplyChurn removes the expected exiting fraction from every active cohort
// and returns the total refund owed: exits * refundRatio * cumulative paid,
// valued at the exit instant. A cohort whose count reaches zero is
// deactivated.
func (l *Ledger) ApplyChurn(rate, refundRatio decimal.Decimal) decimal.Decimal {
	refund := decimal.Zero
	if rate.LessThanOrEqual(decimal.Zero) {
		return refund
	}
	for _, c := range l.cohorts {
		if !c.Active {
			continue
		}
		exits := c.Count.Mul(rate)
		refund = refund.Add(exits.Mul(refundRatio).Mul(c.CumulativePaid))
		c.Count = c.Count.Sub(exits)
		if c.Count.LessThanOrEqual(decimal.Zero) {
			c.Count = decimal.Zero
			c.Active = false
		}
	}
	return refund
}

// ApplyMaturities pays out and deactivates every active cohort whose age
// (currentYear - startYear + 1) has reached the contract term. The total
// payout, count * per-member maturity value, is returned.
func (l *Ledger) ApplyMaturities(currentYear, term int, returnRate decimal.Decimal) decimal.Decimal {
	payout := decimal.Zero
	for _, c := range l.cohorts {
		if !c.Active {
			continue
		}
		if currentYear-c.StartYear+1 < term {
			continue
		}
		payout = payout.Add(c.Count.Mul(l.MaturityValue(c.Type, term, returnRate)))
		c.Count = decimal.Zero
		c.Active = false
	}
	return payout
}

// MaturityValue computes the per-member payout at the end of a full term.
// The installment stream accumulates as an annuity future value,
// installment * ((1+r)^term - 1) / r, falling back to installment * term at
// zero rate. Deposit contracts add deposit * (1+r)^term.
func (l *Ledger) MaturityValue(ct domain.ContractType, term int, returnRate decimal.Decimal) decimal.Decimal {
	var annuity decimal.Decimal
	if returnRate.IsZero() {
		annuity = l.installment.Mul(decimal.NewFromInt(int64(term)))
	} else {
		growth := decimal.NewFromInt(1).Add(returnRate).Pow(decimal.NewFromInt(int64(term)))
		annuity = l.installment.Mul(growth.Sub(decimal.NewFromInt(1))).Div(returnRate)
	}
	if ct == domain.ContractDeposit {
		growth := decimal.NewFromInt(1).Add(returnRate).Pow(decimal.NewFromInt(int64(term)))
		return annuity.Add(l.deposit.Mul(growth))
	}
	return annuity
}

// ActiveCohorts returns the currently active cohorts.
func (l *Ledger) ActiveCohorts() []*Cohort {
	active := []*Cohort{}
	for _, c := range l.cohorts {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}

// ActiveContracts returns the expected number of live contracts.
func (l *Ledger) ActiveContracts() decimal.Decimal {
	total := decimal.Zero
	for _, c := range l.cohorts {
		if c.Active {
			total = total.Add(c.Count)
		}
	}
	return total
}
