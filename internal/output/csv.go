// Package output renders the planner's results for the adapter layer: CSV
// tables, a stored plan document, and a console report.
package output

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jseok/housingfund/internal/domain"
)

// PlanCSV writes the year-by-year plan (one row per simulated year).
type PlanCSV struct{}

func (PlanCSV) Name() string { return "plan-csv" }

func (PlanCSV) Format(plan domain.Plan, result domain.SimulationResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Year", "StandardIssued", "DepositIssued", "BuySignal", "HousesBought"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for year := 0; year < plan.Horizon(); year++ {
		bought := 0
		if year < len(result.PurchasesByYear) {
			bought = result.PurchasesByYear[year]
		}
		row := []string{
			strconv.Itoa(year + 1),
			strconv.Itoa(plan.IssuanceFor(domain.ContractStandard, year)),
			strconv.Itoa(plan.IssuanceFor(domain.ContractDeposit, year)),
			boolToFlag(plan.BuySignal(year)),
			strconv.Itoa(bought),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// BalanceCSV writes the year-end balance trajectory.
type BalanceCSV struct{}

func (BalanceCSV) Name() string { return "balance-csv" }

func (BalanceCSV) Format(result domain.SimulationResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Year", "Balance"}); err != nil {
		return nil, err
	}
	for year, balance := range result.Balances {
		row := []string{strconv.Itoa(year + 1), balance.StringFixed(2)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// PlanYAML stores a plan in the format LoadPlanFromFile reads back.
type PlanYAML struct{}

func (PlanYAML) Name() string { return "plan-yaml" }

func (PlanYAML) Format(plan domain.Plan) ([]byte, error) {
	return yaml.Marshal(plan)
}

func boolToFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
