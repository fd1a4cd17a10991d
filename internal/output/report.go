package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
)

// ReportGenerator writes the console summary of a plan and its simulation.
type ReportGenerator struct {
	Out io.Writer
}

// NewReportGenerator creates a report generator writing to out.
func NewReportGenerator(out io.Writer) *ReportGenerator {
	return &ReportGenerator{Out: out}
}

// WriteSummary prints the best plan and its cashflow outcome.
func (rg *ReportGenerator) WriteSummary(plan domain.Plan, result domain.SimulationResult) {
	fmt.Fprintln(rg.Out, "=================================================================")
	fmt.Fprintln(rg.Out, "HOUSING-DEPOSIT FUND PLAN SUMMARY")
	fmt.Fprintln(rg.Out, "=================================================================")
	fmt.Fprintln(rg.Out)

	fmt.Fprintf(rg.Out, "Horizon:              %d years\n", plan.Horizon())
	fmt.Fprintf(rg.Out, "Fund return rate:     %s%%\n", plan.ReturnRate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Fprintf(rg.Out, "Feasible:             %s\n", yesNo(result.Feasible))
	fmt.Fprintf(rg.Out, "Final balance:        %s\n", FormatAmount(result.FinalBalance))
	fmt.Fprintf(rg.Out, "Worst year balance:   %s\n", FormatAmount(result.MinBalance))
	fmt.Fprintf(rg.Out, "Houses purchased:     %d\n", result.HousesPurchased)
	if years := plan.BuyYears(); len(years) > 0 {
		fmt.Fprintf(rg.Out, "Purchase years:       %s\n", joinYears(years))
	}
	if result.Truncated {
		fmt.Fprintf(rg.Out, "Note: run truncated after %d years (balance diverged)\n", result.YearsSimulated())
	}

	fmt.Fprintln(rg.Out)
	fmt.Fprintln(rg.Out, "Yearly contract issuance (standard/deposit):")
	for year := 0; year < plan.Horizon(); year++ {
		std := plan.IssuanceFor(domain.ContractStandard, year)
		dep := plan.IssuanceFor(domain.ContractDeposit, year)
		if std == 0 && dep == 0 {
			continue
		}
		fmt.Fprintf(rg.Out, "  year %2d: %3d / %3d\n", year+1, std, dep)
	}
}

// FormatAmount renders a money amount with thousands separators.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d", y+1)
	}
	return strings.Join(parts, ", ")
}
