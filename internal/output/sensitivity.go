package output

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/sensitivity"
)

// WriteSensitivity prints a parameter sweep as a console table, one block per
// swept parameter.
func (rg *ReportGenerator) WriteSensitivity(analysis *sensitivity.Analysis) {
	fmt.Fprintln(rg.Out, "=================================================================")
	fmt.Fprintln(rg.Out, "PARAMETER SENSITIVITY")
	fmt.Fprintln(rg.Out, "=================================================================")
	fmt.Fprintln(rg.Out)
	fmt.Fprintf(rg.Out, "Base final balance:   %s\n", FormatAmount(analysis.BaseFinalBalance))
	fmt.Fprintf(rg.Out, "Most sensitive:       %s\n", analysis.Summary.MostSensitiveParameter)
	fmt.Fprintf(rg.Out, "Risk level:           %s\n", analysis.Summary.RiskLevel)
	fmt.Fprintln(rg.Out)

	current := ""
	for _, r := range analysis.Results {
		if r.Parameter != current {
			current = r.Parameter
			fmt.Fprintf(rg.Out, "%s (swing %s%%):\n", current,
				analysis.Summary.SensitivityScores[current].StringFixed(1))
			fmt.Fprintf(rg.Out, "  %-12s %-10s %16s %10s\n", "value", "feasible", "final balance", "change")
		}
		fmt.Fprintf(rg.Out, "  %-12s %-10s %16s %9s%%\n",
			r.Value.StringFixed(4), yesNo(r.Feasible),
			FormatAmount(r.FinalBalance), signedPct(r.ChangePct))
	}
}

func signedPct(d decimal.Decimal) string {
	s := d.StringFixed(1)
	if d.GreaterThan(decimal.Zero) {
		return "+" + s
	}
	return s
}
