// Package sensitivity sweeps scheme parameters around their configured values
// and reports how the final balance of a fixed plan responds.
package sensitivity

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jseok/housingfund/internal/domain"
	"github.com/jseok/housingfund/internal/simulation"
)

// Parameter describes one swept scheme parameter.
type Parameter struct {
	Name        string          `yaml:"name" json:"name"`
	MinValue    decimal.Decimal `yaml:"min_value" json:"minValue"`
	MaxValue    decimal.Decimal `yaml:"max_value" json:"maxValue"`
	Steps       int             `yaml:"steps" json:"steps"`
	BaseValue   decimal.Decimal `yaml:"base_value" json:"baseValue"`
	Description string          `yaml:"description" json:"description"`
}

// Result is the outcome of one sweep point.
type Result struct {
	Parameter          string          `json:"parameter"`
	Value              decimal.Decimal `json:"value"`
	Feasible           bool            `json:"feasible"`
	FinalBalance       decimal.Decimal `json:"finalBalance"`
	MinBalance         decimal.Decimal `json:"minBalance"`
	FinalBalanceChange decimal.Decimal `json:"finalBalanceChange"`
	ChangePct          decimal.Decimal `json:"changePct"`
}

// Summary condenses a sweep into per-parameter scores.
type Summary struct {
	MostSensitiveParameter string                     `json:"mostSensitiveParameter"`
	SensitivityScores      map[string]decimal.Decimal `json:"sensitivityScores"`
	RiskLevel              string                     `json:"riskLevel"`
}

// Analysis is a complete parameter sweep over one plan.
type Analysis struct {
	Parameters       []Parameter     `json:"parameters"`
	BaseFinalBalance decimal.Decimal `json:"baseFinalBalance"`
	Results          []Result        `json:"results"`
	Summary          Summary         `json:"summary"`
}

// Analyzer runs parameter sweeps against a fixed parameter record.
type Analyzer struct {
	Params domain.Parameters
	Logger simulation.Logger
}

// NewAnalyzer creates an analyzer for the given parameters.
func NewAnalyzer(params domain.Parameters) *Analyzer {
	return &Analyzer{Params: params, Logger: simulation.NopLogger{}}
}

// DefaultParameters builds the standard sweep set around the configured
// values: churn, maturity return and house price.
func DefaultParameters(p domain.Parameters, steps int) []Parameter {
	if steps < 2 {
		steps = 5
	}
	half := decimal.NewFromFloat(0.5)
	oneAndHalf := decimal.NewFromFloat(1.5)
	params := []Parameter{
		{
			Name:        "churn_rate",
			MinValue:    p.ChurnRate.Mul(half),
			MaxValue:    minDecimal(p.ChurnRate.Mul(oneAndHalf), decimal.NewFromInt(1)),
			Steps:       steps,
			BaseValue:   p.ChurnRate,
			Description: "Annual contract cancellation rate",
		},
		{
			Name:        "maturity_return_rate",
			MinValue:    p.MaturityReturnRate.Mul(half),
			MaxValue:    p.MaturityReturnRate.Mul(oneAndHalf),
			Steps:       steps,
			BaseValue:   p.MaturityReturnRate,
			Description: "Guaranteed rate credited to maturing contracts",
		},
		{
			Name:        "house_price",
			MinValue:    p.HousePrice.Mul(decimal.NewFromFloat(0.8)),
			MaxValue:    p.HousePrice.Mul(decimal.NewFromFloat(1.2)),
			Steps:       steps,
			BaseValue:   p.HousePrice,
			Description: "Purchase price per house",
		},
	}
	return params
}

// AnalyzeParameters sweeps each parameter independently and combines the
// results into one analysis.
func (a *Analyzer) AnalyzeParameters(ctx context.Context, plan domain.Plan, parameters []Parameter) (*Analysis, error) {
	base := simulation.NewEngine(a.Params).Simulate(plan, simulation.ModeScored)

	analysis := &Analysis{
		Parameters:       parameters,
		BaseFinalBalance: base.FinalBalance,
		Summary: Summary{
			SensitivityScores: map[string]decimal.Decimal{},
		},
	}

	for _, param := range parameters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := a.sweep(plan, param, base.FinalBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to sweep %s: %w", param.Name, err)
		}
		analysis.Results = append(analysis.Results, results...)
		analysis.Summary.SensitivityScores[param.Name] = worstSwing(results)
		a.Logger.Debugf("swept %s over %d values, worst swing %s%%",
			param.Name, len(results), analysis.Summary.SensitivityScores[param.Name].StringFixed(1))
	}

	score := decimal.Zero
	for name, s := range analysis.Summary.SensitivityScores {
		if s.GreaterThan(score) {
			score = s
			analysis.Summary.MostSensitiveParameter = name
		}
	}
	analysis.Summary.RiskLevel = riskLevel(score)
	return analysis, nil
}

// sweep evaluates one parameter across its value grid.
func (a *Analyzer) sweep(plan domain.Plan, param Parameter, baseFinal decimal.Decimal) ([]Result, error) {
	values := parameterValues(param)
	results := make([]Result, 0, len(values))
	for _, value := range values {
		modified, err := applyParameter(a.Params, param.Name, value)
		if err != nil {
			return nil, err
		}
		run := simulation.NewEngine(modified).Simulate(plan, simulation.ModeScored)
		change := run.FinalBalance.Sub(baseFinal)
		results = append(results, Result{
			Parameter:          param.Name,
			Value:              value,
			Feasible:           run.Feasible,
			FinalBalance:       run.FinalBalance,
			MinBalance:         run.MinBalance,
			FinalBalanceChange: change,
			ChangePct:          percentOf(change, baseFinal),
		})
	}
	return results, nil
}

// applyParameter returns a copy of the parameters with one field replaced.
func applyParameter(p domain.Parameters, name string, value decimal.Decimal) (domain.Parameters, error) {
	switch name {
	case "churn_rate":
		p.ChurnRate = value
	case "refund_ratio":
		p.RefundRatio = value
	case "maturity_return_rate":
		p.MaturityReturnRate = value
	case "house_price":
		p.HousePrice = value
	case "installment":
		p.Installment = value
	case "deposit":
		p.Deposit = value
	case "initial_cash":
		p.InitialCash = value
	default:
		return p, fmt.Errorf("unknown sweep parameter %q", name)
	}
	return p, nil
}

// parameterValues generates the linear value grid for one parameter.
func parameterValues(param Parameter) []decimal.Decimal {
	if param.Steps <= 1 {
		return []decimal.Decimal{param.BaseValue}
	}
	values := make([]decimal.Decimal, 0, param.Steps)
	span := param.MaxValue.Sub(param.MinValue)
	step := span.Div(decimal.NewFromInt(int64(param.Steps - 1)))
	for i := 0; i < param.Steps; i++ {
		values = append(values, param.MinValue.Add(step.Mul(decimal.NewFromInt(int64(i)))))
	}
	return values
}

// worstSwing returns the largest absolute percentage change in a sweep.
func worstSwing(results []Result) decimal.Decimal {
	worst := decimal.Zero
	for _, r := range results {
		if abs := r.ChangePct.Abs(); abs.GreaterThan(worst) {
			worst = abs
		}
	}
	return worst
}

func percentOf(change, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return change.Div(base.Abs()).Mul(decimal.NewFromInt(100))
}

func riskLevel(worstPct decimal.Decimal) string {
	switch {
	case worstPct.LessThan(decimal.NewFromInt(10)):
		return "LOW"
	case worstPct.LessThan(decimal.NewFromInt(25)):
		return "MEDIUM"
	case worstPct.LessThan(decimal.NewFromInt(50)):
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
