// Package config parses and validates the planner's YAML input.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jseok/housingfund/internal/domain"
	"github.com/jseok/housingfund/internal/optimize"
)

// Input bundles everything the planner needs for one run: the parameter
// record, the sampled plan space, and the search settings.
type Input struct {
	Parameters domain.Parameters
	Bounds     optimize.Bounds
	Search     optimize.SearchOptions
}

// inputFile mirrors the YAML schema with plain numeric fields. Decimal
// conversion happens after parsing; yaml.v3 cannot decode into
// decimal.Decimal directly.
type inputFile struct {
	Parameters parametersFile `yaml:"parameters"`
	Bounds     boundsFile     `yaml:"bounds"`
	Search     searchFile     `yaml:"search"`
}

type parametersFile struct {
	Installment        float64 `yaml:"installment"`
	Deposit            float64 `yaml:"deposit"`
	HousePrice         float64 `yaml:"house_price"`
	ContractTerm       int     `yaml:"contract_term"`
	ChurnRate          float64 `yaml:"churn_rate"`
	RefundRatio        float64 `yaml:"refund_ratio"`
	MaturityReturnRate float64 `yaml:"maturity_return_rate"`
	InitialCash        float64 `yaml:"initial_cash"`
	HorizonYears       int     `yaml:"horizon_years"`
	EligibleYears      []int   `yaml:"eligible_years"`
	DemandTarget       int     `yaml:"demand_target"`

	ReserveFraction      float64 `yaml:"reserve_fraction"`
	SpeculativePurchases bool    `yaml:"speculative_purchases"`
	CarryForwardDemand   bool    `yaml:"carry_forward_demand"`
	MultiPurchasePerYear bool    `yaml:"multi_purchase_per_year"`
}

type boundsFile struct {
	MaxStandardPerYear int     `yaml:"max_standard_per_year"`
	MaxDepositPerYear  int     `yaml:"max_deposit_per_year"`
	MaxPurchaseSignals int     `yaml:"max_purchase_signals"`
	ReturnRateMin      float64 `yaml:"return_rate_min"`
	ReturnRateMax      float64 `yaml:"return_rate_max"`
}

type searchFile struct {
	SampleBudget      int     `yaml:"sample_budget"`
	TimeBudgetSeconds float64 `yaml:"time_budget_seconds"`
	Workers           int     `yaml:"workers"`
	MaxMutations      int     `yaml:"max_mutations"`
	PenaltyWeight     float64 `yaml:"penalty_weight"`
	UsableThreshold   float64 `yaml:"usable_threshold"`
	Seed              int64   `yaml:"seed"`
}

// InputParser handles parsing of input configuration files.
type InputParser struct{}

// NewInputParser creates a new input parser.
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads and validates a planner configuration from a YAML file.
func (ip *InputParser) LoadFromFile(filename string) (*Input, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.Parse(data)
}

// Parse decodes and validates a YAML document.
func (ip *InputParser) Parse(data []byte) (*Input, error) {
	var raw inputFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	input := &Input{
		Parameters: raw.Parameters.toDomain(),
		Bounds:     raw.Bounds.toDomain(),
		Search:     raw.Search.toOptions(),
	}
	if err := ip.Validate(input); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return input, nil
}

// Validate checks the full input; violations are fatal and surface before
// any simulation is attempted.
func (ip *InputParser) Validate(input *Input) error {
	if err := ip.validateParameters(&input.Parameters); err != nil {
		return fmt.Errorf("parameters validation failed: %w", err)
	}
	if err := input.Bounds.Validate(input.Parameters.HorizonYears); err != nil {
		return fmt.Errorf("bounds validation failed: %w", err)
	}
	if input.Search.SampleBudget < 0 {
		return fmt.Errorf("search validation failed: sample_budget cannot be negative")
	}
	return nil
}

func (ip *InputParser) validateParameters(p *domain.Parameters) error {
	if p.HorizonYears <= 0 {
		return fmt.Errorf("horizon_years must be at least 1")
	}
	if p.ContractTerm <= 0 {
		return fmt.Errorf("contract_term must be at least 1")
	}
	if p.Installment.LessThan(decimal.Zero) {
		return fmt.Errorf("installment cannot be negative")
	}
	if p.Deposit.LessThan(decimal.Zero) {
		return fmt.Errorf("deposit cannot be negative")
	}
	if p.HousePrice.LessThan(decimal.Zero) {
		return fmt.Errorf("house_price cannot be negative")
	}
	if p.InitialCash.LessThan(decimal.Zero) {
		return fmt.Errorf("initial_cash cannot be negative")
	}
	if p.ChurnRate.LessThan(decimal.Zero) || p.ChurnRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("churn_rate must be between 0 and 1")
	}
	if p.RefundRatio.LessThan(decimal.Zero) || p.RefundRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("refund_ratio must be between 0 and 1")
	}
	if p.MaturityReturnRate.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return fmt.Errorf("maturity_return_rate cannot be -100%% or lower")
	}
	if p.DemandTarget < 0 {
		return fmt.Errorf("demand_target cannot be negative")
	}
	if p.Policy.ReserveFraction.LessThan(decimal.Zero) || p.Policy.ReserveFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("reserve_fraction must be between 0 and 1")
	}
	for _, y := range p.PurchaseCalendar.EligibleYears {
		if y < 0 {
			return fmt.Errorf("eligible_years cannot contain negative years")
		}
	}
	if len(p.PurchaseCalendar.EligibleYears) > 0 && p.HousePrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("house_price must be positive when purchase years are configured")
	}
	return nil
}

// LoadPlanFromFile reads a stored plan (the optimizer's output format) back
// in, for replaying a single plan.
func (ip *InputParser) LoadPlanFromFile(filename string) (domain.Plan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	var raw struct {
		StandardIssuance []int  `yaml:"standard_issuance"`
		DepositIssuance  []int  `yaml:"deposit_issuance"`
		BuySignals       []bool `yaml:"buy_signals"`
		ReturnRate       string `yaml:"return_rate"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Plan{}, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	rate := decimal.Zero
	if raw.ReturnRate != "" {
		rate, err = decimal.NewFromString(raw.ReturnRate)
		if err != nil {
			return domain.Plan{}, fmt.Errorf("invalid return_rate %q: %w", raw.ReturnRate, err)
		}
	}
	return domain.Plan{
		StandardIssuance: raw.StandardIssuance,
		DepositIssuance:  raw.DepositIssuance,
		BuySignals:       raw.BuySignals,
		ReturnRate:       rate,
	}, nil
}

func (pf parametersFile) toDomain() domain.Parameters {
	return domain.Parameters{
		Installment:        decimal.NewFromFloat(pf.Installment),
		Deposit:            decimal.NewFromFloat(pf.Deposit),
		HousePrice:         decimal.NewFromFloat(pf.HousePrice),
		ContractTerm:       pf.ContractTerm,
		ChurnRate:          decimal.NewFromFloat(pf.ChurnRate),
		RefundRatio:        decimal.NewFromFloat(pf.RefundRatio),
		MaturityReturnRate: decimal.NewFromFloat(pf.MaturityReturnRate),
		InitialCash:        decimal.NewFromFloat(pf.InitialCash),
		HorizonYears:       pf.HorizonYears,
		PurchaseCalendar:   domain.PurchaseCalendar{EligibleYears: pf.EligibleYears},
		DemandTarget:       pf.DemandTarget,
		Policy: domain.PurchasePolicy{
			ReserveFraction:      decimal.NewFromFloat(pf.ReserveFraction),
			SpeculativePurchases: pf.SpeculativePurchases,
			CarryForwardDemand:   pf.CarryForwardDemand,
			MultiPurchasePerYear: pf.MultiPurchasePerYear,
		},
	}
}

func (bf boundsFile) toDomain() optimize.Bounds {
	return optimize.Bounds{
		MaxStandardPerYear: bf.MaxStandardPerYear,
		MaxDepositPerYear:  bf.MaxDepositPerYear,
		MaxPurchaseSignals: bf.MaxPurchaseSignals,
		ReturnRateMin:      decimal.NewFromFloat(bf.ReturnRateMin),
		ReturnRateMax:      decimal.NewFromFloat(bf.ReturnRateMax),
	}
}

func (sf searchFile) toOptions() optimize.SearchOptions {
	opts := optimize.DefaultSearchOptions()
	if sf.SampleBudget != 0 {
		opts.SampleBudget = sf.SampleBudget
	}
	if sf.TimeBudgetSeconds > 0 {
		opts.TimeBudget = time.Duration(sf.TimeBudgetSeconds * float64(time.Second))
	}
	if sf.Workers > 0 {
		opts.Workers = sf.Workers
	}
	if sf.MaxMutations > 0 {
		opts.MaxMutations = sf.MaxMutations
	}
	if sf.PenaltyWeight > 0 {
		opts.PenaltyWeight = decimal.NewFromFloat(sf.PenaltyWeight)
	}
	if sf.UsableThreshold != 0 {
		opts.UsableThreshold = decimal.NewFromFloat(sf.UsableThreshold)
	}
	if sf.Seed != 0 {
		opts.Seed = sf.Seed
	}
	return opts
}
