package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jseok/housingfund/internal/config"
	"github.com/jseok/housingfund/internal/optimize"
	"github.com/jseok/housingfund/internal/output"
	"github.com/jseok/housingfund/internal/sensitivity"
	"github.com/jseok/housingfund/internal/simulation"
	"github.com/jseok/housingfund/internal/solve"
	"github.com/jseok/housingfund/internal/tui"
)

// simpleCLILogger implements simulation.Logger using the standard log package
type simpleCLILogger struct{}

func (simpleCLILogger) Debugf(format string, args ...any) { log.Printf("DEBUG: "+format, args...) }
func (simpleCLILogger) Infof(format string, args ...any)  { log.Printf("INFO: "+format, args...) }
func (simpleCLILogger) Warnf(format string, args ...any)  { log.Printf("WARN: "+format, args...) }
func (simpleCLILogger) Errorf(format string, args ...any) { log.Printf("ERROR: "+format, args...) }

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "housingfund",
	Short: "Housing-deposit fund cashflow planner",
	Long:  "Simulates the multi-decade cashflow of a housing-deposit financing scheme and searches for solvent issuance plans",
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [input-file]",
	Short: "Search for the best issuance and purchase plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := config.NewInputParser().LoadFromFile(args[0])
		if err != nil {
			return err
		}
		applySearchFlags(cmd, &input.Search)

		engine := simulation.NewEngine(input.Parameters)
		opt := optimize.NewOptimizer(engine, input.Bounds, input.Search)
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger := simpleCLILogger{}
			engine.SetLogger(logger)
			opt.Logger = logger
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := opt.Search(ctx)
		if err != nil {
			return err
		}

		output.NewReportGenerator(os.Stdout).WriteSummary(result.BestPlan, result.BestResult)

		if path, _ := cmd.Flags().GetString("plan-out"); path != "" {
			data, err := (output.PlanYAML{}).Format(result.BestPlan)
			if err != nil {
				return fmt.Errorf("failed to render plan: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		if path, _ := cmd.Flags().GetString("plan-csv"); path != "" {
			data, err := (output.PlanCSV{}).Format(result.BestPlan, result.BestResult)
			if err != nil {
				return fmt.Errorf("failed to render plan CSV: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		if path, _ := cmd.Flags().GetString("balances-csv"); path != "" {
			data, err := (output.BalanceCSV{}).Format(result.BestResult)
			if err != nil {
				return fmt.Errorf("failed to render balances CSV: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [input-file]",
	Short: "Replay a single stored plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := config.NewInputParser()
		input, err := parser.LoadFromFile(args[0])
		if err != nil {
			return err
		}
		planFile, _ := cmd.Flags().GetString("plan")
		if planFile == "" {
			return fmt.Errorf("--plan is required")
		}
		plan, err := parser.LoadPlanFromFile(planFile)
		if err != nil {
			return err
		}

		mode := simulation.ModeScored
		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			mode = simulation.ModeStrict
		}

		engine := simulation.NewEngine(input.Parameters)
		result := engine.Simulate(plan, mode)
		output.NewReportGenerator(os.Stdout).WriteSummary(plan, result)

		if path, _ := cmd.Flags().GetString("balances-csv"); path != "" {
			data, err := (output.BalanceCSV{}).Format(result)
			if err != nil {
				return fmt.Errorf("failed to render balances CSV: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		return nil
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve [input-file]",
	Short: "Find the solvency threshold of a stored plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := config.NewInputParser()
		input, err := parser.LoadFromFile(args[0])
		if err != nil {
			return err
		}
		planFile, _ := cmd.Flags().GetString("plan")
		if planFile == "" {
			return fmt.Errorf("--plan is required")
		}
		plan, err := parser.LoadPlanFromFile(planFile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		solver := solve.NewSolver(input.Parameters, solve.DefaultOptions())
		target, _ := cmd.Flags().GetString("target")

		var result *solve.Result
		switch solve.Target(target) {
		case solve.TargetInitialCash:
			result, err = solver.MinimumInitialCash(ctx, plan)
		case solve.TargetReturnRate:
			solver.Options.Tolerance = decimal.NewFromFloat(0.0001)
			result, err = solver.MinimumReturnRate(ctx, plan, input.Bounds.ReturnRateMin, input.Bounds.ReturnRateMax)
		default:
			return fmt.Errorf("unknown solve target %q (want %s or %s)", target, solve.TargetInitialCash, solve.TargetReturnRate)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Solved %s: %s (%d iterations, converged: %v)\n",
			result.Target, result.Value.String(), result.Iterations, result.Converged)
		output.NewReportGenerator(os.Stdout).WriteSummary(plan, result.Simulation)
		return nil
	},
}

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity [input-file]",
	Short: "Sweep scheme parameters around their configured values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := config.NewInputParser()
		input, err := parser.LoadFromFile(args[0])
		if err != nil {
			return err
		}
		planFile, _ := cmd.Flags().GetString("plan")
		if planFile == "" {
			return fmt.Errorf("--plan is required")
		}
		plan, err := parser.LoadPlanFromFile(planFile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		steps, _ := cmd.Flags().GetInt("steps")
		analyzer := sensitivity.NewAnalyzer(input.Parameters)
		analysis, err := analyzer.AnalyzeParameters(ctx, plan, sensitivity.DefaultParameters(input.Parameters, steps))
		if err != nil {
			return err
		}

		output.NewReportGenerator(os.Stdout).WriteSensitivity(analysis)
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui [input-file]",
	Short: "Run the plan search with a live terminal view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := config.NewInputParser().LoadFromFile(args[0])
		if err != nil {
			return err
		}
		applySearchFlags(cmd, &input.Search)

		engine := simulation.NewEngine(input.Parameters)
		opt := optimize.NewOptimizer(engine, input.Bounds, input.Search)
		model := tui.NewModel(opt)

		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("tui failed: %w", err)
		}
		return nil
	},
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "housingfund %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(os.Stdout, bi.Main.Version)
			}
		},
	}
}

// applySearchFlags lets command-line flags override the config file.
func applySearchFlags(cmd *cobra.Command, opts *optimize.SearchOptions) {
	if seconds, _ := cmd.Flags().GetFloat64("time-budget"); seconds > 0 {
		opts.TimeBudget = time.Duration(seconds * float64(time.Second))
	}
	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		opts.Seed = seed
	}
	if samples, _ := cmd.Flags().GetInt("samples"); samples > 0 {
		opts.SampleBudget = samples
	}
}

func init() {
	for _, cmd := range []*cobra.Command{optimizeCmd, tuiCmd} {
		cmd.Flags().Float64("time-budget", 0, "search time budget in seconds")
		cmd.Flags().Int64("seed", 0, "random seed (0 uses a time-based seed)")
		cmd.Flags().Int("samples", 0, "random sampling budget")
	}
	optimizeCmd.Flags().Bool("verbose", false, "enable debug logging")
	optimizeCmd.Flags().String("plan-out", "", "write the best plan as YAML")
	optimizeCmd.Flags().String("plan-csv", "", "write the best plan as CSV")
	optimizeCmd.Flags().String("balances-csv", "", "write the balance trajectory as CSV")

	simulateCmd.Flags().String("plan", "", "plan YAML file to replay")
	simulateCmd.Flags().Bool("strict", false, "stop at the first insolvent year")
	simulateCmd.Flags().String("balances-csv", "", "write the balance trajectory as CSV")

	solveCmd.Flags().String("plan", "", "plan YAML file to analyze")
	solveCmd.Flags().String("target", string(solve.TargetInitialCash), "quantity to solve for: initial_cash or return_rate")

	sensitivityCmd.Flags().String("plan", "", "plan YAML file to analyze")
	sensitivityCmd.Flags().Int("steps", 5, "sweep steps per parameter")

	rootCmd.AddCommand(optimizeCmd, simulateCmd, solveCmd, sensitivityCmd, tuiCmd, versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
