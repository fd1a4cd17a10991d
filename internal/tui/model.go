// Package tui provides an interactive front-end for the plan search: live
// progress while the optimizer runs, then the best plan's balance trajectory.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jseok/housingfund/internal/optimize"
	"github.com/jseok/housingfund/internal/output"
)

// searchEvent flows from the optimizer goroutine into the model.
type searchEvent struct {
	state  *optimize.SearchState
	result *optimize.SearchResult
	err    error
}

type progressMsg struct{ state optimize.SearchState }

type doneMsg struct {
	result *optimize.SearchResult
	err    error
}

// Model drives the optimization view.
type Model struct {
	optimizer *optimize.Optimizer
	budget    time.Duration

	spinner  spinner.Model
	progress progress.Model
	chart    *BalanceChart

	state  optimize.SearchState
	result *optimize.SearchResult
	err    error
	done   bool

	events chan searchEvent
}

// NewModel builds the view around a configured optimizer. The optimizer's
// Progress callback is claimed by the model.
func NewModel(opt *optimize.Optimizer) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	m := Model{
		optimizer: opt,
		budget:    opt.Options.TimeBudget,
		spinner:   s,
		progress:  progress.New(progress.WithDefaultGradient()),
		chart:     NewBalanceChart("Balance trajectory"),
		events:    make(chan searchEvent, 8),
	}
	opt.Progress = m.pushState
	return m
}

// pushState forwards optimizer snapshots without ever blocking the search.
func (m Model) pushState(state optimize.SearchState) {
	select {
	case m.events <- searchEvent{state: &state}:
	default:
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSearch(), m.nextEvent())
}

// startSearch runs the optimizer; its completion is delivered through the
// event channel so it cannot race with progress snapshots.
func (m Model) startSearch() tea.Cmd {
	return func() tea.Msg {
		result, err := m.optimizer.Search(context.Background())
		m.events <- searchEvent{result: result, err: err}
		return nil
	}
}

func (m Model) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev := <-m.events
		if ev.state != nil {
			return progressMsg{state: *ev.state}
		}
		return doneMsg{result: ev.result, err: ev.err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	case progressMsg:
		m.state = msg.state
		return m, m.nextEvent()
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.done {
		return m.finalView()
	}
	return m.runningView()
}

func (m Model) runningView() string {
	pct := 0.0
	if m.budget > 0 {
		pct = float64(m.state.Elapsed) / float64(m.budget)
		if pct > 1 {
			pct = 1
		}
	}

	body := fmt.Sprintf("%s Searching plans  %s\n\n%s\n\n%s %s\n%s %d    %s %d",
		m.spinner.View(),
		PhaseStyle.Render(string(m.state.Phase)),
		m.progress.ViewAs(pct),
		MetricLabelStyle.Render("best score:"),
		MetricValueStyle.Render(bestScore(m.state)),
		MetricLabelStyle.Render("evaluated:"),
		m.state.Evaluated,
		MetricLabelStyle.Render("accepted:"),
		m.state.Accepted,
	)
	return PanelStyle.Render(body) + "\n" + HelpStyle.Render("q: quit")
}

func (m Model) finalView() string {
	if m.err != nil {
		return PanelStyle.Render(ErrorStyle.Render("search failed: "+m.err.Error())) +
			"\n" + HelpStyle.Render("q: quit")
	}

	feasible := MetricPositiveStyle.Render("feasible")
	if !m.result.BestResult.Feasible {
		feasible = MetricNegativeStyle.Render("infeasible")
	}

	body := fmt.Sprintf("%s\n\n%s %s    %s %s    %s %d\n%s %d plans in %s\n\n%s",
		TitleStyle.Render("Best plan found"),
		MetricLabelStyle.Render("final balance:"),
		MetricValueStyle.Render(output.FormatAmount(m.result.BestResult.FinalBalance)),
		MetricLabelStyle.Render("plan is"),
		feasible,
		MetricLabelStyle.Render("houses:"),
		m.result.BestResult.HousesPurchased,
		MetricLabelStyle.Render("evaluated"),
		m.result.Evaluated,
		m.result.Elapsed.Round(time.Millisecond),
		m.chart.Render(m.result.BestResult.Balances),
	)
	return PanelStyle.Render(body) + "\n" + HelpStyle.Render("q: quit")
}

func bestScore(state optimize.SearchState) string {
	if state.Best == nil {
		return "n/a"
	}
	return output.FormatAmount(state.BestScore)
}
