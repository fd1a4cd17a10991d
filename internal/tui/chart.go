package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// BalanceChart plots a single balance trajectory as a compact ASCII chart.
type BalanceChart struct {
	Title  string
	Width  int
	Height int
}

// NewBalanceChart creates a chart with default dimensions.
func NewBalanceChart(title string) *BalanceChart {
	return &BalanceChart{Title: title, Width: 64, Height: 12}
}

// Render draws the trajectory, one point per simulated year.
func (c *BalanceChart) Render(balances []decimal.Decimal) string {
	if len(balances) == 0 {
		return MetricLabelStyle.Render("no trajectory to display")
	}

	points := make([]float64, len(balances))
	for i, b := range balances {
		points[i], _ = b.Float64()
	}
	minVal, maxVal := rangeOf(points)

	var out strings.Builder
	if c.Title != "" {
		out.WriteString(TitleStyle.Render(c.Title))
		out.WriteString("\n")
	}
	out.WriteString(c.renderGrid(points, minVal, maxVal))
	return out.String()
}

func (c *BalanceChart) renderGrid(points []float64, minVal, maxVal float64) string {
	yAxisWidth := 10
	chartWidth := c.Width - yAxisWidth
	if chartWidth < 8 {
		chartWidth = 8
	}

	grid := make([][]rune, c.Height)
	for i := range grid {
		grid[i] = make([]rune, chartWidth)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	plot := func(i int) (int, int) {
		x := 0
		if len(points) > 1 {
			x = int(float64(i) / float64(len(points)-1) * float64(chartWidth-1))
		}
		y := c.Height - 1
		if maxVal > minVal {
			y = c.Height - 1 - int((points[i]-minVal)/(maxVal-minVal)*float64(c.Height-1))
		}
		return x, y
	}

	for i := range points {
		x, y := plot(i)
		if x >= 0 && x < chartWidth && y >= 0 && y < c.Height {
			grid[y][x] = '●'
		}
		if i > 0 {
			px, py := plot(i - 1)
			drawLine(grid, px, py, x, y)
		}
	}

	var out strings.Builder
	axisStyle := MetricLabelStyle.Width(yAxisWidth).Align(lipgloss.Right)
	for i, row := range grid {
		yValue := maxVal
		if c.Height > 1 {
			yValue = maxVal - (float64(i)/float64(c.Height-1))*(maxVal-minVal)
		}
		out.WriteString(axisStyle.Render(formatChartValue(yValue)))
		out.WriteString(" │ ")
		out.WriteString(string(row))
		out.WriteString("\n")
	}
	out.WriteString(strings.Repeat(" ", yAxisWidth))
	out.WriteString(" └")
	out.WriteString(strings.Repeat("─", chartWidth))
	out.WriteString("\n")
	out.WriteString(strings.Repeat(" ", yAxisWidth+3))
	out.WriteString(MetricLabelStyle.Render(fmt.Sprintf("year 1 .. %d", len(points))))
	return out.String()
}

// drawLine connects two grid points with Bresenham's algorithm, never
// overwriting plotted markers.
func drawLine(grid [][]rune, x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	x, y := x0, y0
	for {
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) && grid[y][x] == ' ' {
			grid[y][x] = '·'
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

func rangeOf(points []float64) (float64, float64) {
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for _, p := range points {
		if p < minVal {
			minVal = p
		}
		if p > maxVal {
			maxVal = p
		}
	}
	padding := (maxVal - minVal) * 0.1
	return minVal - padding, maxVal + padding
}

func formatChartValue(value float64) string {
	switch {
	case math.Abs(value) >= 1e9:
		return fmt.Sprintf("%.1fB", value/1e9)
	case math.Abs(value) >= 1e6:
		return fmt.Sprintf("%.1fM", value/1e6)
	case math.Abs(value) >= 1e3:
		return fmt.Sprintf("%.0fK", value/1e3)
	}
	return fmt.Sprintf("%.0f", value)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
