// Package view projects a selection state over a loaded snapshot into the rows
// and chart series the dashboards render.
//
// A Builder holds only policy values, so one Builder serves every request.
package view

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/config"
	"github.com/garyellow/regionstat/internal/region"
)

// Series kinds understood by the chart renderer.
const (
	SeriesBar  = "bar"
	SeriesLine = "line"
)

// Series is one named data series of a chart, aligned with Chart.Labels.
type Series struct {
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	Color  string    `json:"color,omitempty"`
	Values []float64 `json:"values"`
}

// Chart is a label list plus the series drawn over it.
type Chart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
	// Totals are optional per-label captions drawn above stacked bars.
	Totals []string `json:"totals,omitempty"`
}

// Empty reports whether the chart has nothing to draw.
func (c Chart) Empty() bool {
	return len(c.Labels) == 0 || len(c.Series) == 0
}

// Builder projects states into views using one policy.
type Builder struct {
	policy    *config.Policy
	aliases   region.AliasTable
	brackets  []aggregate.Bracket
	groupings []aggregate.Grouping
	ratio     decimal.Decimal
	scale     aggregate.Scale
	views     config.ViewPolicy
}

// NewBuilder validates the policy and prepares a Builder.
func NewBuilder(p *config.Policy) (*Builder, error) {
	ratio, err := p.SupplyRatio()
	if err != nil {
		return nil, fmt.Errorf("view builder: %w", err)
	}
	scale, err := p.Scale()
	if err != nil {
		return nil, fmt.Errorf("view builder: %w", err)
	}
	return &Builder{
		policy:    p,
		aliases:   p.AliasTable(),
		brackets:  p.Brackets,
		groupings: p.Groupings,
		ratio:     ratio,
		scale:     scale,
		views:     p.Views,
	}, nil
}

// Policy returns the policy the builder was made from.
func (b *Builder) Policy() *config.Policy { return b.policy }

// Aliases returns the province alias table.
func (b *Builder) Aliases() region.AliasTable { return b.aliases }

// FormatCount renders an integer with Korean digit grouping, e.g. "1,234,567".
func FormatCount(n int64) string {
	return message.NewPrinter(language.Korean).Sprintf("%d", n)
}

// FormatManUnits renders a total in units of 10,000 with one decimal, e.g. 15000 → "1.5만".
// The value is first rounded to the nearest thousand.
func FormatManUnits(n int64) string {
	thousands := decimal.NewFromInt(n).Div(decimal.NewFromInt(1000)).Round(0)
	return thousands.Div(decimal.NewFromInt(10)).StringFixed(1) + "만"
}

func palette(colors []string, i int) string {
	if len(colors) == 0 {
		return ""
	}
	return colors[i%len(colors)]
}

func yearLabel(year int) string {
	return fmt.Sprintf("%d년", year)
}
