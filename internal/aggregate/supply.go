package aggregate

import (
	"github.com/shopspring/decimal"
)

// DefaultSupplyRatio is the target number of new units per resident per year (0.5%).
var DefaultSupplyRatio = decimal.RequireFromString("0.005")

// ComputeOptimalSupply returns round(population × 0.005).
func ComputeOptimalSupply(population int64) int64 {
	return OptimalSupply(population, DefaultSupplyRatio)
}

// OptimalSupply returns round(population × ratio), halves rounded up.
func OptimalSupply(population int64, ratio decimal.Decimal) int64 {
	return decimal.NewFromInt(population).Mul(ratio).Round(0).IntPart()
}

// RoundedAverage is the mean of values rounded to the nearest integer.
func RoundedAverage(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(values)))).Round(0).IntPart()
}

// Grade is a supply band with its display label and colour.
type Grade struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Band is an inclusive upper bound on actual/optimal and the grade it maps to.
type Band struct {
	Max   decimal.Decimal
	Grade Grade
}

// Scale classifies actual supply against optimal supply. Bands are checked in
// order; the first band whose bound is not exceeded wins, so a ratio exactly on
// a boundary falls into the lower band. Ratios above every band get Above.
type Scale struct {
	Bands []Band
	Above Grade
}

// DefaultScale returns the seven-band supply scale.
func DefaultScale() Scale {
	return Scale{
		Bands: []Band{
			{Max: decimal.RequireFromString("0.5"), Grade: Grade{Label: "S (부족)", Color: "#83ABD6"}},
			{Max: decimal.RequireFromString("0.8"), Grade: Grade{Label: "A (부족)", Color: "#5FCEA4"}},
			{Max: decimal.RequireFromString("1.0"), Grade: Grade{Label: "A (적정)", Color: "#5FCEA4"}},
			{Max: decimal.RequireFromString("1.2"), Grade: Grade{Label: "B (적정)", Color: "#ECB751"}},
			{Max: decimal.RequireFromString("1.4"), Grade: Grade{Label: "B (초과)", Color: "#ECB751"}},
			{Max: decimal.RequireFromString("2.0"), Grade: Grade{Label: "B (과잉)", Color: "#ECB751"}},
		},
		Above: Grade{Label: "C (적정)", Color: "#ED6C69"},
	}
}

// Classify compares actual against optimal×Max for each band using exact
// decimal arithmetic.
func (s Scale) Classify(actual, optimal int64) Grade {
	a := decimal.NewFromInt(actual)
	o := decimal.NewFromInt(optimal)
	for _, b := range s.Bands {
		if a.LessThanOrEqual(o.Mul(b.Max)) {
			return b.Grade
		}
	}
	return s.Above
}

// ClassifySupplyLevel grades actual supply on the default scale.
func ClassifySupplyLevel(actual, optimal int64) Grade {
	return DefaultScale().Classify(actual, optimal)
}
