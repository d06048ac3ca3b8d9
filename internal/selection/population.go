// Package selection holds the dashboard selection state as plain values.
//
// Every update returns a new state and leaves its receiver untouched, so a
// state can be shared, cached or replayed without copying.
package selection

import (
	"fmt"
	"slices"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/config"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/region"
)

// SortByName orders rows by region name instead of a bracket.
const SortByName = "name"

// Household chart sort keys.
const (
	HouseholdSortName       = "name"
	HouseholdSortPopulation = "population"
	HouseholdSortHouseholds = "households"
	HouseholdSortAvgSize    = "avgSize"
)

// MaxLevel is the deepest administrative level the datasets carry.
const MaxLevel = 4

// PopulationState is the population explorer selection.
type PopulationState struct {
	Level           int    `json:"level"`
	Region          string `json:"region"`
	SortBy          string `json:"sortBy"`
	HouseholdSortBy string `json:"householdSortBy"`
	AgeGrouping     string `json:"ageGrouping"`
}

// DefaultPopulationState is the state a fresh explorer starts in.
func DefaultPopulationState() PopulationState {
	return PopulationState{
		Level:           1,
		SortBy:          "60대이상",
		HouseholdSortBy: HouseholdSortName,
		AgeGrouping:     "default",
	}
}

// WithLevel switches level and clears the region, which belonged to the old level.
func (s PopulationState) WithLevel(level int) PopulationState {
	s.Level = level
	s.Region = ""
	return s
}

// WithRegion selects a region, resolving a province alias in its first token.
func (s PopulationState) WithRegion(name string, aliases region.AliasTable) PopulationState {
	s.Region = aliases.Normalize(region.CleanName(name))
	return s
}

// WithSort sets the table and chart sort key: SortByName or a bracket label.
func (s PopulationState) WithSort(key string) PopulationState {
	s.SortBy = key
	return s
}

// WithHouseholdSort sets the household chart sort key.
func (s PopulationState) WithHouseholdSort(key string) PopulationState {
	s.HouseholdSortBy = key
	return s
}

// WithAgeGrouping selects a bracket grouping by name.
func (s PopulationState) WithAgeGrouping(name string) PopulationState {
	s.AgeGrouping = name
	return s
}

// Validate checks the state against the policy's brackets and groupings.
func (s PopulationState) Validate(p *config.Policy) error {
	if s.Level < 1 || s.Level > MaxLevel {
		return domerrors.NewValidationError("level", fmt.Sprintf("must be 1..%d, got %d", MaxLevel, s.Level))
	}
	if s.SortBy != SortByName && !slices.ContainsFunc(p.Brackets, func(b aggregate.Bracket) bool { return b.Label == s.SortBy }) {
		return domerrors.NewValidationError("sortBy", fmt.Sprintf("unknown sort key %q", s.SortBy))
	}
	switch s.HouseholdSortBy {
	case HouseholdSortName, HouseholdSortPopulation, HouseholdSortHouseholds, HouseholdSortAvgSize:
	default:
		return domerrors.NewValidationError("householdSortBy", fmt.Sprintf("unknown sort key %q", s.HouseholdSortBy))
	}
	for _, g := range p.Groupings {
		if g.Name == s.AgeGrouping {
			return nil
		}
	}
	return domerrors.NewValidationError("ageGrouping", fmt.Sprintf("unknown grouping %q", s.AgeGrouping))
}
