package selection

import (
	"fmt"

	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/region"
)

// PopulationUpdate is one user action on the population explorer.
type PopulationUpdate struct {
	Type  string `json:"type" binding:"required"` // level, region, sort, householdSort, ageGrouping
	Level int    `json:"level"`
	Value string `json:"value"`
}

// ApplyPopulation returns the state after u.
func ApplyPopulation(s PopulationState, u PopulationUpdate, aliases region.AliasTable) (PopulationState, error) {
	switch u.Type {
	case "level":
		return s.WithLevel(u.Level), nil
	case "region":
		return s.WithRegion(u.Value, aliases), nil
	case "sort":
		return s.WithSort(u.Value), nil
	case "householdSort":
		return s.WithHouseholdSort(u.Value), nil
	case "ageGrouping":
		return s.WithAgeGrouping(u.Value), nil
	default:
		return s, domerrors.NewValidationError("type", fmt.Sprintf("unknown population update %q", u.Type))
	}
}

// SupplyUpdate is one user action on the supply calendar.
type SupplyUpdate struct {
	Type      string `json:"type" binding:"required"` // add, remove, move, reorder, years
	Region    string `json:"region"`
	Index     int    `json:"index"`
	Direction int    `json:"direction"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	StartYear int    `json:"startYear"`
	YearCount int    `json:"yearCount"`
}

// ApplySupply returns the state after u.
func ApplySupply(s SupplyState, u SupplyUpdate) (SupplyState, error) {
	switch u.Type {
	case "add":
		return s.Add(u.Region), nil
	case "remove":
		return s.Remove(u.Region), nil
	case "move":
		if u.Direction != -1 && u.Direction != 1 {
			return s, domerrors.NewValidationError("direction", "must be -1 or 1")
		}
		return s.Move(u.Index, u.Direction), nil
	case "reorder":
		return s.Reorder(u.From, u.To), nil
	case "years":
		next := s.WithYears(u.StartYear, u.YearCount)
		if err := next.Validate(); err != nil {
			return s, err
		}
		return next, nil
	default:
		return s, domerrors.NewValidationError("type", fmt.Sprintf("unknown supply update %q", u.Type))
	}
}
