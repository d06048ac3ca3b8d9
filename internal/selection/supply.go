package selection

import (
	"fmt"
	"slices"

	domerrors "github.com/garyellow/regionstat/internal/errors"
)

// MaxYearCount bounds the region/year chart width.
const MaxYearCount = 10

// SupplyState is the supply calendar selection. Regions keep the order the
// user arranged them in.
type SupplyState struct {
	Regions   []string `json:"regions"`
	StartYear int      `json:"startYear"`
	YearCount int      `json:"yearCount"`
}

// DefaultSupplyState starts with no regions and the policy's chart window.
func DefaultSupplyState(startYear, yearCount int) SupplyState {
	return SupplyState{Regions: []string{}, StartYear: startYear, YearCount: yearCount}
}

// Add appends a region unless it is blank or already selected.
func (s SupplyState) Add(name string) SupplyState {
	if name == "" || slices.Contains(s.Regions, name) {
		return s.clone()
	}
	next := s.clone()
	next.Regions = append(next.Regions, name)
	return next
}

// Remove drops a region; unknown names are ignored.
func (s SupplyState) Remove(name string) SupplyState {
	next := s.clone()
	next.Regions = slices.DeleteFunc(next.Regions, func(r string) bool { return r == name })
	return next
}

// Move swaps the region at index with its neighbour in direction (-1 or +1).
// Moves past either end leave the order unchanged.
func (s SupplyState) Move(index, direction int) SupplyState {
	next := s.clone()
	to := index + direction
	if (direction != -1 && direction != 1) || index < 0 || index >= len(next.Regions) || to < 0 || to >= len(next.Regions) {
		return next
	}
	next.Regions[index], next.Regions[to] = next.Regions[to], next.Regions[index]
	return next
}

// Reorder removes the region at from and inserts it at to, as a drag and
// drop does. Out-of-range indices leave the order unchanged.
func (s SupplyState) Reorder(from, to int) SupplyState {
	next := s.clone()
	n := len(next.Regions)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return next
	}
	moved := next.Regions[from]
	next.Regions = slices.Delete(next.Regions, from, from+1)
	next.Regions = slices.Insert(next.Regions, to, moved)
	return next
}

// WithYears sets the region/year chart window.
func (s SupplyState) WithYears(startYear, yearCount int) SupplyState {
	next := s.clone()
	next.StartYear = startYear
	next.YearCount = yearCount
	return next
}

// Years lists the chart window.
func (s SupplyState) Years() []int {
	years := make([]int, 0, max(s.YearCount, 0))
	for i := range s.YearCount {
		years = append(years, s.StartYear+i)
	}
	return years
}

// Validate checks the year window and rejects duplicate regions.
func (s SupplyState) Validate() error {
	if s.YearCount < 1 || s.YearCount > MaxYearCount {
		return domerrors.NewValidationError("yearCount", fmt.Sprintf("must be 1..%d, got %d", MaxYearCount, s.YearCount))
	}
	if s.StartYear < 1900 || s.StartYear > 2100 {
		return domerrors.NewValidationError("startYear", fmt.Sprintf("out of range: %d", s.StartYear))
	}
	seen := make(map[string]bool, len(s.Regions))
	for _, r := range s.Regions {
		if seen[r] {
			return domerrors.NewValidationError("regions", fmt.Sprintf("%q selected twice", r))
		}
		seen[r] = true
	}
	return nil
}

func (s SupplyState) clone() SupplyState {
	s.Regions = append([]string{}, s.Regions...)
	return s
}
