package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/regionstat/internal/config"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/region"
)

func TestPopulationState_Updates(t *testing.T) {
	t.Parallel()

	aliases := region.DefaultAliases()
	start := DefaultPopulationState()

	s := start.WithRegion("경기 수원시 (4111000000)", aliases)
	assert.Equal(t, "경기도 수원시", s.Region)
	assert.Empty(t, start.Region, "receiver must not change")

	s = s.WithSort(SortByName).WithHouseholdSort(HouseholdSortAvgSize).WithAgeGrouping("group1")
	assert.Equal(t, PopulationState{
		Level: 1, Region: "경기도 수원시", SortBy: SortByName,
		HouseholdSortBy: HouseholdSortAvgSize, AgeGrouping: "group1",
	}, s)

	lv := s.WithLevel(2)
	assert.Equal(t, 2, lv.Level)
	assert.Empty(t, lv.Region, "changing level clears the region")
	assert.Equal(t, "경기도 수원시", s.Region)
}

func TestPopulationState_Validate(t *testing.T) {
	t.Parallel()

	p := config.DefaultPolicy()
	require.NoError(t, DefaultPopulationState().Validate(p))

	tests := []struct {
		name  string
		state PopulationState
	}{
		{"level zero", DefaultPopulationState().WithLevel(0)},
		{"level too deep", DefaultPopulationState().WithLevel(MaxLevel + 1)},
		{"unknown sort", DefaultPopulationState().WithSort("70대")},
		{"unknown household sort", DefaultPopulationState().WithHouseholdSort("density")},
		{"unknown grouping", DefaultPopulationState().WithAgeGrouping("group9")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.state.Validate(p)
			assert.True(t, domerrors.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestSupplyState_AddRemove(t *testing.T) {
	t.Parallel()

	s := DefaultSupplyState(2025, 3)
	a := s.Add("서울특별시").Add("경기도").Add("서울특별시").Add("")
	assert.Equal(t, []string{"서울특별시", "경기도"}, a.Regions)
	assert.Empty(t, s.Regions)

	r := a.Remove("서울특별시").Remove("부산광역시")
	assert.Equal(t, []string{"경기도"}, r.Regions)
	assert.Equal(t, []string{"서울특별시", "경기도"}, a.Regions, "receiver must not change")
}

func TestSupplyState_Move(t *testing.T) {
	t.Parallel()

	s := SupplyState{Regions: []string{"A", "B", "C"}, StartYear: 2025, YearCount: 3}

	tests := []struct {
		name      string
		index     int
		direction int
		want      []string
	}{
		{"down", 0, 1, []string{"B", "A", "C"}},
		{"up", 2, -1, []string{"A", "C", "B"}},
		{"past top", 0, -1, []string{"A", "B", "C"}},
		{"past bottom", 2, 1, []string{"A", "B", "C"}},
		{"bad index", 5, -1, []string{"A", "B", "C"}},
		{"bad direction", 0, 2, []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, s.Move(tt.index, tt.direction).Regions)
		})
	}
	assert.Equal(t, []string{"A", "B", "C"}, s.Regions)
}

func TestSupplyState_Reorder(t *testing.T) {
	t.Parallel()

	s := SupplyState{Regions: []string{"A", "B", "C", "D"}}

	assert.Equal(t, []string{"B", "C", "A", "D"}, s.Reorder(0, 2).Regions)
	assert.Equal(t, []string{"D", "A", "B", "C"}, s.Reorder(3, 0).Regions)
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.Reorder(1, 1).Regions)
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.Reorder(-1, 2).Regions)
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.Reorder(0, 4).Regions)
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.Regions)
}

func TestSupplyState_YearsAndValidate(t *testing.T) {
	t.Parallel()

	s := DefaultSupplyState(2025, 3)
	assert.Equal(t, []int{2025, 2026, 2027}, s.Years())
	require.NoError(t, s.Validate())

	assert.Equal(t, []int{2030}, s.WithYears(2030, 1).Years())
	assert.Empty(t, s.WithYears(2030, 0).Years())

	assert.Error(t, s.WithYears(2025, 0).Validate())
	assert.Error(t, s.WithYears(2025, MaxYearCount+1).Validate())
	assert.Error(t, s.WithYears(0, 3).Validate())
	assert.Error(t, SupplyState{Regions: []string{"A", "A"}, StartYear: 2025, YearCount: 1}.Validate())
}

func TestApplyPopulation(t *testing.T) {
	t.Parallel()

	aliases := region.DefaultAliases()
	s := DefaultPopulationState()

	s, err := ApplyPopulation(s, PopulationUpdate{Type: "region", Value: "서울 종로구"}, aliases)
	require.NoError(t, err)
	assert.Equal(t, "서울특별시 종로구", s.Region)

	s, err = ApplyPopulation(s, PopulationUpdate{Type: "level", Level: 3}, aliases)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Level)
	assert.Empty(t, s.Region)

	s, err = ApplyPopulation(s, PopulationUpdate{Type: "householdSort", Value: HouseholdSortPopulation}, aliases)
	require.NoError(t, err)
	assert.Equal(t, HouseholdSortPopulation, s.HouseholdSortBy)

	_, err = ApplyPopulation(s, PopulationUpdate{Type: "zoom"}, aliases)
	assert.True(t, domerrors.IsInvalidInput(err))
}

func TestApplySupply(t *testing.T) {
	t.Parallel()

	s := DefaultSupplyState(2025, 3)
	var err error

	for _, u := range []SupplyUpdate{
		{Type: "add", Region: "A"},
		{Type: "add", Region: "B"},
		{Type: "add", Region: "C"},
		{Type: "move", Index: 2, Direction: -1},
		{Type: "reorder", From: 0, To: 2},
		{Type: "remove", Region: "C"},
		{Type: "years", StartYear: 2026, YearCount: 2},
	} {
		s, err = ApplySupply(s, u)
		require.NoError(t, err, u.Type)
	}
	assert.Equal(t, SupplyState{Regions: []string{"B", "A"}, StartYear: 2026, YearCount: 2}, s)

	_, err = ApplySupply(s, SupplyUpdate{Type: "move", Index: 0, Direction: 0})
	assert.True(t, domerrors.IsInvalidInput(err))

	kept, err := ApplySupply(s, SupplyUpdate{Type: "years", StartYear: 2026, YearCount: 0})
	assert.True(t, domerrors.IsInvalidInput(err))
	assert.Equal(t, s, kept)

	_, err = ApplySupply(s, SupplyUpdate{Type: "sort"})
	assert.True(t, domerrors.IsInvalidInput(err))
}
