package view

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/regionstat/internal/config"
	"github.com/garyellow/regionstat/internal/dataset"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/selection"
)

const ageText = `행정구역,2025년10월_계_총인구수,2025년10월_계_0~9세,2025년10월_계_10~19세,2025년10월_계_20~29세,2025년10월_계_30~39세,2025년10월_계_40~49세,2025년10월_계_50~59세,2025년10월_계_60~69세,2025년10월_계_70~79세
서울특별시  (1100000000),"1,000",100,100,100,100,100,100,200,200
서울특별시 종로구  (1111000000),400,40,40,40,40,40,40,100,60
서울특별시 중구  (1114000000),600,120,60,60,60,60,60,120,60
서울특별시 종로구 청운효자동  (1111051500),100,10,10,10,10,10,10,20,20
부산광역시  (2600000000),0,0,0,0,0,0,0,0,0
`

const householdText = `행정구역,2025년10월_총인구수,2025년10월_세대수,2025년10월_세대당 인구
서울특별시  (1100000000),"1,000",400,2.5
서울특별시 종로구  (1111000000),400,200,2.00
서울특별시 중구  (1114000000),600,200,3.00
`

const supplyText = `번호,단지명,소재지,입주시기,총세대수
1,A단지,서울특별시 종로구 청운동,2026-03,100
2,B단지,서울특별시 종로구 평창동,2026-03,50
3,C단지,서울특별시 중구 신당동,2026-12,"1,200"
4,D단지,서울특별시 종로구,미정,70
5,E단지,서울특별시 종로구청 앞,2026-05,999
6,F단지,서울특별시 종로구 무악동,2027-01,30
`

const populationText = `지역,인구
서울특별시 종로구,"20,000"
서울특별시 중구,"120,000"
서울특별시,"1,000,000"
부산광역시 해운대구,"380,000"
`

const yearlyText = `지역,2025,2026,2027,2028
서울특별시 종로구,10,100,101,"1,000"
서울특별시 중구,,,,
`

const (
	jongno = "서울특별시 종로구"
	junggu = "서울특별시 중구"
)

func fullTexts() map[dataset.Kind]string {
	return map[dataset.Kind]string{
		dataset.KindAge:        ageText,
		dataset.KindHousehold:  householdText,
		dataset.KindSupply:     supplyText,
		dataset.KindPopulation: populationText,
		dataset.KindYearly:     yearlyText,
	}
}

func buildSnapshot(t *testing.T, texts map[dataset.Kind]string) *dataset.Snapshot {
	t.Helper()
	s, err := dataset.Build(context.Background(), "202510", texts)
	require.NoError(t, err)
	return s
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(config.DefaultPolicy())
	require.NoError(t, err)
	return b
}

func seriesByName(t *testing.T, c Chart, name string) Series {
	t.Helper()
	for _, s := range c.Series {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("series %q not found", name)
	return Series{}
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234,567", FormatCount(1234567))
	assert.Equal(t, "0", FormatCount(0))

	assert.Equal(t, "1.5만", FormatManUnits(15000))
	assert.Equal(t, "1.5만", FormatManUnits(14950))
	assert.Equal(t, "0.0만", FormatManUnits(100))
	assert.Equal(t, "0.1만", FormatManUnits(700))
	assert.Equal(t, "0.0만", FormatManUnits(0))
}

func TestPopulation_TableAndStats(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())
	state := selection.DefaultPopulationState().WithRegion("서울 (1100000000)", b.Aliases())

	v, err := b.Population(snap, state)
	require.NoError(t, err)
	assert.Empty(t, v.Notices)
	assert.Equal(t, []string{"영유아", "10대", "20대", "30대", "40대", "50대", "60대이상"}, v.Brackets)

	require.NotNil(t, v.Stats)
	assert.Equal(t, int64(2000), v.Stats.TotalPopulation)
	assert.Equal(t, "2,000", v.Stats.TotalText)
	assert.Equal(t, 3, v.Stats.RegionCount)
	assert.Equal(t, "2.50", v.Stats.AvgHouseholdSize)

	// 60대이상 share: 40%, 40%, 30%; ties keep selection order
	require.Len(t, v.Rows, 3)
	assert.Equal(t, []string{"서울특별시", "종로구", "중구"},
		[]string{v.Rows[0].ShortName, v.Rows[1].ShortName, v.Rows[2].ShortName})
	assert.Equal(t, "1,000", v.Rows[0].Total)
	assert.Equal(t, "400 (40.0%)", v.Rows[0].Brackets[6].Text)
	assert.Equal(t, "120 (20.0%)", v.Rows[2].Brackets[0].Text)
	assert.InDelta(t, 30.0, v.Rows[2].Brackets[6].Percent, 1e-9)

	byInfant, err := b.Population(snap, state.WithSort("영유아"))
	require.NoError(t, err)
	assert.Equal(t, "중구", byInfant.Rows[0].ShortName)

	byName, err := b.Population(snap, state.WithSort(selection.SortByName))
	require.NoError(t, err)
	assert.Equal(t, []string{"서울특별시", "종로구", "중구"},
		[]string{byName.Rows[0].ShortName, byName.Rows[1].ShortName, byName.Rows[2].ShortName})
}

func TestPopulation_AliasSelection(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())

	tests := []struct {
		name   string
		region string
	}{
		{"short name", "서울"},
		{"short name with code", "서울  (1100000000)"},
		{"short name with district", "서울 종로구"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			state := selection.DefaultPopulationState()
			state.Region = tt.region

			v, err := b.Population(snap, state)
			require.NoError(t, err)
			require.NotNil(t, v.Stats)
			assert.NotEmpty(t, v.Rows)
			assert.NotContains(t, v.State.Region, "(")
			assert.Contains(t, v.State.Region, "서울특별시")
		})
	}

	state := selection.DefaultPopulationState()
	state.Region = "서울"
	v, err := b.Population(snap, state)
	require.NoError(t, err)
	assert.Equal(t, "서울특별시", v.State.Region)
	assert.Equal(t, 3, v.Stats.RegionCount)
	assert.Equal(t, "2.50", v.Stats.AvgHouseholdSize)
}

func TestPopulation_AvgHouseholdSize(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	tests := []struct {
		name string
		cell string
		want string
	}{
		{"plain", "2.5", "2.50"},
		{"unit suffix", "2.09명", "2.09"},
		{"not a number", "-", "-"},
		{"empty", "", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			households := "행정구역,2025년10월_총인구수,2025년10월_세대수,2025년10월_세대당 인구\n" +
				"서울특별시  (1100000000),\"1,000\",400," + tt.cell + "\n"
			snap := buildSnapshot(t, map[dataset.Kind]string{
				dataset.KindAge:       ageText,
				dataset.KindHousehold: households,
			})

			v, err := b.Population(snap, selection.DefaultPopulationState().WithRegion("서울특별시", b.Aliases()))
			require.NoError(t, err)
			require.NotNil(t, v.Stats)
			assert.Equal(t, tt.want, v.Stats.AvgHouseholdSize)
		})
	}
}

func TestPopulation_Charts(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())
	state := selection.DefaultPopulationState().WithRegion("서울특별시", b.Aliases())

	v, err := b.Population(snap, state)
	require.NoError(t, err)

	// ratio chart includes the selected region
	assert.Equal(t, []string{"서울특별시", "종로구", "중구"}, v.AgeRatio.Labels)
	require.Len(t, v.AgeRatio.Series, 7)
	assert.Equal(t, "#5B8FA7", v.AgeRatio.Series[0].Color)
	assert.InDelta(t, 20.0, v.AgeRatio.Series[0].Values[2], 1e-9)

	// count chart: children only, sorted by 60대이상 counts (180, 160)
	assert.Equal(t, []string{"중구", "종로구"}, v.AgeCounts.Labels)
	assert.Equal(t, []float64{180, 160}, seriesByName(t, v.AgeCounts, "60대이상").Values)

	assert.Equal(t, []string{"영유아", "10대", "20대", "30대", "40대", "50대", "60대이상"}, v.AgeGroups.Labels)
	require.Len(t, v.AgeGroups.Series, 2)
	assert.Equal(t, "중구", v.AgeGroups.Series[0].Name)
	assert.Equal(t, "#5B8FA7", v.AgeGroups.Series[0].Color)
	assert.Equal(t, "#F09B6F", v.AgeGroups.Series[1].Color)

	grouped, err := b.Population(snap, state.WithAgeGrouping("group1"))
	require.NoError(t, err)
	assert.Equal(t, []float64{180, 80}, seriesByName(t, grouped.AgeCounts, "영유아+30대").Values)
	assert.Equal(t, []string{"영유아+30대", "10대+40대", "30대+40대+50대", "60대"}, grouped.AgeGroups.Labels)

	assert.Equal(t, []string{"종로구", "중구"}, v.Households.Labels)
	require.Len(t, v.Households.Series, 3)
	assert.Equal(t, []float64{400, 600}, v.Households.Series[0].Values)
	assert.Equal(t, SeriesLine, v.Households.Series[2].Kind)
	assert.Equal(t, "#0A6216", v.Households.Series[2].Color)

	byAvg, err := b.Population(snap, state.WithHouseholdSort(selection.HouseholdSortAvgSize))
	require.NoError(t, err)
	assert.Equal(t, []string{"중구", "종로구"}, byAvg.Households.Labels)
	assert.Equal(t, []float64{3, 2}, byAvg.Households.Series[2].Values)
}

func TestPopulation_EmptyAndMissing(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())

	v, err := b.Population(snap, selection.DefaultPopulationState())
	require.NoError(t, err)
	assert.Nil(t, v.Stats)
	assert.Empty(t, v.Rows)

	unknown, err := b.Population(snap, selection.DefaultPopulationState().WithRegion("제주특별자치도", b.Aliases()))
	require.NoError(t, err)
	assert.Nil(t, unknown.Stats)
	assert.True(t, unknown.AgeRatio.Empty())

	// no children: tables still render, child charts stay empty
	leaf, err := b.Population(snap, selection.DefaultPopulationState().WithRegion("부산광역시", b.Aliases()))
	require.NoError(t, err)
	require.NotNil(t, leaf.Stats)
	assert.Equal(t, 1, leaf.Stats.RegionCount)
	assert.Equal(t, "0 (0.0%)", leaf.Rows[0].Brackets[0].Text)
	assert.True(t, leaf.AgeCounts.Empty())
	assert.True(t, leaf.Households.Empty())

	ageOnly := buildSnapshot(t, map[dataset.Kind]string{dataset.KindAge: ageText})
	partial, err := b.Population(ageOnly, selection.DefaultPopulationState().WithRegion("서울특별시", b.Aliases()))
	require.NoError(t, err)
	assert.Equal(t, []string{"202510 스냅샷에 세대 데이터가 없습니다"}, partial.Notices)
	assert.Equal(t, "-", partial.Stats.AvgHouseholdSize)
	assert.Len(t, partial.Rows, 3)

	_, err = b.Population(buildSnapshot(t, map[dataset.Kind]string{dataset.KindHousehold: householdText}), selection.DefaultPopulationState())
	assert.True(t, domerrors.IsDatasetMissing(err))

	_, err = b.Population(snap, selection.DefaultPopulationState().WithSort("70대"))
	assert.True(t, domerrors.IsInvalidInput(err))
}

func TestSupply_Calendar(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())
	state := selection.DefaultSupplyState(2026, 2).Add(jongno).Add(junggu)

	v, err := b.Supply(snap, state)
	require.NoError(t, err)
	require.Len(t, v.Calendars, 6)

	cal := v.Calendars[1]
	assert.Equal(t, 2026, cal.Year)
	assert.Equal(t, "2026년", cal.Title)
	require.Len(t, cal.Rows, 2)

	j := cal.Rows[0]
	assert.Equal(t, jongno, j.Region)
	assert.Equal(t, int64(100), j.Optimal)
	require.Len(t, j.Months, 12)
	assert.Equal(t, int64(150), j.Months[2].Units)
	assert.Equal(t, []string{"A단지, 100세대", "B단지, 50세대"}, j.Months[2].Details)
	assert.Equal(t, int64(0), j.Months[4].Units, "종로구청 is not inside 종로구")
	assert.Equal(t, int64(150), j.Total)
	assert.Equal(t, []string{"A단지, 100세대", "B단지, 50세대"}, j.TotalDetails)
	assert.Equal(t, "B (과잉)", j.Grade.Label)

	g := cal.Rows[1]
	assert.Equal(t, int64(600), g.Optimal)
	assert.Equal(t, "1,200", g.Months[11].Text)
	assert.Equal(t, "B (과잉)", g.Grade.Label, "exactly twice the optimum stays in the lower band")

	next := v.Calendars[2].Rows[0]
	assert.Equal(t, int64(30), next.Total)
	assert.Equal(t, "S (부족)", next.Grade.Label)
	assert.Nil(t, v.Calendars[0].Rows[1].TotalDetails)
}

func TestSupply_AliasSelection(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())

	state := selection.DefaultSupplyState(2026, 2)
	state.Regions = []string{"서울 종로구", "서울  중구"}
	v, err := b.Supply(snap, state)
	require.NoError(t, err)
	assert.Equal(t, []string{jongno, junggu}, v.State.Regions)
	assert.Equal(t, []string{"서울 종로구", "서울  중구"}, state.Regions, "caller's slice is untouched")

	rows := v.Calendars[1].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, int64(100), rows[0].Optimal)
	assert.Equal(t, int64(150), rows[0].Total)

	state.Regions = []string{"서울 종로구", jongno}
	_, err = b.Supply(snap, state)
	assert.True(t, domerrors.IsInvalidInput(err))
}

func TestSupply_SummaryAndCharts(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())
	state := selection.DefaultSupplyState(2026, 2).Add(jongno).Add(junggu)

	v, err := b.Supply(snap, state)
	require.NoError(t, err)
	assert.Empty(t, v.Notices)

	require.NotNil(t, v.Summary)
	assert.Equal(t, []int{2026, 2027, 2028}, v.Summary.Years)
	assert.Equal(t, []int64{100, 101, 1000}, v.Summary.Rows[0].Values)
	assert.Equal(t, int64(400), v.Summary.Rows[0].Average)
	assert.Equal(t, "C (적정)", v.Summary.Rows[0].Grade.Label)
	assert.Equal(t, []int64{0, 0, 0}, v.Summary.Rows[1].Values)
	assert.Equal(t, "S (부족)", v.Summary.Rows[1].Grade.Label)

	assert.Equal(t, []string{jongno, junggu}, v.RegionYear.Labels)
	require.Len(t, v.RegionYear.Series, 2)
	assert.Equal(t, "2026년", v.RegionYear.Series[0].Name)
	assert.Equal(t, []float64{150, 1200}, v.RegionYear.Series[0].Values)
	assert.Equal(t, []float64{30, 0}, v.RegionYear.Series[1].Values)
	assert.Equal(t, "#764ba2", v.RegionYear.Series[1].Color)

	trend := v.Trend
	require.Len(t, trend.Labels, 31)
	assert.Equal(t, "2000년", trend.Labels[0])
	assert.Equal(t, "2030년", trend.Labels[30])
	require.Len(t, trend.Series, 3)
	assert.Equal(t, "적정 공급량 (0.1만)", trend.Series[0].Name)
	assert.Equal(t, SeriesLine, trend.Series[0].Kind)
	assert.InDelta(t, 700.0, trend.Series[0].Values[10], 1e-9)
	assert.Equal(t, jongno, trend.Series[1].Name)
	assert.InDelta(t, 1000.0, trend.Series[1].Values[28], 1e-9)
	assert.Equal(t, "", trend.Totals[0])
	assert.Equal(t, "0.0만", trend.Totals[26])
	assert.Equal(t, "0.1만", trend.Totals[28])
}

func TestSupply_EmptyAndMissing(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())

	v, err := b.Supply(snap, selection.DefaultSupplyState(2025, 3))
	require.NoError(t, err)
	assert.Empty(t, v.Calendars[0].Rows)
	assert.True(t, v.RegionYear.Empty())
	assert.True(t, v.Trend.Empty())

	unknown, err := b.Supply(snap, selection.DefaultSupplyState(2025, 3).Add("세종특별자치시"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), unknown.Calendars[0].Rows[0].Optimal)
	assert.Equal(t, "S (부족)", unknown.Calendars[0].Rows[0].Grade.Label)

	noYearly := buildSnapshot(t, map[dataset.Kind]string{
		dataset.KindSupply:     supplyText,
		dataset.KindPopulation: populationText,
	})
	partial, err := b.Supply(noYearly, selection.DefaultSupplyState(2026, 1).Add(jongno))
	require.NoError(t, err)
	assert.Nil(t, partial.Summary)
	assert.Equal(t, []string{"202510 스냅샷에 연도별 공급 데이터가 없습니다"}, partial.Notices)
	assert.Equal(t, int64(150), partial.Calendars[1].Rows[0].Total)

	_, err = b.Supply(buildSnapshot(t, map[dataset.Kind]string{dataset.KindSupply: supplyText}), selection.DefaultSupplyState(2025, 3))
	assert.True(t, domerrors.IsDatasetMissing(err))

	_, err = b.Supply(snap, selection.DefaultSupplyState(2025, 0))
	assert.True(t, domerrors.IsInvalidInput(err))
}

func TestRegions(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())

	got, err := b.Regions(snap, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"부산광역시", "서울특별시"}, got)

	got, err = b.Regions(snap, 2, "서울 중")
	require.NoError(t, err)
	assert.Equal(t, []string{junggu}, got)

	_, err = b.Regions(snap, 0, "")
	assert.True(t, domerrors.IsInvalidInput(err))
}

func TestSearchSupplyRegions(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	snap := buildSnapshot(t, fullTexts())

	page, err := b.SearchSupplyRegions(snap, "", []string{jongno}, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, junggu, page.Items[0].Region)
	assert.Equal(t, "120,000", page.Items[0].PopulationText)
	assert.Equal(t, -1, page.Next)

	page, err = b.SearchSupplyRegions(snap, "서울 중구", nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, junggu, page.Items[0].Region)

	p := config.DefaultPolicy()
	p.Views.SearchPageSize = 2
	small, err := NewBuilder(p)
	require.NoError(t, err)

	first, err := small.SearchSupplyRegions(snap, "", nil, 0)
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, 4, first.Total)
	assert.Equal(t, 2, first.Next)

	second, err := small.SearchSupplyRegions(snap, "", nil, first.Next)
	require.NoError(t, err)
	assert.Equal(t, "부산광역시 해운대구", second.Items[1].Region)
	assert.Equal(t, -1, second.Next)

	past, err := small.SearchSupplyRegions(snap, "", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, past.Items)

	_, err = small.SearchSupplyRegions(snap, "", nil, -1)
	assert.True(t, domerrors.IsInvalidInput(err))
}
