package export

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/view"
)

func supplyView(withSummary bool) *view.Supply {
	months := make([]view.MonthCell, 12)
	months[2] = view.MonthCell{Units: 412, Text: "412", Details: []string{"창신 파크 리버, 412세대"}}
	months[10] = view.MonthCell{Units: 1024, Text: "1,024", Details: []string{"종로 센트럴 힐스, 1,024세대"}}
	grade := aggregate.Grade{Label: "B (과잉)", Color: "#ECB751"}

	v := &view.Supply{
		SnapshotID: "202510",
		Calendars: []view.Calendar{
			{Year: 2026, Title: "2026년", Rows: []view.CalendarRow{{
				Region: "서울특별시 종로구", Optimal: 697, Months: months, Total: 1436, Grade: grade,
			}}},
			{Year: 2027, Title: "2027년", Rows: []view.CalendarRow{{
				Region: "서울특별시 종로구", Optimal: 697, Months: make([]view.MonthCell, 12),
				Grade: aggregate.Grade{Label: "S (부족)", Color: "#83ABD6"},
			}}},
		},
	}
	if withSummary {
		v.Summary = &view.Summary{
			Years: []int{2026, 2027, 2028},
			Rows: []view.SummaryRow{{
				Region: "서울특별시 종로구", Optimal: 697, Values: []int64{870, 1027, 493}, Average: 797, Grade: grade,
			}},
		}
	}
	return v
}

func TestWriteSupplyXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSupplyXLSX(&buf, supplyView(true)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"2026년", "2027년", summarySheet, detailSheet}, f.GetSheetList())

	rows, err := f.GetRows("2026년")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "지역", rows[0][0])
	assert.Equal(t, "3월", rows[0][4])
	assert.Equal(t, "등급", rows[0][15])
	assert.Equal(t, "서울특별시 종로구", rows[1][0])
	assert.Equal(t, "697", rows[1][1])
	assert.Equal(t, "", rows[1][2], "empty months stay blank")
	assert.Equal(t, "412", rows[1][4])
	assert.Equal(t, "1024", rows[1][12])
	assert.Equal(t, "1436", rows[1][14])
	assert.Equal(t, "B (과잉)", rows[1][15])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"지역", "적정 공급량", "2026년", "2027년", "2028년", "평균", "등급"}, summary[0])
	assert.Equal(t, []string{"서울특별시 종로구", "697", "870", "1027", "493", "797", "B (과잉)"}, summary[1])

	details, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, []string{"서울특별시 종로구", "2026", "3", "창신 파크 리버", "412세대"}, details[1])
	assert.Equal(t, []string{"서울특별시 종로구", "2026", "11", "종로 센트럴 힐스", "1,024세대"}, details[2])
}

func TestWriteSupplyXLSX_WithoutSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSupplyXLSX(&buf, supplyView(false)))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"2026년", "2027년", detailSheet}, f.GetSheetList())

	var empty bytes.Buffer
	require.NoError(t, WriteSupplyXLSX(&empty, &view.Supply{}))
	g, err := excelize.OpenReader(&empty)
	require.NoError(t, err)
	defer func() { _ = g.Close() }()
	assert.Equal(t, []string{detailSheet}, g.GetSheetList())
}

func TestSplitDetail(t *testing.T) {
	t.Parallel()

	name, units := splitDetail("래미안, 원베일리, 2,990세대")
	assert.Equal(t, "래미안, 원베일리", name)
	assert.Equal(t, "2,990세대", units)

	name, units = splitDetail("no separator")
	assert.Equal(t, "no separator", name)
	assert.Empty(t, units)
}

func TestChartPNG(t *testing.T) {
	t.Parallel()

	chart := view.Chart{
		Labels: []string{"A", "B", "C"},
		Series: []view.Series{
			{Name: "2026", Kind: view.SeriesBar, Color: "#156082", Values: []float64{10, 20, 30}},
			{Name: "2027", Kind: view.SeriesBar, Color: "#E97132", Values: []float64{5, 0, 12}},
			{Name: "optimal", Kind: view.SeriesLine, Color: "#E94549", Values: []float64{15, 15, 15}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ChartPNG(&buf, chart, DefaultChartOptions("supply")))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestChartPNG_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.ErrorIs(t, ChartPNG(&buf, view.Chart{}, DefaultChartOptions("")), ErrEmptyChart)
	assert.ErrorIs(t, ChartPNG(&buf, view.Chart{Labels: []string{"A"}}, DefaultChartOptions("")), ErrEmptyChart)
	assert.Zero(t, buf.Len())
}

func TestParseHexColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, color.RGBA{R: 0x15, G: 0x60, B: 0x82, A: 0xFF}, parseHexColor("#156082"))
	assert.Equal(t, fallbackColor, parseHexColor("156082"))
	assert.Equal(t, fallbackColor, parseHexColor("#GGGGGG"))
	assert.Equal(t, fallbackColor, parseHexColor(""))
}

func TestPopulationTable(t *testing.T) {
	t.Parallel()

	v := &view.Population{
		SnapshotID: "202510",
		Brackets:   []string{"영유아", "10대"},
		Rows: []view.PopulationRow{
			{Region: "서울특별시", ShortName: "서울특별시", Total: "1,000", Brackets: []view.BracketCell{
				{Label: "영유아", Text: "100 (10.0%)"}, {Label: "10대", Text: "200 (20.0%)"},
			}},
			{Region: "서울특별시 종로구", ShortName: "종로구", Total: "400", Brackets: []view.BracketCell{
				{Label: "영유아", Text: "40 (10.0%)"}, {Label: "10대", Text: "<b>x</b>"},
			}},
		},
		Stats: &view.PopulationStats{TotalText: "1,000", RegionCount: 2, AvgHouseholdSize: "2.50"},
	}

	var buf bytes.Buffer
	require.NoError(t, PopulationTable(&buf, v))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	require.NoError(t, err)

	assert.Equal(t, "202510", doc.Find("table").AttrOr("data-snapshot", ""))
	var headers []string
	doc.Find("thead th").Each(func(_ int, s *goquery.Selection) { headers = append(headers, s.Text()) })
	assert.Equal(t, []string{"지역", "총인구수", "영유아", "10대"}, headers)

	rows := doc.Find("tbody tr")
	require.Equal(t, 2, rows.Length())
	second := rows.Eq(1)
	assert.Equal(t, "서울특별시 종로구", second.AttrOr("data-region", ""))
	assert.Equal(t, "종로구", second.Find("td.region").Text())
	assert.Equal(t, "40 (10.0%)", second.Find(`td[data-bracket="영유아"]`).Text())
	assert.Equal(t, "<b>x</b>", second.Find(`td[data-bracket="10대"]`).Text(), "cell text is escaped")
	assert.Zero(t, second.Find("b").Length())

	foot := doc.Find("tfoot td.count")
	assert.Equal(t, "2", foot.AttrOr("colspan", ""))
	assert.Contains(t, foot.Text(), "세대당 인구 2.50")
}

func TestPopulationTable_NoStats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PopulationTable(&buf, &view.Population{SnapshotID: "202510"}))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Zero(t, doc.Find("tbody tr").Length())
	assert.Zero(t, doc.Find("tfoot").Length())
}
