package dataset

import (
	"strconv"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/csvtext"
)

// Column names after header normalisation.
const (
	ColRegion     = "행정구역"
	ColTotal      = "총인구수"
	ColHouseholds = "세대수"
	ColAvgSize    = "세대당 인구"
	ColNo         = "번호"
	ColComplex    = "단지명"
	ColAddress    = "소재지"
	ColMoveIn     = "입주시기"
	ColUnits      = "총세대수"
	ColArea       = "지역"
	ColPopulation = "인구"
)

// AgeRow is one region of the age-bracket dataset.
type AgeRow struct {
	Region string
	// TotalText is the total population exactly as the source printed it.
	TotalText string
	Total     int64
	cells     csvtext.Row
}

func (r AgeRow) RegionName() string { return r.Region }

// Cell returns the raw text of an age column such as "0~9세".
func (r AgeRow) Cell(column string) string { return r.cells.Get(column) }

// HouseholdRow is one region of the household dataset.
type HouseholdRow struct {
	Region     string
	Population int64
	Households int64
	AvgSize    float64
	HasAvgSize bool // false when the cell holds no number
}

func (r HouseholdRow) RegionName() string { return r.Region }

// SupplyRow is one apartment complex with its move-in month.
type SupplyRow struct {
	No      string
	Complex string
	Address string
	MoveIn  string
	Units   int64

	// Month is valid only when HasMonth is true.
	Month    aggregate.YearMonth
	HasMonth bool
}

// RegionName is the complex address, which sits deeper than any selectable region.
func (r SupplyRow) RegionName() string { return r.Address }

// PopulationRow is one selectable supply region with its population.
type PopulationRow struct {
	Region     string
	Population int64
}

func (r PopulationRow) RegionName() string { return r.Region }

// YearlyRow is the yearly supply series of one region.
type YearlyRow struct {
	Region string
	Values map[int]int64
}

func (r YearlyRow) RegionName() string { return r.Region }

// Value returns the supply of a year, zero when absent.
func (r YearlyRow) Value(year int) int64 { return r.Values[year] }

func ageRows(t *csvtext.Table) []AgeRow {
	rows := make([]AgeRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, AgeRow{
			Region:    r.Get(ColRegion),
			TotalText: r.Get(ColTotal),
			Total:     aggregate.ParseCountOrZero(r.Get(ColTotal)),
			cells:     r,
		})
	}
	return rows
}

func householdRows(t *csvtext.Table) []HouseholdRow {
	rows := make([]HouseholdRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		avg, ok := aggregate.ParseFloat(r.Get(ColAvgSize))
		rows = append(rows, HouseholdRow{
			Region:     r.Get(ColRegion),
			Population: aggregate.ParseCountOrZero(r.Get(ColTotal)),
			Households: aggregate.ParseCountOrZero(r.Get(ColHouseholds)),
			AvgSize:    avg,
			HasAvgSize: ok,
		})
	}
	return rows
}

func supplyRows(t *csvtext.Table) []SupplyRow {
	rows := make([]SupplyRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := SupplyRow{
			No:      r.Get(ColNo),
			Complex: r.Get(ColComplex),
			Address: r.Get(ColAddress),
			MoveIn:  r.Get(ColMoveIn),
			Units:   aggregate.ParseCountOrZero(r.Get(ColUnits)),
		}
		row.Month, row.HasMonth = aggregate.ExtractYearMonth(row.MoveIn)
		rows = append(rows, row)
	}
	return rows
}

func populationRows(t *csvtext.Table) []PopulationRow {
	rows := make([]PopulationRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, PopulationRow{
			Region:     r.Get(ColArea),
			Population: aggregate.ParseCountOrZero(r.Get(ColPopulation)),
		})
	}
	return rows
}

// yearlyRows reads every all-digit header as a year column.
func yearlyRows(t *csvtext.Table) []YearlyRow {
	years := make(map[string]int)
	for _, h := range t.Header {
		if y, err := strconv.Atoi(h); err == nil && len(h) == 4 {
			years[h] = y
		}
	}
	rows := make([]YearlyRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := YearlyRow{Region: r.Get(ColArea), Values: make(map[int]int64, len(years))}
		for col, y := range years {
			row.Values[y] = aggregate.ParseCountOrZero(r.Get(col))
		}
		rows = append(rows, row)
	}
	return rows
}
