package view

import (
	"fmt"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/dataset"
	"github.com/garyellow/regionstat/internal/selection"
)

// YearColors colour the per-year series of the region/year chart.
var YearColors = []string{"#667eea", "#764ba2", "#f093fb", "#4facfe", "#43e97b", "#fa709a"}

// TrendColors colour the per-region series of the yearly trend chart.
var TrendColors = []string{
	"#667eea", "#764ba2", "#f093fb", "#4facfe", "#43e97b", "#fa709a",
	"#feca57", "#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#dfe6e9",
	"#a29bfe", "#6c5ce7", "#0984e3", "#00b894", "#fdcb6e", "#e17055",
	"#74b9ff", "#a29bfe", "#6c5ce7", "#fd79a8", "#fdcb6e", "#6c5ce7",
}

const optimalLineColor = "#E94549"

// MonthCell is one month of a calendar row.
type MonthCell struct {
	Units int64  `json:"units"`
	Text  string `json:"text"`
	// Details lists the complexes moving in that month, "단지명, N세대".
	Details []string `json:"details,omitempty"`
}

// CalendarRow is one selected region in one calendar year.
type CalendarRow struct {
	Region       string          `json:"region"`
	Optimal      int64           `json:"optimal"`
	OptimalText  string          `json:"optimalText"`
	Months       []MonthCell     `json:"months"`
	Total        int64           `json:"total"`
	TotalText    string          `json:"totalText"`
	TotalDetails []string        `json:"totalDetails,omitempty"`
	Grade        aggregate.Grade `json:"grade"`
}

// Calendar is the monthly supply table of one year.
type Calendar struct {
	Year  int           `json:"year"`
	Title string        `json:"title"`
	Rows  []CalendarRow `json:"rows"`
}

// SummaryRow compares a region's average yearly supply with its optimum.
type SummaryRow struct {
	Region      string          `json:"region"`
	Optimal     int64           `json:"optimal"`
	Values      []int64         `json:"values"`
	Average     int64           `json:"average"`
	AverageText string          `json:"averageText"`
	Grade       aggregate.Grade `json:"grade"`
}

// Summary is the multi-year table built from the yearly dataset.
type Summary struct {
	Years []int        `json:"years"`
	Rows  []SummaryRow `json:"rows"`
}

// Supply is the full projection of a SupplyState.
type Supply struct {
	SnapshotID string                `json:"snapshotId"`
	State      selection.SupplyState `json:"state"`
	Calendars  []Calendar            `json:"calendars"`
	// Summary is nil when the yearly dataset is missing.
	Summary    *Summary `json:"summary"`
	RegionYear Chart    `json:"regionYear"`
	Trend      Chart    `json:"trend"`
	Notices    []string `json:"notices,omitempty"`
}

// OptimalFor returns the optimal yearly supply of a selectable region, looked
// up by its exact name in the population dataset. Unknown regions get zero.
func (b *Builder) OptimalFor(snap *dataset.Snapshot, name string) int64 {
	if snap.Population == nil {
		return 0
	}
	row, ok := snap.Population.Get(name)
	if !ok {
		return 0
	}
	return aggregate.OptimalSupply(row.Population, b.ratio)
}

// Supply projects state over the snapshot. Supply and population datasets
// are required; without the yearly dataset the summary and trend stay empty.
func (b *Builder) Supply(snap *dataset.Snapshot, state selection.SupplyState) (*Supply, error) {
	regions := make([]string, len(state.Regions))
	for i, r := range state.Regions {
		regions[i] = b.aliases.Normalize(r)
	}
	state.Regions = regions
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if err := snap.Require(dataset.KindSupply, dataset.KindPopulation); err != nil {
		return nil, err
	}

	out := &Supply{
		SnapshotID: snap.ID,
		State:      state,
		Calendars:  make([]Calendar, 0, len(b.views.CalendarYears)),
	}
	for _, year := range b.views.CalendarYears {
		out.Calendars = append(out.Calendars, b.calendar(snap, state.Regions, year))
	}
	out.RegionYear = regionYearChart(snap, state)

	if err := snap.Require(dataset.KindYearly); err != nil {
		out.Notices = append(out.Notices, err.Error())
		return out, nil
	}
	out.Summary = b.summary(snap, state.Regions)
	out.Trend = b.trendChart(snap, state.Regions)
	return out, nil
}

func (b *Builder) calendar(snap *dataset.Snapshot, regions []string, year int) Calendar {
	cal := Calendar{Year: year, Title: yearLabel(year), Rows: make([]CalendarRow, 0, len(regions))}
	for _, name := range regions {
		cal.Rows = append(cal.Rows, b.calendarRow(snap, name, year))
	}
	return cal
}

func (b *Builder) calendarRow(snap *dataset.Snapshot, name string, year int) CalendarRow {
	months := make([]MonthCell, 12)
	var total int64
	var all []string

	for _, r := range aggregate.SelectWithin(snap.Supply, name) {
		if !r.HasMonth || r.Month.Year != year {
			continue
		}
		detail := fmt.Sprintf("%s, %d세대", r.Complex, r.Units)
		m := &months[r.Month.Month-1]
		m.Units += r.Units
		m.Details = append(m.Details, detail)
		total += r.Units
	}
	for i := range months {
		months[i].Text = FormatCount(months[i].Units)
		all = append(all, months[i].Details...)
	}

	optimal := b.OptimalFor(snap, name)
	row := CalendarRow{
		Region:      name,
		Optimal:     optimal,
		OptimalText: FormatCount(optimal),
		Months:      months,
		Total:       total,
		TotalText:   FormatCount(total),
		Grade:       b.scale.Classify(total, optimal),
	}
	if total > 0 {
		row.TotalDetails = all
	}
	return row
}

func (b *Builder) summary(snap *dataset.Snapshot, regions []string) *Summary {
	s := &Summary{Years: append([]int(nil), b.views.SummaryYears...), Rows: make([]SummaryRow, 0, len(regions))}
	for _, name := range regions {
		values := make([]int64, len(s.Years))
		if row, ok := snap.Yearly.Get(name); ok {
			for i, y := range s.Years {
				values[i] = row.Value(y)
			}
		}
		optimal := b.OptimalFor(snap, name)
		avg := aggregate.RoundedAverage(values)
		s.Rows = append(s.Rows, SummaryRow{
			Region:      name,
			Optimal:     optimal,
			Values:      values,
			Average:     avg,
			AverageText: FormatCount(avg),
			Grade:       b.scale.Classify(avg, optimal),
		})
	}
	return s
}

// regionYearChart sums every dated complex per region and year.
func regionYearChart(snap *dataset.Snapshot, state selection.SupplyState) Chart {
	if len(state.Regions) == 0 {
		return Chart{}
	}
	c := Chart{Labels: append([]string(nil), state.Regions...)}
	for i, year := range state.Years() {
		values := make([]float64, len(state.Regions))
		for j, name := range state.Regions {
			sums := aggregate.AggregateByBucket(aggregate.SelectWithin(snap.Supply, name),
				func(r dataset.SupplyRow) (int, bool) { return r.Month.Year, r.HasMonth },
				func(r dataset.SupplyRow) int64 { return r.Units },
			)
			values[j] = float64(sums[year])
		}
		c.Series = append(c.Series, Series{Name: yearLabel(year), Kind: SeriesBar, Color: palette(YearColors, i), Values: values})
	}
	return c
}

// trendChart draws the yearly dataset of every selected region as stacked
// bars under a flat optimal-supply line for the whole selection.
func (b *Builder) trendChart(snap *dataset.Snapshot, regions []string) Chart {
	if len(regions) == 0 {
		return Chart{}
	}
	years := b.views.TrendYears()
	c := Chart{Labels: make([]string, len(years)), Totals: make([]string, len(years))}
	for i, y := range years {
		c.Labels[i] = yearLabel(y)
	}

	var population int64
	for _, name := range regions {
		if row, ok := snap.Population.Get(name); ok {
			population += row.Population
		}
	}
	optimal := aggregate.OptimalSupply(population, b.ratio)
	line := make([]float64, len(years))
	for i := range line {
		line[i] = float64(optimal)
	}
	c.Series = append(c.Series, Series{
		Name:   fmt.Sprintf("적정 공급량 (%s)", FormatManUnits(optimal)),
		Kind:   SeriesLine,
		Color:  optimalLineColor,
		Values: line,
	})

	totals := make([]int64, len(years))
	for i, name := range regions {
		row, ok := snap.Yearly.Get(name)
		if !ok {
			continue
		}
		values := make([]float64, len(years))
		for j, y := range years {
			v := row.Value(y)
			values[j] = float64(v)
			if v > 0 {
				totals[j] += v
			}
		}
		c.Series = append(c.Series, Series{Name: row.Region, Kind: SeriesBar, Color: palette(TrendColors, i), Values: values})
	}
	for j, t := range totals {
		if t > 0 {
			c.Totals[j] = FormatManUnits(t)
		}
	}
	return c
}
