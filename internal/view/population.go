package view

import (
	"fmt"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/dataset"
	"github.com/garyellow/regionstat/internal/region"
	"github.com/garyellow/regionstat/internal/selection"
)

// BracketColors are the per-bracket series colours of the age charts.
var BracketColors = []string{"#5B8FA7", "#F09B6F", "#5D9765", "#57BBE1", "#BC6AB3", "#83C16C", "#577590"}

// RegionColors colour one series per region in the age-group chart.
var RegionColors = []string{
	"#5B8FA7", "#F09B6F", "#5D9765", "#57BBE1", "#BC6AB3", "#83C16C", "#577590",
	"#F09B6F", "#5D9765", "#57BBE1", "#BC6AB3", "#83C16C", "#84a8c7", "#081d30",
	"#277da1", "#3a86ff", "#8338ec", "#fb5607", "#ff006e", "#ffbe0b", "#006400",
	"#38b000", "#70e000", "#9b5de5", "#f15bb5", "#fee440", "#00bbf9", "#00f5d4",
	"#bd1e51", "#6a4c93", "#1982c4", "#8ac926", "#ff595e", "#ffca3a", "#c9ada7",
}

// Household chart series.
const (
	householdPopulationColor = "#156082"
	householdCountColor      = "#E97132"
	householdAvgSizeColor    = "#0A6216"
)

// BracketCell is one age bracket of a table row.
type BracketCell struct {
	Label   string  `json:"label"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
	// Text is the display form, "1,234 (12.3%)".
	Text string `json:"text"`
}

// PopulationRow is one table row of the population explorer.
type PopulationRow struct {
	Region    string `json:"region"`
	ShortName string `json:"shortName"`
	// Total is the total population exactly as the source printed it.
	Total    string        `json:"total"`
	Brackets []BracketCell `json:"brackets"`
}

// PopulationStats summarises the displayed region set.
type PopulationStats struct {
	TotalPopulation int64  `json:"totalPopulation"`
	TotalText       string `json:"totalText"`
	RegionCount     int    `json:"regionCount"`
	// AvgHouseholdSize is the selected region's own persons per household with
	// two decimals, or "-" when unknown.
	AvgHouseholdSize string `json:"avgHouseholdSize"`
}

// Population is the full projection of a PopulationState.
type Population struct {
	SnapshotID string                    `json:"snapshotId"`
	State      selection.PopulationState `json:"state"`
	Brackets   []string                  `json:"brackets"`
	// Stats is nil when no region is selected or the region is unknown.
	Stats      *PopulationStats `json:"stats"`
	Rows       []PopulationRow  `json:"rows"`
	AgeRatio   Chart            `json:"ageRatio"`
	AgeCounts  Chart            `json:"ageCounts"`
	AgeGroups  Chart            `json:"ageGroups"`
	Households Chart            `json:"households"`
	// Notices are recoverable problems, such as a missing household dataset.
	Notices []string `json:"notices,omitempty"`
}

type ageEntry struct {
	row     dataset.AgeRow
	counts  map[string]int64
	percent map[string]float64
}

func (b *Builder) ageEntries(rows []dataset.AgeRow) []ageEntry {
	out := make([]ageEntry, 0, len(rows))
	for _, r := range rows {
		counts := aggregate.BracketCounts(b.brackets, r.Cell)
		out = append(out, ageEntry{
			row:     r,
			counts:  counts,
			percent: aggregate.Percentages(counts, r.Total),
		})
	}
	return out
}

// BracketLabels lists the configured bracket labels in order.
func (b *Builder) BracketLabels() []string {
	labels := make([]string, len(b.brackets))
	for i, br := range b.brackets {
		labels[i] = br.Label
	}
	return labels
}

// Population projects state over the snapshot. The age dataset is required;
// a missing household dataset only leaves the household parts empty.
func (b *Builder) Population(snap *dataset.Snapshot, state selection.PopulationState) (*Population, error) {
	state.Region = b.aliases.Normalize(region.CleanName(state.Region))
	if err := state.Validate(b.policy); err != nil {
		return nil, err
	}
	if err := snap.Require(dataset.KindAge); err != nil {
		return nil, err
	}

	out := &Population{
		SnapshotID: snap.ID,
		State:      state,
		Brackets:   b.BracketLabels(),
		Rows:       []PopulationRow{},
	}

	var households []dataset.HouseholdRow
	if err := snap.Require(dataset.KindHousehold); err != nil {
		out.Notices = append(out.Notices, err.Error())
	} else if state.Region != "" {
		households = snap.Household.Select(state.Region)
	}

	if state.Region == "" {
		return out, nil
	}
	entries := b.ageEntries(snap.Age.Select(state.Region))
	if len(entries) == 0 {
		return out, nil
	}

	out.Stats = populationStats(state.Region, entries, snap.Household)
	out.Rows = b.populationRows(entries, state.SortBy)
	out.AgeRatio = b.ageRatioChart(entries, state.SortBy)

	children := childEntries(entries, state.Region)
	grouping := aggregate.FindGrouping(b.groupings, state.AgeGrouping)
	out.AgeCounts = ageCountChart(children, grouping, state.SortBy)
	out.AgeGroups = ageGroupChart(children, grouping, state.SortBy)
	out.Households = householdChart(households, state.Region, state.HouseholdSortBy)
	return out, nil
}

// populationStats sums the listed rows. The household average comes from
// the selected region's own household row, when there is one.
func populationStats(selected string, entries []ageEntry, households *dataset.Indexed[dataset.HouseholdRow]) *PopulationStats {
	var total int64
	for _, e := range entries {
		total += e.row.Total
	}
	stats := &PopulationStats{
		TotalPopulation:  total,
		TotalText:        FormatCount(total),
		RegionCount:      len(entries),
		AvgHouseholdSize: "-",
	}
	if households == nil {
		return stats
	}
	if h, ok := households.Find(selected); ok && h.HasAvgSize {
		stats.AvgHouseholdSize = fmt.Sprintf("%.2f", h.AvgSize)
	}
	return stats
}

// sortEntries orders by name, or by a bracket's count or percentage descending.
func sortEntries(entries []ageEntry, sortBy string, byCount bool) []ageEntry {
	sorted := append([]ageEntry(nil), entries...)
	switch {
	case sortBy == selection.SortByName:
		aggregate.SortByName(sorted, func(e ageEntry) string { return e.row.Region })
	case byCount:
		aggregate.SortByMetricDesc(sorted, func(e ageEntry) int64 { return e.counts[sortBy] })
	default:
		aggregate.SortByMetricDesc(sorted, func(e ageEntry) float64 { return e.percent[sortBy] })
	}
	return sorted
}

func (b *Builder) populationRows(entries []ageEntry, sortBy string) []PopulationRow {
	sorted := sortEntries(entries, sortBy, false)
	rows := make([]PopulationRow, 0, len(sorted))
	for _, e := range sorted {
		cells := make([]BracketCell, 0, len(b.brackets))
		for _, br := range b.brackets {
			n, pct := e.counts[br.Label], e.percent[br.Label]
			cells = append(cells, BracketCell{
				Label:   br.Label,
				Count:   n,
				Percent: pct,
				Text:    fmt.Sprintf("%s (%.1f%%)", FormatCount(n), pct),
			})
		}
		rows = append(rows, PopulationRow{
			Region:    region.CleanName(e.row.Region),
			ShortName: region.ShortName(e.row.Region),
			Total:     e.row.TotalText,
			Brackets:  cells,
		})
	}
	return rows
}

func shortNames(entries []ageEntry) []string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = region.ShortName(e.row.Region)
	}
	return labels
}

func (b *Builder) ageRatioChart(entries []ageEntry, sortBy string) Chart {
	sorted := sortEntries(entries, sortBy, false)
	c := Chart{Labels: shortNames(sorted)}
	for i, br := range b.brackets {
		values := make([]float64, len(sorted))
		for j, e := range sorted {
			values[j] = e.percent[br.Label]
		}
		c.Series = append(c.Series, Series{Name: br.Label, Kind: SeriesBar, Color: palette(BracketColors, i), Values: values})
	}
	return c
}

// childEntries drops the selected region itself.
func childEntries(entries []ageEntry, selected string) []ageEntry {
	want := region.CleanName(selected)
	var out []ageEntry
	for _, e := range entries {
		if region.CleanName(e.row.Region) != want {
			out = append(out, e)
		}
	}
	return out
}

func ageCountChart(children []ageEntry, g aggregate.Grouping, sortBy string) Chart {
	if len(children) == 0 {
		return Chart{}
	}
	sorted := sortEntries(children, sortBy, true)
	c := Chart{Labels: shortNames(sorted)}
	grouped := make([][]int64, len(sorted))
	for j, e := range sorted {
		grouped[j] = aggregate.GroupCounts(g, e.counts)
	}
	for i, group := range g.Groups {
		values := make([]float64, len(sorted))
		for j := range sorted {
			values[j] = float64(grouped[j][i])
		}
		c.Series = append(c.Series, Series{Name: group.Label, Kind: SeriesBar, Color: palette(BracketColors, i), Values: values})
	}
	return c
}

func ageGroupChart(children []ageEntry, g aggregate.Grouping, sortBy string) Chart {
	if len(children) == 0 {
		return Chart{}
	}
	sorted := sortEntries(children, sortBy, true)
	c := Chart{Labels: make([]string, len(g.Groups))}
	for i, group := range g.Groups {
		c.Labels[i] = group.Label
	}
	for j, e := range sorted {
		counts := aggregate.GroupCounts(g, e.counts)
		values := make([]float64, len(counts))
		for i, n := range counts {
			values[i] = float64(n)
		}
		c.Series = append(c.Series, Series{
			Name:   region.ShortName(e.row.Region),
			Kind:   SeriesBar,
			Color:  palette(RegionColors, j),
			Values: values,
		})
	}
	return c
}

func householdChart(rows []dataset.HouseholdRow, selected, sortBy string) Chart {
	want := region.CleanName(selected)
	var children []dataset.HouseholdRow
	for _, r := range rows {
		if region.CleanName(r.Region) != want {
			children = append(children, r)
		}
	}
	if len(children) == 0 {
		return Chart{}
	}

	switch sortBy {
	case selection.HouseholdSortPopulation:
		aggregate.SortByMetricDesc(children, func(r dataset.HouseholdRow) int64 { return r.Population })
	case selection.HouseholdSortHouseholds:
		aggregate.SortByMetricDesc(children, func(r dataset.HouseholdRow) int64 { return r.Households })
	case selection.HouseholdSortAvgSize:
		aggregate.SortByMetricDesc(children, func(r dataset.HouseholdRow) float64 { return r.AvgSize })
	default:
		aggregate.SortByName(children, func(r dataset.HouseholdRow) string { return r.Region })
	}

	c := Chart{Labels: make([]string, len(children))}
	pop := make([]float64, len(children))
	hh := make([]float64, len(children))
	avg := make([]float64, len(children))
	for i, r := range children {
		c.Labels[i] = region.ShortName(r.Region)
		pop[i] = float64(r.Population)
		hh[i] = float64(r.Households)
		avg[i] = r.AvgSize
	}
	c.Series = []Series{
		{Name: dataset.ColTotal, Kind: SeriesBar, Color: householdPopulationColor, Values: pop},
		{Name: dataset.ColHouseholds, Kind: SeriesBar, Color: householdCountColor, Values: hh},
		{Name: dataset.ColAvgSize, Kind: SeriesLine, Color: householdAvgSizeColor, Values: avg},
	}
	return c
}
