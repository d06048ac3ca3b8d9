package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/region"
)

// Policy holds the analysis constants that planners tune: province aliases,
// age brackets, the supply ratio and grade bands, and the year windows shown
// by the supply views.
type Policy struct {
	Aliases   map[string]string    `yaml:"aliases"`
	Brackets  []aggregate.Bracket  `yaml:"brackets"`
	Groupings []aggregate.Grouping `yaml:"groupings"`
	Supply    SupplyPolicy         `yaml:"supply"`
	Views     ViewPolicy           `yaml:"views"`
}

// SupplyPolicy configures optimal supply and grading.
type SupplyPolicy struct {
	// Ratio is a decimal string such as "0.005".
	Ratio  string      `yaml:"ratio"`
	Grades []GradeBand `yaml:"grades"`
	Above  GradeBand   `yaml:"above"`
}

// GradeBand is one row of the grade table. Max is an inclusive upper bound on
// actual/optimal and is ignored for the Above grade.
type GradeBand struct {
	Max   string `yaml:"max,omitempty"`
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// ViewPolicy configures the supply dashboard year windows.
type ViewPolicy struct {
	CalendarYears   []int `yaml:"calendar_years"`
	SummaryYears    []int `yaml:"summary_years"`
	TrendStartYear  int   `yaml:"trend_start_year"`
	TrendEndYear    int   `yaml:"trend_end_year"`
	RegionYearStart int   `yaml:"region_year_start"`
	RegionYearCount int   `yaml:"region_year_count"`
	SearchPageSize  int   `yaml:"search_page_size"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *Policy {
	scale := aggregate.DefaultScale()
	grades := make([]GradeBand, 0, len(scale.Bands))
	for _, b := range scale.Bands {
		grades = append(grades, GradeBand{Max: b.Max.String(), Label: b.Grade.Label, Color: b.Grade.Color})
	}

	return &Policy{
		Aliases:   region.DefaultAliases(),
		Brackets:  aggregate.DefaultBrackets(),
		Groupings: aggregate.DefaultGroupings(),
		Supply: SupplyPolicy{
			Ratio:  aggregate.DefaultSupplyRatio.String(),
			Grades: grades,
			Above:  GradeBand{Label: scale.Above.Label, Color: scale.Above.Color},
		},
		Views: ViewPolicy{
			CalendarYears:   []int{2025, 2026, 2027, 2028, 2029, 2030},
			SummaryYears:    []int{2026, 2027, 2028},
			TrendStartYear:  2000,
			TrendEndYear:    2030,
			RegionYearStart: 2025,
			RegionYearCount: 3,
			SearchPageSize:  30,
		},
	}
}

// LoadPolicy reads a YAML policy file. Sections missing from the file keep
// their built-in values; an empty path returns the built-in policy.
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.UnmarshalWithOptions(data, p, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that the policy can drive every view.
func (p *Policy) Validate() error {
	var errs []error

	if len(p.Brackets) == 0 {
		errs = append(errs, errors.New("brackets: at least one bracket is required"))
	}
	labels := make(map[string]bool, len(p.Brackets))
	for _, b := range p.Brackets {
		if b.Label == "" || len(b.Columns) == 0 {
			errs = append(errs, fmt.Errorf("brackets: %q needs a label and columns", b.Label))
		}
		labels[b.Label] = true
	}
	if len(p.Groupings) == 0 {
		errs = append(errs, errors.New("groupings: at least one grouping is required"))
	}
	for _, g := range p.Groupings {
		for _, group := range g.Groups {
			for _, b := range group.Brackets {
				if !labels[b] {
					errs = append(errs, fmt.Errorf("groupings: %s/%s references unknown bracket %q", g.Name, group.Label, b))
				}
			}
		}
	}

	if _, err := p.SupplyRatio(); err != nil {
		errs = append(errs, err)
	}
	if _, err := p.Scale(); err != nil {
		errs = append(errs, err)
	}

	v := p.Views
	if len(v.CalendarYears) == 0 {
		errs = append(errs, errors.New("views: calendar_years must not be empty"))
	}
	if len(v.SummaryYears) == 0 {
		errs = append(errs, errors.New("views: summary_years must not be empty"))
	}
	if v.TrendEndYear < v.TrendStartYear {
		errs = append(errs, fmt.Errorf("views: trend years %d..%d are reversed", v.TrendStartYear, v.TrendEndYear))
	}
	if v.RegionYearCount <= 0 {
		errs = append(errs, fmt.Errorf("views: region_year_count must be positive, got %d", v.RegionYearCount))
	}
	if v.SearchPageSize <= 0 {
		errs = append(errs, fmt.Errorf("views: search_page_size must be positive, got %d", v.SearchPageSize))
	}

	return errors.Join(errs...)
}

// AliasTable returns the province alias table.
func (p *Policy) AliasTable() region.AliasTable {
	return region.AliasTable(p.Aliases)
}

// SupplyRatio parses the optimal supply ratio.
func (p *Policy) SupplyRatio() (decimal.Decimal, error) {
	r, err := decimal.NewFromString(p.Supply.Ratio)
	if err != nil {
		return decimal.Zero, fmt.Errorf("supply: ratio %q: %w", p.Supply.Ratio, err)
	}
	if !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("supply: ratio must be positive, got %s", r)
	}
	return r, nil
}

// Scale builds the grade scale. Band bounds must be strictly increasing.
func (p *Policy) Scale() (aggregate.Scale, error) {
	if len(p.Supply.Grades) == 0 {
		return aggregate.Scale{}, errors.New("supply: at least one grade band is required")
	}
	s := aggregate.Scale{
		Bands: make([]aggregate.Band, 0, len(p.Supply.Grades)),
		Above: aggregate.Grade{Label: p.Supply.Above.Label, Color: p.Supply.Above.Color},
	}
	prev := decimal.Zero
	for i, g := range p.Supply.Grades {
		limit, err := decimal.NewFromString(g.Max)
		if err != nil {
			return aggregate.Scale{}, fmt.Errorf("supply: grade %q max %q: %w", g.Label, g.Max, err)
		}
		if i > 0 && !limit.GreaterThan(prev) {
			return aggregate.Scale{}, fmt.Errorf("supply: grade %q max %s must exceed %s", g.Label, limit, prev)
		}
		prev = limit
		s.Bands = append(s.Bands, aggregate.Band{Max: limit, Grade: aggregate.Grade{Label: g.Label, Color: g.Color}})
	}
	return s, nil
}

// TrendYears lists the years of the trend chart, inclusive.
func (v ViewPolicy) TrendYears() []int {
	years := make([]int, 0, v.TrendEndYear-v.TrendStartYear+1)
	for y := v.TrendStartYear; y <= v.TrendEndYear; y++ {
		years = append(years, y)
	}
	return years
}
