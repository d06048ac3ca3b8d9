// Package dataset turns the raw dataset texts of a snapshot into typed,
// indexed rows.
//
// A Snapshot is immutable once built and may be shared by any number of
// concurrent readers.
package dataset

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/regionstat/internal/aggregate"
	"github.com/garyellow/regionstat/internal/csvtext"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/region"
)

// Indexed pairs rows with a region tree built over their names.
type Indexed[T aggregate.Named] struct {
	Rows []T
	Tree *region.Tree
}

func newIndexed[T aggregate.Named](rows []T) *Indexed[T] {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.RegionName()
	}
	return &Indexed[T]{Rows: rows, Tree: region.Build(names)}
}

// Select returns the region's own rows followed by its direct children.
func (ix *Indexed[T]) Select(name string) []T {
	return aggregate.SelectIndexed(ix.Rows, ix.Tree, name)
}

// Find returns the first row whose cleaned name equals name.
func (ix *Indexed[T]) Find(name string) (T, bool) {
	var zero T
	n := ix.Tree.Lookup(name)
	if n == nil || len(n.Rows) == 0 {
		return zero, false
	}
	return ix.Rows[n.Rows[0]], true
}

// Lookup keeps rows in source order and indexes them by exact name.
type Lookup[T aggregate.Named] struct {
	Rows   []T
	byName map[string]int
}

func newLookup[T aggregate.Named](rows []T) *Lookup[T] {
	l := &Lookup[T]{Rows: rows, byName: make(map[string]int, len(rows))}
	for i, r := range rows {
		// first occurrence wins, as a linear find would
		if _, ok := l.byName[r.RegionName()]; !ok {
			l.byName[r.RegionName()] = i
		}
	}
	return l
}

// Get finds a row by its exact region name.
func (l *Lookup[T]) Get(name string) (T, bool) {
	var zero T
	i, ok := l.byName[name]
	if !ok {
		return zero, false
	}
	return l.Rows[i], true
}

// Snapshot holds the datasets of one reference month. Any dataset may be nil.
type Snapshot struct {
	ID         string
	Age        *Indexed[AgeRow]
	Household  *Indexed[HouseholdRow]
	Supply     []SupplyRow
	Population *Lookup[PopulationRow]
	Yearly     *Lookup[YearlyRow]
}

// Has reports whether the snapshot carries a dataset.
func (s *Snapshot) Has(k Kind) bool {
	switch k {
	case KindAge:
		return s.Age != nil
	case KindHousehold:
		return s.Household != nil
	case KindSupply:
		return s.Supply != nil
	case KindPopulation:
		return s.Population != nil
	case KindYearly:
		return s.Yearly != nil
	default:
		return false
	}
}

// Available lists the dataset kinds present, in Kinds() order.
func (s *Snapshot) Available() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Require returns a DatasetMissingError naming the first absent kind.
func (s *Snapshot) Require(kinds ...Kind) error {
	for _, k := range kinds {
		if !s.Has(k) {
			return domerrors.NewDatasetMissingError(s.ID, k.Label())
		}
	}
	return nil
}

// Build parses the dataset texts of one snapshot in parallel.
// Kinds absent from texts, or with blank text, stay nil.
func Build(ctx context.Context, id string, texts map[Kind]string) (*Snapshot, error) {
	if err := ValidateSnapshotID(id); err != nil {
		return nil, err
	}

	s := &Snapshot{ID: id}
	g, ctx := errgroup.WithContext(ctx)

	for kind, text := range texts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return s.load(kind, text)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build snapshot %s: %w", id, err)
	}
	return s, nil
}

// load assigns exactly one field per kind, so parallel loads never overlap.
func (s *Snapshot) load(kind Kind, text string) error {
	t, err := Parse(kind, text)
	if err != nil || t == nil {
		return err
	}

	switch kind {
	case KindAge:
		s.Age = newIndexed(ageRows(t))
	case KindHousehold:
		s.Household = newIndexed(householdRows(t))
	case KindSupply:
		s.Supply = supplyRows(t)
	case KindPopulation:
		s.Population = newLookup(populationRows(t))
	case KindYearly:
		s.Yearly = newLookup(yearlyRows(t))
	}
	return nil
}

// requiredColumns are the columns a dataset must carry to be usable.
var requiredColumns = map[Kind][]string{
	KindAge:        {ColRegion, ColTotal},
	KindHousehold:  {ColRegion, ColTotal, ColHouseholds, ColAvgSize},
	KindSupply:     {ColComplex, ColAddress, ColMoveIn, ColUnits},
	KindPopulation: {ColArea, ColPopulation},
	KindYearly:     {ColArea},
}

// Parse loads and normalises one dataset text and checks its columns.
// Blank text yields a nil table and no error.
func Parse(kind Kind, text string) (*csvtext.Table, error) {
	t := csvtext.Parse(text)
	if len(t.Header) == 0 {
		return nil, nil
	}
	normalizeTable(t)

	for _, col := range requiredColumns[kind] {
		if !slices.Contains(t.Header, col) {
			return nil, domerrors.NewValidationError(string(kind), fmt.Sprintf("missing column %q", col))
		}
	}
	return t, nil
}
