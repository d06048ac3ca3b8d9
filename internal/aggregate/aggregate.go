// Package aggregate selects region row sets and folds them into buckets.
//
// Everything here is pure and deterministic: no I/O, no shared state.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/garyellow/regionstat/internal/region"
)

// Named is a row that belongs to a region.
type Named interface {
	RegionName() string
}

// Number is a value that can be summed into a bucket.
type Number interface {
	~int | ~int64 | ~float64
}

// SelectRegionSet returns the rows of the selected region followed by the rows
// of its direct children, both in input order. An empty selection selects
// nothing, and an unknown region yields an empty set.
func SelectRegionSet[T Named](rows []T, selected string) []T {
	want := region.CleanName(selected)
	if want == "" {
		return nil
	}
	var self, children []T
	for _, row := range rows {
		name := row.RegionName()
		switch {
		case region.CleanName(name) == want:
			self = append(self, row)
		case region.IsDirectChild(want, name):
			children = append(children, row)
		}
	}
	return append(self, children...)
}

// SelectIndexed is SelectRegionSet backed by a prebuilt tree over the same rows.
func SelectIndexed[T any](rows []T, tree *region.Tree, selected string) []T {
	idx := tree.Select(selected)
	if len(idx) == 0 {
		return nil
	}
	out := make([]T, 0, len(idx))
	for _, i := range idx {
		out = append(out, rows[i])
	}
	return out
}

// SelectWithin returns every row located in ancestor at any depth.
func SelectWithin[T Named](rows []T, ancestor string) []T {
	var out []T
	for _, row := range rows {
		if region.IsWithin(ancestor, row.RegionName()) {
			out = append(out, row)
		}
	}
	return out
}

// AggregateByBucket sums value(row) into the bucket chosen by key(row).
// Rows for which key reports false contribute to no bucket at all.
func AggregateByBucket[T any, K comparable, V Number](rows []T, key func(T) (K, bool), value func(T) V) map[K]V {
	out := make(map[K]V)
	for _, row := range rows {
		k, ok := key(row)
		if !ok {
			continue
		}
		out[k] += value(row)
	}
	return out
}

// SortByName orders items by their region name using Korean collation.
func SortByName[T any](items []T, name func(T) string) {
	compare := region.NewComparer()
	slices.SortStableFunc(items, func(a, b T) int {
		return compare(region.CleanName(name(a)), region.CleanName(name(b)))
	})
}

// SortByMetricDesc orders items by metric, largest first. Ties keep input order.
func SortByMetricDesc[T any, V Number](items []T, metric func(T) V) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(metric(b), metric(a))
	})
}
