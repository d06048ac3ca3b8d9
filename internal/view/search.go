package view

import (
	"slices"
	"strings"

	"github.com/garyellow/regionstat/internal/dataset"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/selection"
)

// Regions lists the age-dataset regions of a level matching query.
func (b *Builder) Regions(snap *dataset.Snapshot, level int, query string) ([]string, error) {
	if level < 1 || level > selection.MaxLevel {
		return nil, domerrors.NewValidationError("level", "out of range")
	}
	if err := snap.Require(dataset.KindAge); err != nil {
		return nil, err
	}
	return snap.Age.Tree.Search(level, query, b.aliases), nil
}

// SearchResult is one selectable supply region.
type SearchResult struct {
	Region         string `json:"region"`
	Population     int64  `json:"population"`
	PopulationText string `json:"populationText"`
}

// SearchPage is one page of a supply region search.
type SearchPage struct {
	Items  []SearchResult `json:"items"`
	Offset int            `json:"offset"`
	Total  int            `json:"total"`
	// Next is the offset of the following page, or -1 on the last page.
	Next int `json:"next"`
}

// SearchSupplyRegions matches query against the population dataset in source
// order, skipping regions already in exclude. A blank query matches every
// region. Results are paged by the policy page size.
func (b *Builder) SearchSupplyRegions(snap *dataset.Snapshot, query string, exclude []string, offset int) (*SearchPage, error) {
	if err := snap.Require(dataset.KindPopulation); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, domerrors.NewValidationError("offset", "must not be negative")
	}

	q := strings.ToLower(strings.TrimSpace(query))
	alt := strings.ToLower(b.aliases.Normalize(query))

	var matched []SearchResult
	for _, r := range snap.Population.Rows {
		if slices.Contains(exclude, r.Region) {
			continue
		}
		lower := strings.ToLower(r.Region)
		if q != "" && !strings.Contains(lower, q) && !strings.Contains(lower, alt) {
			continue
		}
		matched = append(matched, SearchResult{
			Region:         r.Region,
			Population:     r.Population,
			PopulationText: FormatCount(r.Population),
		})
	}

	page := &SearchPage{Items: []SearchResult{}, Offset: offset, Total: len(matched), Next: -1}
	if offset >= len(matched) {
		return page, nil
	}
	end := min(offset+b.views.SearchPageSize, len(matched))
	page.Items = matched[offset:end]
	if end < len(matched) {
		page.Next = end
	}
	return page, nil
}
