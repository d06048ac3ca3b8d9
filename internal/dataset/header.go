package dataset

import (
	"regexp"

	"github.com/garyellow/regionstat/internal/csvtext"
)

// Resident registration exports prefix every column with the reference month,
// e.g. "2025년10월_계_총인구수" or "2025년10월_세대수".
var headerPrefix = regexp.MustCompile(`^\d{4}년\s*\d{1,2}월_(?:계_)?`)

// NormalizeHeader strips a snapshot month prefix from a column name.
func NormalizeHeader(h string) string {
	return headerPrefix.ReplaceAllString(h, "")
}

func normalizeTable(t *csvtext.Table) *csvtext.Table {
	t.RenameColumns(NormalizeHeader)
	return t
}
