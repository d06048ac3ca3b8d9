package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	ratio, err := p.SupplyRatio()
	require.NoError(t, err)
	assert.Equal(t, "0.005", ratio.String())

	scale, err := p.Scale()
	require.NoError(t, err)
	assert.Len(t, scale.Bands, 6)
	assert.Equal(t, "A (적정)", scale.Classify(100, 100).Label)
	assert.Equal(t, "C (적정)", scale.Classify(201, 100).Label)

	assert.Equal(t, "서울특별시", p.AliasTable().Resolve("서울"))
	assert.Len(t, p.Views.TrendYears(), 31)
}

func TestLoadPolicy_EmptyPath(t *testing.T) {
	t.Parallel()

	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicy_PartialOverride(t *testing.T) {
	t.Parallel()

	path := writePolicy(t, `
supply:
  ratio: "0.01"
  grades:
    - max: "1.0"
      label: 부족
      color: "#000000"
  above:
    label: 과잉
    color: "#FFFFFF"
views:
  calendar_years: [2027]
  summary_years: [2027]
  trend_start_year: 2020
  trend_end_year: 2022
  region_year_start: 2027
  region_year_count: 1
  search_page_size: 10
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	ratio, err := p.SupplyRatio()
	require.NoError(t, err)
	assert.Equal(t, "0.01", ratio.String())

	scale, err := p.Scale()
	require.NoError(t, err)
	assert.Equal(t, "부족", scale.Classify(10, 10).Label)
	assert.Equal(t, "과잉", scale.Classify(11, 10).Label)

	assert.Equal(t, []int{2020, 2021, 2022}, p.Views.TrendYears())
	assert.Equal(t, 10, p.Views.SearchPageSize)

	// untouched sections keep their defaults
	assert.Len(t, p.Brackets, 7)
	assert.Equal(t, "경기도", p.AliasTable().Resolve("경기"))
}

func TestLoadPolicy_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"bad ratio", "supply:\n  ratio: abc\n"},
		{"unordered grades", `
supply:
  ratio: "0.005"
  grades:
    - {max: "1.0", label: a, color: "#111"}
    - {max: "0.5", label: b, color: "#222"}
`},
		{"unknown bracket", `
groupings:
  - name: broken
    groups:
      - label: x
        brackets: [없는구간]
`},
		{"unknown field", "colours: []\n"},
		{"zero page size", "views:\n  calendar_years: [2025]\n  summary_years: [2025]\n  region_year_count: 1\n  search_page_size: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadPolicy(writePolicy(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
