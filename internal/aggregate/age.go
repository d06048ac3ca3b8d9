package aggregate

// Bracket is an age bucket summed from one or more source columns.
type Bracket struct {
	Label   string   `yaml:"label" json:"label"`
	Columns []string `yaml:"columns" json:"columns"`
}

// Group combines several brackets under one chart label.
type Group struct {
	Label    string   `yaml:"label" json:"label"`
	Brackets []string `yaml:"brackets" json:"brackets"`
}

// Grouping is a named set of groups offered as a chart option.
type Grouping struct {
	Name   string  `yaml:"name" json:"name"`
	Groups []Group `yaml:"groups" json:"groups"`
}

// DefaultBrackets returns the seven brackets of the resident registration tables.
func DefaultBrackets() []Bracket {
	return []Bracket{
		{Label: "영유아", Columns: []string{"0~9세"}},
		{Label: "10대", Columns: []string{"10~19세"}},
		{Label: "20대", Columns: []string{"20~29세"}},
		{Label: "30대", Columns: []string{"30~39세"}},
		{Label: "40대", Columns: []string{"40~49세"}},
		{Label: "50대", Columns: []string{"50~59세"}},
		{Label: "60대이상", Columns: []string{"60~69세", "70~79세", "80~89세", "90~99세", "100세 이상"}},
	}
}

// DefaultGroupings returns the per-bracket grouping plus the two family-cycle
// combinations used by the household planning charts.
func DefaultGroupings() []Grouping {
	perBracket := Grouping{Name: "default"}
	for _, b := range DefaultBrackets() {
		perBracket.Groups = append(perBracket.Groups, Group{Label: b.Label, Brackets: []string{b.Label}})
	}
	return []Grouping{
		perBracket,
		{
			Name: "group1",
			Groups: []Group{
				{Label: "영유아+30대", Brackets: []string{"영유아", "30대"}},
				{Label: "10대+40대", Brackets: []string{"10대", "40대"}},
				{Label: "30대+40대+50대", Brackets: []string{"30대", "40대", "50대"}},
				{Label: "60대", Brackets: []string{"60대이상"}},
			},
		},
		{
			Name: "group2",
			Groups: []Group{
				{Label: "영유아+10대", Brackets: []string{"영유아", "10대"}},
				{Label: "영유아+30대", Brackets: []string{"영유아", "30대"}},
				{Label: "10대+40대", Brackets: []string{"10대", "40대"}},
				{Label: "30대+40대+50대", Brackets: []string{"30대", "40대", "50대"}},
				{Label: "60대", Brackets: []string{"60대이상"}},
			},
		},
	}
}

// BracketCounts sums each bracket's source columns read through cell.
// Missing or malformed cells count as zero.
func BracketCounts(brackets []Bracket, cell func(column string) string) map[string]int64 {
	counts := make(map[string]int64, len(brackets))
	for _, b := range brackets {
		var total int64
		for _, col := range b.Columns {
			total += ParseCountOrZero(cell(col))
		}
		counts[b.Label] = total
	}
	return counts
}

// Percentages expresses counts as a share of total population.
// A zero total is treated as one so empty regions report 0% rather than NaN.
func Percentages(counts map[string]int64, total int64) map[string]float64 {
	if total == 0 {
		total = 1
	}
	out := make(map[string]float64, len(counts))
	for label, n := range counts {
		out[label] = float64(n) / float64(total) * 100
	}
	return out
}

// GroupCounts folds bracket counts into the groups of g, in group order.
func GroupCounts(g Grouping, counts map[string]int64) []int64 {
	out := make([]int64, len(g.Groups))
	for i, group := range g.Groups {
		for _, label := range group.Brackets {
			out[i] += counts[label]
		}
	}
	return out
}

// FindGrouping looks a grouping up by name, falling back to the first one.
func FindGrouping(groupings []Grouping, name string) Grouping {
	for _, g := range groupings {
		if g.Name == name {
			return g
		}
	}
	if len(groupings) == 0 {
		return Grouping{}
	}
	return groupings[0]
}
