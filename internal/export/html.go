package export

import (
	"fmt"
	"html/template"
	"io"

	"github.com/garyellow/regionstat/internal/view"
)

// ContentTypeHTML is the media type of HTML fragments.
const ContentTypeHTML = "text/html; charset=utf-8"

var populationTable = template.Must(template.New("population").Parse(`<table class="population-table" data-snapshot="{{.SnapshotID}}">
<thead>
<tr><th>지역</th><th>총인구수</th>{{range .Brackets}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr data-region="{{.Region}}"><td class="region">{{.ShortName}}</td><td class="total">{{.Total}}</td>{{range .Brackets}}<td data-bracket="{{.Label}}">{{.Text}}</td>{{end}}</tr>
{{- end}}
</tbody>
{{- with .Stats}}
<tfoot>
<tr><td>합계</td><td class="total">{{.TotalText}}</td><td class="count" colspan="{{$.Span}}">{{.RegionCount}}개 지역 · 세대당 인구 {{.AvgHouseholdSize}}</td></tr>
</tfoot>
{{- end}}
</table>
`))

type populationTableData struct {
	*view.Population
	Span int
}

// PopulationTable renders the population table as an HTML fragment.
func PopulationTable(w io.Writer, v *view.Population) error {
	data := populationTableData{Population: v, Span: max(len(v.Brackets), 1)}
	if err := populationTable.Execute(w, data); err != nil {
		return fmt.Errorf("render population table: %w", err)
	}
	return nil
}
