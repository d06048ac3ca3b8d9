// Package csvtext parses the comma-separated text the statistics datasets ship as.
//
// The format is deliberately looser than RFC 4180: a double quote only toggles
// quoted mode and is never kept, a comma splits fields only outside quotes, and
// every field is trimmed. Rows shorter than the header are padded with "".
package csvtext

import (
	"strings"
)

// Row maps a column header to its raw cell text.
type Row map[string]string

// Get returns the cell for column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Table is a parsed dataset: the header in column order plus one Row per line.
type Table struct {
	Header []string
	Rows   []Row
}

// Parse splits text into a header and rows.
// Blank lines are skipped; CRLF line endings are accepted.
func Parse(text string) *Table {
	text = strings.TrimSpace(text)
	if text == "" {
		return &Table{}
	}

	lines := strings.Split(text, "\n")

	header := strings.Split(strings.TrimRight(lines[0], "\r"), ",")
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.ReplaceAll(h, `"`, ""))
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := SplitLine(line)
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}
}

// SplitLine splits one line into trimmed fields, honouring quoted commas.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// RenameColumns rewrites every header through fn, keeping cell values.
// Later columns win when two headers map to the same name.
func (t *Table) RenameColumns(fn func(string) string) {
	original := t.Header
	t.Header = make([]string, len(original))
	for i, h := range original {
		t.Header[i] = fn(h)
	}
	for i, row := range t.Rows {
		next := make(Row, len(row))
		for j, h := range original {
			next[t.Header[j]] = row[h]
		}
		t.Rows[i] = next
	}
}
