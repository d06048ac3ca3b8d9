package storage

import "strings"

// sanitizeSearchTerm escapes the LIKE wildcards % and _ and the escape
// character itself, for use with ESCAPE '\'.
func sanitizeSearchTerm(term string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"%", "\\%",
		"_", "\\_",
	)
	return replacer.Replace(term)
}
