// Package region resolves the administrative hierarchy encoded in region names.
//
// A region name lists its administrative tokens from coarsest to finest,
// separated by whitespace ("경기도 수원시 장안구"). Parenthetical annotations
// such as embedded region codes are not part of the name. The hierarchy is
// implied: a region's level is its token count, and a direct child extends its
// parent by exactly one whole token.
package region

import (
	"regexp"
	"strings"
	"unicode"
)

var annotationPattern = regexp.MustCompile(`\s*\([^)]*\)`)

// CleanName strips every parenthetical annotation and surrounding whitespace.
func CleanName(raw string) string {
	return strings.TrimSpace(annotationPattern.ReplaceAllString(raw, ""))
}

// Tokens returns the non-empty whitespace-separated tokens of the cleaned name.
func Tokens(name string) []string {
	return strings.Fields(CleanName(name))
}

// Level is the token count of the cleaned name. The empty name has level 0.
func Level(name string) int {
	return len(Tokens(name))
}

// ShortName returns the finest token of the name, e.g. "장안구".
func ShortName(name string) string {
	cleaned := CleanName(name)
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return cleaned
	}
	return tokens[len(tokens)-1]
}

// IsDirectChild reports whether candidate sits exactly one level below parent.
// The prefix must end on a token boundary: "경기" is not a parent of "경기도 수원시".
func IsDirectChild(parent, candidate string) bool {
	p := CleanName(parent)
	if p == "" {
		return false
	}
	c := CleanName(candidate)
	return strings.HasPrefix(c, p+" ") && Level(c) == Level(p)+1
}

// IsWithin reports whether candidate is ancestor itself or lies anywhere below it.
// Supply addresses are deeper than any selectable region, so they are matched
// by token-boundary prefix at any depth.
func IsWithin(ancestor, candidate string) bool {
	a := CleanName(ancestor)
	if a == "" {
		return false
	}
	c := CleanName(candidate)
	return c == a || strings.HasPrefix(c, a+" ")
}

// ParentName returns the name one level up, or "" for top-level names.
// The parent is only reported when the child extends it with a single space,
// which keeps it consistent with IsDirectChild.
func ParentName(name string) string {
	c := CleanName(name)
	last := strings.LastIndexFunc(c, unicode.IsSpace)
	if last < 0 {
		return ""
	}
	parent := strings.TrimRightFunc(c[:last], unicode.IsSpace)
	if parent == "" || !strings.HasPrefix(c, parent+" ") {
		return ""
	}
	return parent
}
