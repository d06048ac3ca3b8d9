package region

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Node is one cleaned region name in a Tree.
type Node struct {
	Name  string
	Level int

	// Rows are the input indices whose cleaned name equals Name.
	Rows []int
	// ChildRows are the input indices of direct children, in input order.
	ChildRows []int
}

// Tree indexes a list of region names once so child lookups avoid rescanning.
// A Tree is immutable after Build and safe for concurrent reads.
type Tree struct {
	nodes   map[string]*Node
	byLevel map[int][]string
}

// Build indexes names; the i-th name is reported as row index i.
func Build(names []string) *Tree {
	t := &Tree{
		nodes:   make(map[string]*Node, len(names)),
		byLevel: make(map[int][]string),
	}

	for i, raw := range names {
		name := CleanName(raw)
		if name == "" {
			continue
		}
		n := t.node(name)
		if len(n.Rows) == 0 {
			t.byLevel[n.Level] = append(t.byLevel[n.Level], name)
		}
		n.Rows = append(n.Rows, i)

		if parent := ParentName(name); parent != "" {
			p := t.node(parent)
			p.ChildRows = append(p.ChildRows, i)
		}
	}

	for level, list := range t.byLevel {
		t.byLevel[level] = SortNames(list)
	}
	return t
}

func (t *Tree) node(name string) *Node {
	if n, ok := t.nodes[name]; ok {
		return n
	}
	n := &Node{Name: name, Level: Level(name)}
	t.nodes[name] = n
	return n
}

// Lookup returns the node for a region name, or nil.
func (t *Tree) Lookup(name string) *Node {
	return t.nodes[CleanName(name)]
}

// Select returns the row indices of the region itself followed by its direct
// children, matching a full IsDirectChild scan.
func (t *Tree) Select(name string) []int {
	n := t.Lookup(name)
	if n == nil {
		return nil
	}
	out := make([]int, 0, len(n.Rows)+len(n.ChildRows))
	out = append(out, n.Rows...)
	return append(out, n.ChildRows...)
}

// Names returns the distinct names present at a level, in Korean collation order.
func (t *Tree) Names(level int) []string {
	return slices.Clone(t.byLevel[level])
}

// Search filters Names(level) by a case-insensitive substring.
// A query is also tried with its first token resolved through aliases,
// so "경기 수원" finds "경기도 수원시".
func (t *Tree) Search(level int, query string, aliases AliasTable) []string {
	names := t.Names(level)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return names
	}
	alt := strings.ToLower(aliases.Normalize(query))

	out := names[:0]
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, q) || (alt != "" && strings.Contains(lower, alt)) {
			out = append(out, name)
		}
	}
	return out
}

// SortNames sorts names in place with Korean collation and returns them.
func SortNames(names []string) []string {
	c := collate.New(language.Korean)
	slices.SortStableFunc(names, c.CompareString)
	return names
}

// NewComparer returns a Korean collation comparison function.
// The returned function is not safe for concurrent use.
func NewComparer() func(a, b string) int {
	return collate.New(language.Korean).CompareString
}
