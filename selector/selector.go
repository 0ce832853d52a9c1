// Package selector filters collected test nodes by tag, model name, or
// source reference. Selection expressions compose into a boolean predicate
// tree; exclusion predicates remove matching nodes after inclusion applies.
package selector

import (
	"strings"

	"github.com/schemaguard/schemaguard/types"
)

// Predicate decides whether a test node is selected.
type Predicate interface {
	Matches(node types.TestNode) bool
}

// TagPredicate selects nodes whose tag set contains the tag.
type TagPredicate struct{ Tag string }

func (p TagPredicate) Matches(node types.TestNode) bool {
	return node.HasTag(p.Tag)
}

// ModelPredicate selects the tests attached to a specific model, including
// source-based tests scoped to a table of that name.
type ModelPredicate struct{ Name string }

func (p ModelPredicate) Matches(node types.TestNode) bool {
	return node.Model == p.Name
}

// SourcePredicate selects tests attached to tables of a named source.
// "source:my_source" matches the whole source; "source:my_source.tbl"
// narrows to one table.
type SourcePredicate struct {
	Source string
	Table  string
}

func (p SourcePredicate) Matches(node types.TestNode) bool {
	if node.Source != p.Source {
		return false
	}
	return p.Table == "" || node.Model == p.Table
}

// Not inverts a predicate.
type Not struct{ P Predicate }

func (p Not) Matches(node types.TestNode) bool { return !p.P.Matches(node) }

// Any matches when any child predicate matches. An empty Any matches nothing.
type Any []Predicate

func (ps Any) Matches(node types.TestNode) bool {
	for _, p := range ps {
		if p.Matches(node) {
			return true
		}
	}
	return false
}

// All matches when every child predicate matches.
type All []Predicate

func (ps All) Matches(node types.TestNode) bool {
	for _, p := range ps {
		if !p.Matches(node) {
			return false
		}
	}
	return true
}

// Parse converts one selection expression into a predicate:
// "tag:<name>", "source:<name>[.<table>]", or a bare model name.
func Parse(expr string) Predicate {
	switch {
	case strings.HasPrefix(expr, "tag:"):
		return TagPredicate{Tag: strings.TrimPrefix(expr, "tag:")}
	case strings.HasPrefix(expr, "source:"):
		ref := strings.TrimPrefix(expr, "source:")
		if source, table, found := strings.Cut(ref, "."); found {
			return SourcePredicate{Source: source, Table: table}
		}
		return SourcePredicate{Source: ref}
	default:
		return ModelPredicate{Name: expr}
	}
}

// Selection is a complete include/exclude specification for a run.
type Selection struct {
	Include []Predicate
	Exclude []Predicate
}

// NewSelection parses --models and --exclude expressions into a Selection.
func NewSelection(include, exclude []string) Selection {
	s := Selection{}
	for _, expr := range include {
		s.Include = append(s.Include, Parse(expr))
	}
	for _, expr := range exclude {
		s.Exclude = append(s.Exclude, Parse(expr))
	}
	return s
}

// Apply filters nodes: with no include predicates everything is selected;
// exclusions remove matching nodes afterwards. Node order is preserved.
func (s Selection) Apply(nodes []types.TestNode) []types.TestNode {
	selected := make([]types.TestNode, 0, len(nodes))
	for _, node := range nodes {
		if len(s.Include) > 0 && !Any(s.Include).Matches(node) {
			continue
		}
		if len(s.Exclude) > 0 && Any(s.Exclude).Matches(node) {
			continue
		}
		selected = append(selected, node)
	}
	return selected
}
