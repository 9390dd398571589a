package selection

import (
	"strings"

	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// Matcher decides whether a leaf matches a non-empty search text.
type Matcher func(m *Model, id tree.ID, text string) bool

// DefaultMatcher matches text case-insensitively against the labels from the
// top-level group down to id, joined by spaces.
func DefaultMatcher(m *Model, id tree.ID, text string) bool {
	return strings.Contains(strings.ToLower(m.FullLabel(id)), strings.ToLower(text))
}

// FullLabel joins the labels on the path from the root to id. The synthetic
// root's own label is left out for every other node.
func (m *Model) FullLabel(id tree.ID) string {
	path := m.tree.Path(id)
	if len(path) > 1 {
		path = path[1:]
	}
	labels := make([]string, 0, len(path))
	for _, n := range path {
		if l := m.tree.Data(n).Label; l != "" {
			labels = append(labels, l)
		}
	}
	return strings.Join(labels, " ")
}

// FilterBy records text as the search pattern and recomputes visibility: a
// leaf is visible when text is empty or matches, a group when any child is
// visible. The root always stays visible.
func (m *Model) FilterBy(text string) {
	defer metrics.Timer(metrics.Visibility)()
	m.begin()
	defer m.end()
	m.searchPattern = text
	root := m.tree.Root()
	m.filter(root, text)
	m.tree.Data(root).Visible = true
	m.emit(Event{Kind: EventVisibility, Node: root})
}

func (m *Model) filter(id tree.ID, text string) {
	tree.WalkDown(m.tree, id,
		func(n tree.ID) bool {
			return text == "" || m.matcher(m, n, text)
		},
		func(_ tree.ID, children []bool) bool {
			for _, v := range children {
				if v {
					return true
				}
			}
			return false
		},
		func(n tree.ID, v bool) bool {
			m.tree.Data(n).Visible = v
			return v
		})
}

// VisibleCount returns the number of visible leaves under id.
func (m *Model) VisibleCount(id tree.ID) int {
	n := 0
	for leaf := range m.tree.Leafs(id) {
		if m.tree.Data(leaf).Visible {
			n++
		}
	}
	return n
}
