// Package selection implements the four-state selection tree behind a
// hierarchical multi-select filter.
//
// Every node is None, All, Include or Exclude. Setting a branch to All or
// None forces its descendants; any change is then folded back up to the root.
// Include and Exclude describe branches whose children are only partially
// loaded: Include selects the listed children of an otherwise unselected
// group, Exclude deselects them from an otherwise selected one.
//
// A Model is not safe for concurrent use. Observers are called synchronously,
// after the mutation that caused them has fully settled.
package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// Model is a selection tree with root-scoped aggregates.
type Model struct {
	tree    *tree.Tree[Item]
	index   map[string]tree.ID
	matcher Matcher
	seq     int

	searchPattern string
	selected      int
	items         int
	stale         bool
	snapshot      *Snapshot

	busy         bool
	collapsed    bool
	limitReached bool

	resortOnSelection bool

	observers []observer
	nextObs   int
	depth     int
	pending   []Event
	changed   []tree.ID
	seen      map[tree.ID]struct{}
}

// Option configures a Model.
type Option func(*Model)

// WithRoot sets the id and label of the synthetic root.
func WithRoot(id, label string) Option {
	return func(m *Model) {
		root := m.tree.Data(m.tree.Root())
		root.ID = id
		root.Label = label
	}
}

// WithMatcher replaces the default search predicate.
func WithMatcher(fn Matcher) Option {
	return func(m *Model) {
		if fn != nil {
			m.matcher = fn
		}
	}
}

// WithComparator installs sort keys applied after every load.
func WithComparator(c tree.Comparator[Item], resortOnSelection bool) Option {
	return func(m *Model) {
		m.SetComparator(c, resortOnSelection)
	}
}

// New creates an empty selection tree whose root is unselected.
func New(opts ...Option) *Model {
	m := &Model{
		tree: tree.New(Item{
			Selection: model.None,
			Visible:   true,
			Label:     "All",
		}),
		index:     make(map[string]tree.ID),
		matcher:   DefaultMatcher,
		stale:     true,
		collapsed: true,
		seen:      make(map[tree.ID]struct{}),
	}
	m.tree.MakeBranch(m.tree.Root())
	m.tree.OnSort(func(id tree.ID) {
		m.emit(Event{Kind: EventSort, Node: id})
	})
	for _, opt := range opts {
		opt(m)
	}
	if id := m.tree.Data(m.tree.Root()).ID; id != "" {
		m.index[id] = m.tree.Root()
	}
	m.count()
	return m
}

// Tree exposes the underlying tree for read-only traversal.
func (m *Model) Tree() *tree.Tree[Item] { return m.tree }

// Root returns the root node.
func (m *Model) Root() tree.ID { return m.tree.Root() }

// Find returns the node with the given id.
func (m *Model) Find(id string) (tree.ID, bool) {
	n, ok := m.index[id]
	return n, ok
}

// Item returns a copy of the node payload.
func (m *Model) Item(id tree.ID) Item { return *m.tree.Data(id) }

// Selection returns the current state of a node.
func (m *Model) Selection(id tree.ID) model.SelectionState {
	return m.tree.Data(id).Selection
}

// Visible returns the cached search visibility of a node.
func (m *Model) Visible(id tree.ID) bool { return m.tree.Data(id).Visible }

// IsLeaf reports whether id is a leaf item (as opposed to a group).
func (m *Model) IsLeaf(id tree.ID) bool { return m.tree.IsLeaf(id) }

// SearchPattern returns the text of the last FilterBy call.
func (m *Model) SearchPattern() string { return m.searchPattern }

// NumberOfSelectedItems returns the selected leaf count as of the last
// Update. Check Stale before relying on it after a mutation.
func (m *Model) NumberOfSelectedItems() int { return m.selected }

// NumberOfItems returns the total leaf count as of the last Update.
func (m *Model) NumberOfItems() int { return m.items }

// Stale reports whether the counts predate the last mutation.
func (m *Model) Stale() bool { return m.stale }

// Disabled reports whether the tree has nothing to select.
func (m *Model) Disabled() bool { return !m.tree.HasChildren(m.tree.Root()) }

// Busy reports whether the host is waiting on a page of data.
func (m *Model) Busy() bool { return m.busy }

// SetBusy marks a fetch as in flight (or finished).
func (m *Model) SetBusy(busy bool) { m.setFlag(&m.busy, busy) }

// Collapsed reports whether the selection list is closed.
func (m *Model) Collapsed() bool { return m.collapsed }

// SetCollapsed opens or closes the selection list.
func (m *Model) SetCollapsed(collapsed bool) { m.setFlag(&m.collapsed, collapsed) }

// ReachedSelectionLimit reports the flag published by a limited strategy.
func (m *Model) ReachedSelectionLimit() bool { return m.limitReached }

// SetReachedSelectionLimit publishes whether the selection limit is reached.
func (m *Model) SetReachedSelectionLimit(v bool) { m.setFlag(&m.limitReached, v) }

func (m *Model) setFlag(flag *bool, v bool) {
	if *flag == v {
		return
	}
	*flag = v
	m.emit(Event{Kind: EventFlags, Node: m.tree.Root()})
}

// SetServerTotal records the server-reported leaf count of a subtree.
func (m *Model) SetServerTotal(id tree.ID, total int) {
	m.tree.Data(id).Server = KnownTotal(total)
	m.stale = true
}

// Materialized reports whether all leaves of id's subtree are loaded.
func (m *Model) Materialized(id tree.ID) bool {
	srv := m.tree.Data(id).Server
	return !srv.Known || len(m.tree.Children(id)) == srv.Total
}

// SetComparator installs the sort keys and sorts the whole tree silently.
// With resortOnSelection, siblings are re-sorted after selection changes.
func (m *Model) SetComparator(c tree.Comparator[Item], resortOnSelection bool) {
	m.tree.SetComparator(c)
	m.resortOnSelection = resortOnSelection
	m.tree.Sort(m.tree.Root(), tree.SortOptions{Deep: true, Silent: true})
}

// Sort re-sorts the children of id (recursively) and notifies observers.
func (m *Model) Sort(id tree.ID) {
	m.begin()
	defer m.end()
	m.tree.Sort(id, tree.SortOptions{Deep: true})
}
