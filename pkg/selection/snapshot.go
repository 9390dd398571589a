package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// Snapshot is a committed selection, bucketed by state.
type Snapshot struct {
	states map[tree.ID]model.SelectionState
	order  []tree.ID
}

// State returns the committed state of id, if id existed at commit time.
func (s *Snapshot) State(id tree.ID) (model.SelectionState, bool) {
	st, ok := s.states[id]
	return st, ok
}

// Bucket returns the nodes committed in state, in tree pre-order.
func (s *Snapshot) Bucket(state model.SelectionState) []tree.ID {
	var out []tree.ID
	for _, id := range s.order {
		if s.states[id] == state {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of nodes captured.
func (s *Snapshot) Len() int { return len(s.order) }

// Capture returns the current state as a snapshot without committing it.
func (m *Model) Capture() *Snapshot {
	snap := &Snapshot{states: make(map[tree.ID]model.SelectionState, m.tree.Len())}
	for id := range m.tree.Flatten(m.tree.Root()) {
		snap.states[id] = m.Selection(id)
		snap.order = append(snap.order, id)
	}
	return snap
}

// Snapshot returns the last committed selection, or nil before the first
// commit.
func (m *Model) Snapshot() *Snapshot { return m.snapshot }

// UpdateSelectedItems commits the current state. Unless silent, observers get
// an EventCommit.
func (m *Model) UpdateSelectedItems(silent bool) {
	m.snapshot = m.Capture()
	if !silent {
		m.emit(Event{Kind: EventCommit, Node: m.tree.Root()})
	}
}

// RestoreSelectedItems reverts to the last commit: the root is cleared, the
// committed Exclude groups and All nodes are replayed, and counts refreshed.
func (m *Model) RestoreSelectedItems() {
	snap := m.snapshot
	if snap == nil {
		return
	}
	m.begin()
	defer m.end()
	m.SetSelection(m.tree.Root(), model.None)
	for _, id := range snap.Bucket(model.Exclude) {
		m.SetSelection(id, model.Exclude)
	}
	for _, id := range snap.Bucket(model.All) {
		m.SetSelection(id, model.All)
	}
	m.Update()
}

// HasChanged reports whether the current state differs from the last commit.
// A node loaded after the commit counts as a change when it is All and its
// parent was committed as None.
func (m *Model) HasChanged() bool {
	snap := m.snapshot
	if snap == nil {
		return false
	}
	for id, st := range snap.states {
		if m.Selection(id) != st {
			return true
		}
	}
	for id := range m.tree.Flatten(m.tree.Root()) {
		if _, known := snap.states[id]; known || m.Selection(id) != model.All {
			continue
		}
		if st, ok := snap.states[m.tree.Parent(id)]; ok && st == model.None {
			return true
		}
	}
	return false
}

// SetSelectedItems replaces the selection from an id list: listed leaves and
// groups become All, every other leaf None. The result is committed silently.
// An empty tree is left alone.
func (m *Model) SetSelectedItems(ids []string) {
	root := m.tree.Root()
	if !m.tree.HasChildren(root) {
		return
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	m.begin()
	defer m.end()
	var groups []tree.ID
	for id := range m.tree.Flatten(root) {
		if id == root {
			continue
		}
		_, listed := want[m.tree.Data(id).ID]
		switch {
		case m.tree.IsLeaf(id) && listed:
			m.SetSelection(id, model.All)
		case m.tree.IsLeaf(id):
			m.SetSelection(id, model.None)
		case listed:
			groups = append(groups, id)
		}
	}
	for _, id := range groups {
		m.SetSelection(id, model.All)
	}
	m.Update()
	m.UpdateSelectedItems(true)
}

// SelectedItems returns the requested field of the highest fully selected
// nodes under id: an All node contributes itself, a None node nothing, and
// a partial node the union of its children.
func (m *Model) SelectedItems(id tree.ID, field model.Field) []any {
	return tree.WalkDown(m.tree, id,
		func(n tree.ID) []any {
			if m.Selection(n) == model.All {
				return []any{m.tree.Data(n).Field(field)}
			}
			return nil
		},
		func(n tree.ID, children [][]any) []any {
			switch m.Selection(n) {
			case model.All:
				return []any{m.tree.Data(n).Field(field)}
			case model.None:
				return nil
			}
			var out []any
			for _, c := range children {
				out = append(out, c...)
			}
			return out
		},
		nil)
}

// SelectedIDs is SelectedItems for the id field.
func (m *Model) SelectedIDs(id tree.ID) []string {
	items := m.SelectedItems(id, model.FieldID)
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, v.(string))
	}
	return out
}
