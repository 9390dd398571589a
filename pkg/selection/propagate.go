package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// SetSelection writes state on id, forces descendants for All/None and
// re-derives every ancestor. Counts are left stale. Invalid states and
// partial states on leaves are ignored.
func (m *Model) SetSelection(id tree.ID, state model.SelectionState) {
	if !state.IsValid() || (m.tree.IsLeaf(id) && state.IsPartial()) {
		debug.Log("selection: ignoring %q on node %d", state, id)
		return
	}
	if m.Selection(id) == state {
		return
	}
	m.begin()
	defer m.end()
	m.force(id, state)
	m.propagateUp(m.tree.Parent(id))
}

// SetAndUpdateSelection is the interactive write path: SetSelection, then a
// full Update, then an EventSelection for id.
func (m *Model) SetAndUpdateSelection(id tree.ID, state model.SelectionState) {
	m.begin()
	defer m.end()
	m.SetSelection(id, state)
	m.Update()
	m.emit(Event{Kind: EventSelection, Node: id})
}

// UpdateSelection re-derives the states of id's subtree from its leaves in
// one bottom-up pass, then re-derives id's ancestors. It returns id's state.
func (m *Model) UpdateSelection(id tree.ID) model.SelectionState {
	m.begin()
	defer m.end()
	state := tree.WalkDown(m.tree, id,
		m.Selection,
		func(n tree.ID, states []model.SelectionState) model.SelectionState {
			return reduce(states, m.Selection(n), m.Materialized(n))
		},
		func(n tree.ID, s model.SelectionState) model.SelectionState {
			if m.tree.HasChildren(n) {
				m.setState(n, s)
			}
			return s
		})
	m.propagateUp(m.tree.Parent(id))
	return state
}

// Update re-derives every state from the leaves and refreshes the root-scoped
// counts.
func (m *Model) Update() {
	defer metrics.Timer(metrics.SelectionUpdate)()
	m.begin()
	defer m.end()
	m.UpdateSelection(m.tree.Root())
	m.count()
}

// reduce folds child states into the state of their parent. An all-All
// result is trusted only when the children are fully loaded or the parent
// already defaulted to selected.
func reduce(children []model.SelectionState, current model.SelectionState, materialized bool) model.SelectionState {
	allAll, allNone := true, true
	for _, s := range children {
		if s != model.All {
			allAll = false
		}
		if s != model.None {
			allNone = false
		}
	}
	if allAll && (materialized || current == model.Exclude || current == model.All) {
		return model.All
	}
	if allNone && current != model.Exclude {
		return model.None
	}
	if current == model.None || current == model.Include {
		return model.Include
	}
	return model.Exclude
}

func (m *Model) setState(id tree.ID, state model.SelectionState) {
	it := m.tree.Data(id)
	if it.Selection == state {
		return
	}
	it.Selection = state
	m.stale = true
	m.markChanged(id)
}

// force writes state on id and, for All/None, on every descendant that is
// not already in that state.
func (m *Model) force(id tree.ID, state model.SelectionState) {
	m.setState(id, state)
	if state.IsPartial() {
		return
	}
	for _, c := range m.tree.Children(id) {
		if m.Selection(c) != state {
			m.force(c, state)
		}
	}
}

// propagateUp re-derives ancestors starting at id, stopping at the first one
// whose state does not change.
func (m *Model) propagateUp(id tree.ID) {
	for ; id != tree.NoID; id = m.tree.Parent(id) {
		children := m.tree.Children(id)
		if len(children) == 0 {
			return
		}
		states := make([]model.SelectionState, len(children))
		for i, c := range children {
			states[i] = m.Selection(c)
		}
		next := reduce(states, m.Selection(id), m.Materialized(id))
		if next == m.Selection(id) {
			return
		}
		m.setState(id, next)
	}
}
