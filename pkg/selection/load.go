package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

type seed struct {
	id    tree.ID
	state model.SelectionState
}

// Load inserts specs under parent. A spec whose id already exists is merged
// into that node (its children are added, its label kept) wherever it lives.
//
// New nodes start All when their parent is All or Exclude and None
// otherwise, so a group selected "including future pages" keeps selecting
// what later pages bring in. Explicit spec selections are applied on top.
// The subtree is then re-filtered with the current search pattern and the
// whole tree updated. Loading nothing is a no-op.
func (m *Model) Load(parent tree.ID, specs ...*model.NodeSpec) {
	if len(specs) == 0 {
		return
	}
	m.begin()
	defer m.end()

	var seeds []seed
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		seeds = m.insert(parent, spec, seeds)
	}
	for _, s := range seeds {
		m.SetSelection(s.id, s.state)
	}
	if !m.tree.Comparator().IsZero() {
		m.tree.Sort(parent, tree.SortOptions{Deep: true, Silent: true})
	}
	m.filter(parent, m.searchPattern)
	m.tree.Data(m.tree.Root()).Visible = true
	m.Update()
	debug.Log("selection: loaded %d specs under node %d (%d nodes total)", len(specs), parent, m.tree.Len())
	m.emit(Event{Kind: EventLoad, Node: parent})
}

// inherited is the starting state of a node inserted under parent.
func (m *Model) inherited(parent tree.ID) model.SelectionState {
	switch m.Selection(parent) {
	case model.All, model.Exclude:
		return model.All
	}
	return model.None
}

func (m *Model) insert(parent tree.ID, spec *model.NodeSpec, seeds []seed) []seed {
	id, exists := tree.NoID, false
	if spec.ID != "" {
		id, exists = m.index[spec.ID]
	}
	if exists {
		if spec.Nodes != nil {
			m.tree.MakeBranch(id)
		}
	} else {
		it := Item{
			ID:        spec.ID,
			Label:     spec.Label,
			Value:     spec.Value,
			Selection: m.inherited(parent),
			Visible:   true,
			seq:       m.seq,
		}
		m.seq++
		id = m.tree.Add(parent, it, !spec.IsLeaf())
		if spec.ID != "" {
			m.index[spec.ID] = id
		}
		m.stale = true
	}
	if spec.NumberOfItemsAtServer != nil {
		m.tree.Data(id).Server = KnownTotal(*spec.NumberOfItemsAtServer)
	}
	if spec.Selection.IsValid() {
		seeds = append(seeds, seed{id: id, state: spec.Selection})
	}
	for _, child := range spec.Nodes {
		if child != nil {
			seeds = m.insert(id, child, seeds)
		}
	}
	return seeds
}
