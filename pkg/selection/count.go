package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

type tally struct {
	selected, unselected int
}

// count refreshes NumberOfSelectedItems, NumberOfItems and the per-branch
// SelectedCount caches.
func (m *Model) count() {
	defer metrics.Timer(metrics.CountRefresh)()
	root := m.tree.Root()
	total := tree.WalkDown(m.tree, root,
		func(id tree.ID) tally {
			if m.tree.IsLeaf(id) {
				if m.Selection(id) == model.All {
					return tally{selected: 1}
				}
				return tally{unselected: 1}
			}
			return m.branchTally(id, tally{})
		},
		func(id tree.ID, children []tally) tally {
			var sum tally
			for _, c := range children {
				sum.selected += c.selected
				sum.unselected += c.unselected
			}
			return m.branchTally(id, sum)
		},
		func(id tree.ID, t tally) tally {
			if !m.tree.IsLeaf(id) {
				m.tree.Data(id).SelectedCount = t.selected
			}
			return t
		})

	m.selected = total.selected
	if srv := m.tree.Data(root).Server; srv.Known {
		m.items = srv.Total
	} else {
		m.items = 0
		for range m.tree.Leafs(root) {
			m.items++
		}
	}
	m.stale = false
}

// branchTally applies the server-aware arithmetic to a branch given the sum
// of its loaded children. With a known server total T:
//
//	None    -> 0 selected
//	All     -> T selected
//	Include -> loaded selected, T minus that unselected
//	Exclude -> T minus loaded unselected
func (m *Model) branchTally(id tree.ID, loaded tally) tally {
	srv := m.tree.Data(id).Server
	switch m.Selection(id) {
	case model.None:
		if srv.Known {
			return tally{unselected: srv.Total}
		}
		return tally{unselected: loaded.selected + loaded.unselected}
	case model.All:
		if srv.Known {
			return tally{selected: srv.Total}
		}
		return tally{selected: loaded.selected + loaded.unselected}
	case model.Include:
		if srv.Known {
			return tally{selected: loaded.selected, unselected: max(srv.Total-loaded.selected, 0)}
		}
		return loaded
	default:
		if srv.Known {
			return tally{selected: max(srv.Total-loaded.unselected, 0), unselected: loaded.unselected}
		}
		return loaded
	}
}
