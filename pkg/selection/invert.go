package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// Invert flips the selection under id: All and None swap, and a partial group
// inverts each child and switches between Include and Exclude.
func (m *Model) Invert(id tree.ID) {
	m.begin()
	defer m.end()
	m.invert(id)
	m.Update()
	m.emit(Event{Kind: EventSelection, Node: id})
}

func (m *Model) invert(id tree.ID) {
	switch m.Selection(id) {
	case model.None:
		m.force(id, model.All)
	case model.All:
		m.force(id, model.None)
	case model.Include:
		for _, c := range m.tree.Children(id) {
			m.invert(c)
		}
		m.setState(id, model.Exclude)
	case model.Exclude:
		for _, c := range m.tree.Children(id) {
			m.invert(c)
		}
		m.setState(id, model.Include)
	}
}
