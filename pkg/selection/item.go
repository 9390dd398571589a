package selection

import (
	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// ServerCount carries the server-reported leaf count of a subtree. A zero
// value means the count is unknown and the loaded children are taken to be
// the whole subtree.
type ServerCount struct {
	Known bool
	Total int
}

// KnownTotal returns a ServerCount for a reported total.
func KnownTotal(n int) ServerCount {
	return ServerCount{Known: true, Total: n}
}

// Item is the payload of every node in the selection tree.
type Item struct {
	ID        string
	Label     string
	Value     any
	Selection model.SelectionState
	Visible   bool
	Server    ServerCount

	// SelectedCount is the number of selected leaves under a branch as of the
	// last Update.
	SelectedCount int

	seq int
}

// Field returns the value of one of the id/label/value properties.
func (it *Item) Field(f model.Field) any {
	switch f {
	case model.FieldLabel:
		return it.Label
	case model.FieldValue:
		return it.Value
	default:
		return it.ID
	}
}
