package filter

import (
	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// StateFunc reports the selection state to serialize for a node.
type StateFunc func(tree.ID) model.SelectionState

// ToFilter collapses the whole current selection of m into one expression.
//
// A fully unselected tree yields isIn("", []) and a fully selected one
// isIn("", [root]). A nil result means the partial selection names no
// constraint.
func ToFilter(m *selection.Model) *Expr {
	return ToFilterWith(m, m.Selection)
}

// ToFilterOf serializes the states committed in snap. Nodes loaded after the
// commit use their current state.
func ToFilterOf(m *selection.Model, snap *selection.Snapshot) *Expr {
	return ToFilterWith(m, func(id tree.ID) model.SelectionState {
		if st, ok := snap.State(id); ok {
			return st
		}
		return m.Selection(id)
	})
}

// ToFilterWith serializes m reading every state through state.
func ToFilterWith(m *selection.Model, state StateFunc) *Expr {
	defer metrics.Timer(metrics.FilterBuild)()
	s := serializer{m: m, state: state}
	e := s.node(m.Root(), model.None)
	debug.Log("filter: %s", e)
	return e
}

type serializer struct {
	m     *selection.Model
	state StateFunc
}

// node serializes the subtree of id. ambient is the state of id's parent and
// decides how an unselected node is expressed: under an Exclude parent it is
// named so the parent can exclude it, elsewhere it is the empty set.
func (s serializer) node(id tree.ID, ambient model.SelectionState) *Expr {
	m := s.m
	switch s.state(id) {
	case model.All:
		return IsIn(parentKey(m, id), m.Item(id).ID)
	case model.None:
		if ambient == model.Exclude {
			return IsIn(parentKey(m, id), m.Item(id).ID)
		}
		return IsIn(parentKey(m, id))
	}
	return s.partial(id)
}

func parentKey(m *selection.Model, id tree.ID) string {
	p := m.Tree().Parent(id)
	if p == tree.NoID {
		return ""
	}
	return m.Item(p).ID
}

// partial serializes an Include or Exclude group. The children describe the
// exceptions to the group's default: the included set under Include, the
// excluded set under Exclude, which is then negated.
func (s serializer) partial(id tree.ID) *Expr {
	e := s.exceptions(id)
	if s.state(id) == model.Exclude {
		return Not(e)
	}
	return e
}

// exceptions returns the union of the children of id that differ from its
// default. Children with the opposite polarity contribute their own subtree
// minus their own exceptions.
func (s serializer) exceptions(id tree.ID) *Expr {
	m := s.m
	state := s.state(id)
	exclusive := state == model.Exclude
	key := m.Item(id).ID

	var operands []*Expr
	for _, c := range m.Tree().Children(id) {
		cs := s.state(c)
		switch {
		case exclusive && cs == model.All, !exclusive && cs == model.None:
			continue
		case cs == state:
			if e := s.exceptions(c); e != nil {
				operands = append(operands, e)
			}
		case cs.IsPartial():
			scope := IsIn(key, m.Item(c).ID)
			if inner := s.exceptions(c); inner != nil {
				operands = append(operands, And(scope, Not(inner)))
			} else {
				operands = append(operands, scope)
			}
		default:
			operands = append(operands, s.node(c, state))
		}
	}

	operands = SimplifyIsIn(operands)
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	}
	return Or(operands...)
}
