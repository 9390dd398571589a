// Package strategy holds the selection policies a filter can run with:
// Single (one leaf, committed immediately), Multi (free toggling) and
// Limited (Multi with a cap on the number of selected leaves).
package strategy

import (
	"fmt"
	"log"
	"strings"

	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// DefaultLimit is the cap used by Limited when none is configured.
const DefaultLimit = 500

// Strategy is a selection policy. Every operation acts on the model it is
// handed; strategies keep no per-tree state.
type Strategy interface {
	// Name returns the configuration name of the policy.
	Name() string
	// NewState returns the state a click moves a node to.
	NewState(old model.SelectionState) model.SelectionState
	// SetSelection writes state on id if the policy allows it.
	SetSelection(m *selection.Model, id tree.ID, state model.SelectionState) bool
	// ChangeSelection toggles id.
	ChangeSelection(m *selection.Model, id tree.ID) bool
	// SelectOnlyThis clears the tree and selects id.
	SelectOnlyThis(m *selection.Model, id tree.ID) bool
	// ApplySelection commits the current selection.
	ApplySelection(m *selection.Model)
	// CancelSelection reverts to the last commit.
	CancelSelection(m *selection.Model)
	// Filter runs a search.
	Filter(m *selection.Model, text string)
}

// NewState is the shared toggle rule: None and Exclude go to All, All and
// Include go to None.
func NewState(old model.SelectionState) model.SelectionState {
	switch old {
	case model.None, model.Exclude:
		return model.All
	default:
		return model.None
	}
}

// ToggleCollapse opens or closes the selection list. Opening a list whose
// search hides every node clears the search. A disabled tree stays closed.
func ToggleCollapse(s Strategy, m *selection.Model) {
	if m.Disabled() {
		m.SetCollapsed(true)
		return
	}
	if m.Collapsed() && m.VisibleCount(m.Root()) == 0 {
		s.Filter(m, "")
	}
	m.SetCollapsed(!m.Collapsed())
}

// ClickOutside closes the selection list.
func ClickOutside(m *selection.Model) {
	m.SetCollapsed(true)
}

// base carries the behavior Single and Multi share.
type base struct{}

func (base) NewState(old model.SelectionState) model.SelectionState { return NewState(old) }

func (base) ApplySelection(m *selection.Model) {
	m.UpdateSelectedItems(false)
	m.FilterBy("")
	m.SetCollapsed(true)
}

func (base) CancelSelection(m *selection.Model) {
	m.RestoreSelectedItems()
	m.SetCollapsed(true)
}

func (base) Filter(m *selection.Model, text string) {
	m.FilterBy(text)
}

// Multi allows any node to be toggled.
type Multi struct{ base }

// NewMulti returns the unrestricted policy.
func NewMulti() *Multi { return &Multi{} }

func (*Multi) Name() string { return "MultiSelect" }

func (*Multi) SetSelection(m *selection.Model, id tree.ID, state model.SelectionState) bool {
	m.SetAndUpdateSelection(id, state)
	return true
}

func (s *Multi) ChangeSelection(m *selection.Model, id tree.ID) bool {
	return s.SetSelection(m, id, s.NewState(m.Selection(id)))
}

func (s *Multi) SelectOnlyThis(m *selection.Model, id tree.ID) (ok bool) {
	m.Batch(func() {
		m.SetAndUpdateSelection(m.Root(), model.None)
		ok = s.SetSelection(m, id, model.All)
	})
	return ok
}

// Single allows exactly one selected leaf. A click commits immediately.
type Single struct{ base }

// NewSingle returns the single-leaf policy.
func NewSingle() *Single { return &Single{} }

func (*Single) Name() string { return "SingleSelect" }

// SetSelection selects id as the only leaf, whatever state is asked for.
// Groups are refused.
func (*Single) SetSelection(m *selection.Model, id tree.ID, _ model.SelectionState) bool {
	if !m.IsLeaf(id) {
		return false
	}
	m.Batch(func() {
		m.SetSelection(m.Root(), model.None)
		m.SetAndUpdateSelection(id, model.All)
	})
	return true
}

func (s *Single) ChangeSelection(m *selection.Model, id tree.ID) (ok bool) {
	m.Batch(func() {
		ok = s.SetSelection(m, id, s.NewState(m.Selection(id)))
		s.ApplySelection(m)
	})
	return ok
}

func (s *Single) SelectOnlyThis(m *selection.Model, id tree.ID) bool {
	return s.SetSelection(m, id, model.All)
}

// Limited is Multi with a cap on selected leaves.
type Limited struct {
	*Multi
	limit int
	warn  func(string)
}

// LimitedOption configures a Limited strategy.
type LimitedOption func(*Limited)

// WithWarningHandler routes rejection warnings to fn instead of the log.
func WithWarningHandler(fn func(string)) LimitedOption {
	return func(l *Limited) {
		if fn != nil {
			l.warn = fn
		}
	}
}

// NewLimited returns a policy capped at limit selected leaves. A limit <= 0
// uses DefaultLimit.
func NewLimited(limit int, opts ...LimitedOption) *Limited {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limited{
		Multi: NewMulti(),
		limit: limit,
		warn:  func(msg string) { log.Printf("warning: %s", msg) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (*Limited) Name() string { return "LimitedSelect" }

// Limit returns the configured cap.
func (l *Limited) Limit() int { return l.limit }

// SetSelection refuses a selecting transition when the cap is already
// reached, or when selecting group id would bring the count to the cap.
func (l *Limited) SetSelection(m *selection.Model, id tree.ID, state model.SelectionState) bool {
	if state != model.None {
		if m.Stale() {
			m.Update()
		}
		selected := m.NumberOfSelectedItems()
		label := m.Item(id).Label
		if selected >= l.limit {
			l.warn(fmt.Sprintf("cannot select %q: selection limit of %d has been reached", label, l.limit))
			return false
		}
		if !m.IsLeaf(id) && state == model.All {
			candidates := 0
			for leaf := range m.Tree().Leafs(id) {
				if m.Selection(leaf) != model.All {
					candidates++
				}
			}
			if selected+candidates >= l.limit {
				l.warn(fmt.Sprintf("cannot select %q: selection limit of %d would be reached", label, l.limit))
				return false
			}
		}
	}
	m.Batch(func() {
		l.Multi.SetSelection(m, id, state)
		l.publish(m)
	})
	return true
}

// ChangeSelection toggles id through the limit check.
func (l *Limited) ChangeSelection(m *selection.Model, id tree.ID) bool {
	return l.SetSelection(m, id, l.NewState(m.Selection(id)))
}

func (l *Limited) SelectOnlyThis(m *selection.Model, id tree.ID) (ok bool) {
	m.Batch(func() {
		m.SetAndUpdateSelection(m.Root(), model.None)
		ok = l.SetSelection(m, id, model.All)
		if !ok {
			l.publish(m)
		}
	})
	return ok
}

func (l *Limited) ApplySelection(m *selection.Model) {
	m.Batch(func() {
		l.Multi.ApplySelection(m)
		l.publish(m)
	})
}

func (l *Limited) CancelSelection(m *selection.Model) {
	m.Batch(func() {
		l.Multi.CancelSelection(m)
		l.publish(m)
	})
}

func (l *Limited) publish(m *selection.Model) {
	if m.Stale() {
		m.Update()
	}
	m.SetReachedSelectionLimit(m.NumberOfSelectedItems() >= l.limit)
}

// New builds a strategy by configuration name (case-insensitive, with or
// without the "Select" suffix). Unknown names are an error.
func New(name string, limit int, opts ...LimitedOption) (Strategy, error) {
	switch strings.TrimSuffix(strings.ToLower(name), "select") {
	case "single":
		return NewSingle(), nil
	case "multi":
		return NewMulti(), nil
	case "limited", "":
		return NewLimited(limit, opts...), nil
	}
	return nil, fmt.Errorf("unknown selection strategy %q", name)
}
