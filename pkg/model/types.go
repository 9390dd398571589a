package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectionState describes how much of a subtree is selected.
type SelectionState string

const (
	// None: no descendant selected.
	None SelectionState = "none"
	// All: every descendant selected (for a leaf, the leaf itself).
	All SelectionState = "all"
	// Include: unselected by default, specific loaded descendants selected.
	Include SelectionState = "include"
	// Exclude: selected by default, specific loaded descendants excluded.
	Exclude SelectionState = "exclude"
)

// IsValid returns true if the state is one of the four recognized values
func (s SelectionState) IsValid() bool {
	switch s {
	case None, All, Include, Exclude:
		return true
	}
	return false
}

// IsPartial returns true for the two branch-only states (Include, Exclude)
func (s SelectionState) IsPartial() bool {
	return s == Include || s == Exclude
}

// ParseSelectionState accepts the canonical names plus the boolean spellings
// produced by tabular sources ("true"/"false", "null" for partial).
func ParseSelectionState(v string) (SelectionState, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "all", "true", "1":
		return All, true
	case "none", "false", "0":
		return None, true
	case "include", "null":
		return Include, true
	case "exclude":
		return Exclude, true
	}
	return "", false
}

// UnmarshalJSON accepts a state name, a boolean, or null (no explicit state).
func (s *SelectionState) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*s = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	if raw == "" || raw == "null" {
		*s = ""
		return nil
	}
	state, ok := ParseSelectionState(raw)
	if !ok {
		return fmt.Errorf("unknown selection state %q", raw)
	}
	*s = state
	return nil
}

// NodeSpec is the insertion spec for a subtree: what InputLoader produces and
// selection.Model.Load consumes.
//
// A nil Nodes slice marks a leaf; an empty non-nil slice marks a branch whose
// children have not been fetched yet.
type NodeSpec struct {
	ID                    string         `json:"id,omitempty" yaml:"id,omitempty"`
	Label                 string         `json:"label" yaml:"label"`
	Value                 any            `json:"value,omitempty" yaml:"value,omitempty"`
	Selection             SelectionState `json:"isSelected,omitempty" yaml:"is_selected,omitempty"`
	NumberOfItemsAtServer *int           `json:"numberOfItemsAtServer,omitempty" yaml:"number_of_items_at_server,omitempty"`
	Nodes                 []*NodeSpec    `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// IsLeaf reports whether the spec describes a leaf
func (n *NodeSpec) IsLeaf() bool {
	return n.Nodes == nil
}

// Count returns the number of specs in this subtree, including n.
func (n *NodeSpec) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Nodes {
		total += child.Count()
	}
	return total
}

// Validate checks the spec for values the tree cannot hold
func (n *NodeSpec) Validate() error {
	if n.Selection != "" && !n.Selection.IsValid() {
		return fmt.Errorf("node %q: invalid selection state %q", n.ID, n.Selection)
	}
	if n.IsLeaf() && n.Selection.IsPartial() {
		return fmt.Errorf("node %q: leaf cannot be %s", n.ID, n.Selection)
	}
	if n.NumberOfItemsAtServer != nil && *n.NumberOfItemsAtServer < 0 {
		return fmt.Errorf("node %q: negative server item count %d", n.ID, *n.NumberOfItemsAtServer)
	}
	for _, child := range n.Nodes {
		if child == nil {
			return fmt.Errorf("node %q: nil child", n.ID)
		}
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Row is one record of tabular input.
type Row []any

// Field names a column role in a LevelIndexes mapping.
type Field string

const (
	FieldID          Field = "id"
	FieldLabel       Field = "label"
	FieldParentID    Field = "parentId"
	FieldParentLabel Field = "parentLabel"
	FieldValue       Field = "value"
	FieldIsSelected  Field = "isSelected"
)

// LevelIndexes maps column roles to row positions for one hierarchy level,
// e.g. {"id": 0, "label": 1}.
type LevelIndexes map[Field]int

// Index returns the column for field, if the mapping is present and valid for
// a row of width n.
func (l LevelIndexes) Index(field Field, n int) (int, bool) {
	idx, ok := l[field]
	if !ok || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// HasParent reports whether the level describes a parent/child relation
func (l LevelIndexes) HasParent() bool {
	_, ok := l[FieldParentID]
	return ok
}

// Without returns a copy of l with the given fields removed.
func (l LevelIndexes) Without(fields ...Field) LevelIndexes {
	out := make(LevelIndexes, len(l))
	for k, v := range l {
		out[k] = v
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}
