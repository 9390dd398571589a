package tree

import (
	"slices"
)

// Compare orders two sibling payloads; negative means a sorts first.
type Compare[T any] func(a, b *T) int

// Comparator holds the sort keys applied to branch siblings (Group) and leaf
// siblings (Item). Keys are tried in order until one is non-zero.
type Comparator[T any] struct {
	Group []Compare[T]
	Item  []Compare[T]
}

// IsZero reports whether no sort keys are configured
func (c Comparator[T]) IsZero() bool {
	return len(c.Group) == 0 && len(c.Item) == 0
}

// SortOptions controls Sort.
type SortOptions struct {
	// Deep sorts every descendant list, not just the children of the node.
	Deep bool
	// Silent suppresses the sort notification.
	Silent bool
}

// SetComparator installs the sort keys used by Sort.
func (t *Tree[T]) SetComparator(c Comparator[T]) {
	t.comparator = c
}

// Comparator returns the installed sort keys.
func (t *Tree[T]) Comparator() Comparator[T] {
	return t.comparator
}

// OnSort registers fn to be called with the node whose children were sorted.
func (t *Tree[T]) OnSort(fn func(ID)) {
	t.onSort = fn
}

// Sort reorders the children of id. Siblings comparing equal keep their
// current relative order. Branches sort ahead of leaves when a sibling list
// mixes both.
func (t *Tree[T]) Sort(id ID, opts SortOptions) {
	if t.comparator.IsZero() {
		return
	}
	t.sortChildren(id, opts.Deep)
	if !opts.Silent && t.onSort != nil {
		t.onSort(id)
	}
}

func (t *Tree[T]) sortChildren(id ID, deep bool) {
	children := t.nodes[id].children
	if len(children) > 1 {
		slices.SortStableFunc(children, t.compare)
	}
	if !deep {
		return
	}
	for _, c := range children {
		if !t.IsLeaf(c) {
			t.sortChildren(c, true)
		}
	}
}

func (t *Tree[T]) compare(a, b ID) int {
	aLeaf, bLeaf := t.IsLeaf(a), t.IsLeaf(b)
	switch {
	case aLeaf && !bLeaf:
		return 1
	case !aLeaf && bLeaf:
		return -1
	}
	keys := t.comparator.Item
	if !aLeaf {
		keys = t.comparator.Group
	}
	da, db := &t.nodes[a].data, &t.nodes[b].data
	for _, key := range keys {
		if r := key(da, db); r != 0 {
			return r
		}
	}
	return 0
}
