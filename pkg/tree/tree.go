// Package tree implements an arena-backed n-ary tree. Nodes are addressed by
// a stable ID (their arena index) and keep only their parent's ID, so there
// are no ownership cycles and IDs stay valid for the lifetime of the tree.
package tree

import (
	"iter"
	"slices"
)

// ID addresses a node in a Tree. IDs are never reused.
type ID int

// NoID is the parent of the root.
const NoID ID = -1

type node[T any] struct {
	data     T
	parent   ID
	children []ID // nil => leaf
	seq      int
}

// Tree is an arena of nodes rooted at ID 0.
type Tree[T any] struct {
	nodes      []*node[T]
	seq        int
	comparator Comparator[T]
	onSort     func(ID)
}

// New creates a tree containing only a root holding data.
func New[T any](data T) *Tree[T] {
	t := &Tree[T]{}
	t.nodes = append(t.nodes, &node[T]{data: data, parent: NoID})
	return t
}

// Root returns the root ID
func (t *Tree[T]) Root() ID { return 0 }

// Len returns the number of nodes, including the root.
func (t *Tree[T]) Len() int { return len(t.nodes) }

// Valid reports whether id addresses a node of this tree
func (t *Tree[T]) Valid(id ID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Add appends a new child of parent and returns its ID. A leaf parent becomes
// a branch. When branch is true the new node starts with an empty (non-nil)
// child list.
func (t *Tree[T]) Add(parent ID, data T, branch bool) ID {
	id := ID(len(t.nodes))
	n := &node[T]{data: data, parent: parent, seq: t.seq}
	t.seq++
	if branch {
		n.children = []ID{}
	}
	t.nodes = append(t.nodes, n)
	p := t.nodes[parent]
	p.children = append(p.children, id)
	return id
}

// MakeBranch turns a leaf into a branch with no children.
func (t *Tree[T]) MakeBranch(id ID) {
	if n := t.nodes[id]; n.children == nil {
		n.children = []ID{}
	}
}

// Data returns a pointer to the payload of id. The pointer stays valid as the
// tree grows.
func (t *Tree[T]) Data(id ID) *T { return &t.nodes[id].data }

// Parent returns the parent of id, or NoID for the root.
func (t *Tree[T]) Parent(id ID) ID { return t.nodes[id].parent }

// Children returns the ordered children of id. Callers must not modify the
// returned slice.
func (t *Tree[T]) Children(id ID) []ID { return t.nodes[id].children }

// IsLeaf reports whether id has no child list
func (t *Tree[T]) IsLeaf(id ID) bool { return t.nodes[id].children == nil }

// HasChildren reports whether id has at least one child.
func (t *Tree[T]) HasChildren(id ID) bool { return len(t.nodes[id].children) > 0 }

// IsRoot reports whether id has no parent
func (t *Tree[T]) IsRoot(id ID) bool { return t.nodes[id].parent == NoID }

// Seq returns the insertion sequence number of id.
func (t *Tree[T]) Seq(id ID) int { return t.nodes[id].seq }

// Depth returns the number of edges between id and the root.
func (t *Tree[T]) Depth(id ID) int {
	d := 0
	for p := t.nodes[id].parent; p != NoID; p = t.nodes[p].parent {
		d++
	}
	return d
}

// Ancestors yields the ancestors of id from its parent up to the root.
func (t *Tree[T]) Ancestors(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for p := t.nodes[id].parent; p != NoID; p = t.nodes[p].parent {
			if !yield(p) {
				return
			}
		}
	}
}

// Path returns the IDs from the root down to id, inclusive.
func (t *Tree[T]) Path(id ID) []ID {
	path := []ID{id}
	for p := range t.Ancestors(id) {
		path = append(path, p)
	}
	slices.Reverse(path)
	return path
}

// Flatten yields id and all of its descendants in pre-order.
func (t *Tree[T]) Flatten(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		t.preOrder(id, yield)
	}
}

func (t *Tree[T]) preOrder(id ID, yield func(ID) bool) bool {
	if !yield(id) {
		return false
	}
	for _, c := range t.nodes[id].children {
		if !t.preOrder(c, yield) {
			return false
		}
	}
	return true
}

// FlattenPostOrder yields the descendants of id before id itself.
func (t *Tree[T]) FlattenPostOrder(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		t.postOrder(id, yield)
	}
}

func (t *Tree[T]) postOrder(id ID, yield func(ID) bool) bool {
	for _, c := range t.nodes[id].children {
		if !t.postOrder(c, yield) {
			return false
		}
	}
	return yield(id)
}

// Leafs yields the leaves under id (id itself if it is a leaf) in pre-order.
func (t *Tree[T]) Leafs(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for n := range t.Flatten(id) {
			if t.IsLeaf(n) && !yield(n) {
				return
			}
		}
	}
}

// WalkDown folds the subtree under id. item is called on leaves and on
// branches without children. combine receives the results of a branch's
// children in order. always, when non-nil, post-processes every result.
func WalkDown[T, R any](t *Tree[T], id ID, item func(ID) R, combine func(ID, []R) R, always func(ID, R) R) R {
	var r R
	children := t.nodes[id].children
	if len(children) == 0 {
		r = item(id)
	} else {
		results := make([]R, len(children))
		for i, c := range children {
			results[i] = WalkDown(t, c, item, combine, always)
		}
		r = combine(id, results)
	}
	if always != nil {
		r = always(id, r)
	}
	return r
}
