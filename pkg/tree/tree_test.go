package tree

import (
	"slices"
	"strings"
	"testing"
)

type payload struct {
	name string
	rank int
}

// build creates:
//
//	root
//	├── a
//	│   ├── a1
//	│   └── a2
//	└── b
//	    └── b1
func build(t *testing.T) (*Tree[payload], map[string]ID) {
	t.Helper()
	tr := New(payload{name: "root"})
	ids := map[string]ID{"root": tr.Root()}
	ids["a"] = tr.Add(tr.Root(), payload{name: "a"}, true)
	ids["a1"] = tr.Add(ids["a"], payload{name: "a1"}, false)
	ids["a2"] = tr.Add(ids["a"], payload{name: "a2"}, false)
	ids["b"] = tr.Add(tr.Root(), payload{name: "b"}, true)
	ids["b1"] = tr.Add(ids["b"], payload{name: "b1"}, false)
	return tr, ids
}

func names(tr *Tree[payload], seq func(func(ID) bool)) []string {
	var out []string
	for id := range seq {
		out = append(out, tr.Data(id).name)
	}
	return out
}

func TestTreeStructure(t *testing.T) {
	tr, ids := build(t)

	if tr.Len() != 6 {
		t.Fatalf("Len = %d, want 6", tr.Len())
	}
	if !tr.IsRoot(tr.Root()) || tr.Parent(tr.Root()) != NoID {
		t.Error("root should have no parent")
	}
	if tr.Parent(ids["a1"]) != ids["a"] {
		t.Errorf("parent of a1 = %d, want %d", tr.Parent(ids["a1"]), ids["a"])
	}
	if !tr.IsLeaf(ids["a1"]) || tr.IsLeaf(ids["a"]) {
		t.Error("leaf detection wrong")
	}
	if got := tr.Depth(ids["b1"]); got != 2 {
		t.Errorf("Depth(b1) = %d, want 2", got)
	}
	if got := names(tr, slices.Values(tr.Path(ids["a2"]))); strings.Join(got, "/") != "root/a/a2" {
		t.Errorf("Path(a2) = %v", got)
	}
}

func TestAddTurnsLeafIntoBranch(t *testing.T) {
	tr, ids := build(t)
	if !tr.IsLeaf(ids["b1"]) {
		t.Fatal("b1 should start as a leaf")
	}
	tr.Add(ids["b1"], payload{name: "b1x"}, false)
	if tr.IsLeaf(ids["b1"]) {
		t.Error("b1 should be a branch after Add")
	}
}

func TestEmptyBranchIsNotLeaf(t *testing.T) {
	tr := New(payload{name: "root"})
	g := tr.Add(tr.Root(), payload{name: "g"}, true)
	if tr.IsLeaf(g) {
		t.Error("empty branch reported as leaf")
	}
	if tr.HasChildren(g) {
		t.Error("empty branch reported children")
	}
	leaf := tr.Add(tr.Root(), payload{name: "l"}, false)
	tr.MakeBranch(leaf)
	if tr.IsLeaf(leaf) {
		t.Error("MakeBranch did not convert leaf")
	}
}

func TestFlattenOrders(t *testing.T) {
	tr, ids := build(t)

	pre := names(tr, tr.Flatten(tr.Root()))
	if want := []string{"root", "a", "a1", "a2", "b", "b1"}; !slices.Equal(pre, want) {
		t.Errorf("Flatten = %v, want %v", pre, want)
	}
	post := names(tr, tr.FlattenPostOrder(tr.Root()))
	if want := []string{"a1", "a2", "a", "b1", "b", "root"}; !slices.Equal(post, want) {
		t.Errorf("FlattenPostOrder = %v, want %v", post, want)
	}
	leafs := names(tr, tr.Leafs(tr.Root()))
	if want := []string{"a1", "a2", "b1"}; !slices.Equal(leafs, want) {
		t.Errorf("Leafs = %v, want %v", leafs, want)
	}
	if got := names(tr, tr.Leafs(ids["a1"])); !slices.Equal(got, []string{"a1"}) {
		t.Errorf("Leafs(a1) = %v", got)
	}
}

func TestFlattenStopsEarly(t *testing.T) {
	tr, _ := build(t)
	var seen []string
	for id := range tr.Flatten(tr.Root()) {
		seen = append(seen, tr.Data(id).name)
		if len(seen) == 3 {
			break
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected early stop after 3, got %v", seen)
	}
}

func TestAncestors(t *testing.T) {
	tr, ids := build(t)
	got := names(tr, tr.Ancestors(ids["a2"]))
	if want := []string{"a", "root"}; !slices.Equal(got, want) {
		t.Errorf("Ancestors(a2) = %v, want %v", got, want)
	}
}

func TestWalkDownCountsLeaves(t *testing.T) {
	tr, ids := build(t)
	counts := map[ID]int{}
	total := WalkDown(tr, tr.Root(),
		func(ID) int { return 1 },
		func(_ ID, rs []int) int {
			sum := 0
			for _, r := range rs {
				sum += r
			}
			return sum
		},
		func(id ID, r int) int {
			counts[id] = r
			return r
		})
	if total != 3 {
		t.Errorf("total leaves = %d, want 3", total)
	}
	if counts[ids["a"]] != 2 || counts[ids["b"]] != 1 {
		t.Errorf("per-branch counts wrong: %v", counts)
	}
}

func TestWalkDownTreatsEmptyBranchAsItem(t *testing.T) {
	tr := New(payload{name: "root"})
	g := tr.Add(tr.Root(), payload{name: "g"}, true)
	var items []ID
	WalkDown(tr, tr.Root(),
		func(id ID) int { items = append(items, id); return 0 },
		func(ID, []int) int { return 0 },
		nil)
	if !slices.Equal(items, []ID{g}) {
		t.Errorf("item callback got %v, want [%d]", items, g)
	}
}

func TestSortGroupsAndItems(t *testing.T) {
	tr := New(payload{name: "root"})
	tr.Add(tr.Root(), payload{name: "z", rank: 1}, false)
	g2 := tr.Add(tr.Root(), payload{name: "g2"}, true)
	tr.Add(tr.Root(), payload{name: "y", rank: 1}, false)
	g1 := tr.Add(tr.Root(), payload{name: "g1"}, true)
	tr.Add(tr.Root(), payload{name: "x", rank: 0}, false)
	tr.Add(g2, payload{name: "c"}, false)
	tr.Add(g2, payload{name: "a"}, false)
	_ = g1

	byName := func(a, b *payload) int { return strings.Compare(a.name, b.name) }
	byRank := func(a, b *payload) int { return a.rank - b.rank }

	var notified []ID
	tr.OnSort(func(id ID) { notified = append(notified, id) })
	tr.SetComparator(Comparator[payload]{
		Group: []Compare[payload]{byName},
		Item:  []Compare[payload]{byRank},
	})
	tr.Sort(tr.Root(), SortOptions{Deep: true})

	got := names(tr, slices.Values(tr.Children(tr.Root())))
	// groups first by name, then items by rank; z and y tie and keep order
	if want := []string{"g1", "g2", "x", "z", "y"}; !slices.Equal(got, want) {
		t.Errorf("root children = %v, want %v", got, want)
	}
	// deep sort applies item keys inside g2: both rank 0, order kept
	if got := names(tr, slices.Values(tr.Children(g2))); !slices.Equal(got, []string{"c", "a"}) {
		t.Errorf("g2 children = %v", got)
	}
	if !slices.Equal(notified, []ID{tr.Root()}) {
		t.Errorf("sort notifications = %v", notified)
	}

	tr.Sort(tr.Root(), SortOptions{Silent: true})
	if len(notified) != 1 {
		t.Error("silent sort should not notify")
	}
}

func TestSortWithoutComparatorIsNoop(t *testing.T) {
	tr, _ := build(t)
	called := false
	tr.OnSort(func(ID) { called = true })
	tr.Sort(tr.Root(), SortOptions{})
	if called {
		t.Error("sort without comparator notified")
	}
}
