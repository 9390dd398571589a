package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/scalefilter/pkg/loader"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/testutil"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

var twoLevels = []model.LevelIndexes{
	{model.FieldID: 0, model.FieldLabel: 1},
	{model.FieldID: 2, model.FieldLabel: 3},
}

var parentLevel = []model.LevelIndexes{{
	model.FieldID:          0,
	model.FieldLabel:       1,
	model.FieldParentID:    2,
	model.FieldParentLabel: 3,
}}

func newLoader(opts loader.Options) (*selection.Model, *loader.Loader, *[]string) {
	var warnings []string
	if opts.WarningHandler == nil {
		opts.WarningHandler = func(msg string) { warnings = append(warnings, msg) }
	}
	m := selection.New()
	return m, loader.New(m, opts), &warnings
}

// children returns the ids of the children of the node with the given id,
// or of the root when id is empty.
func children(t *testing.T, m *selection.Model, id string) []string {
	t.Helper()
	n := m.Root()
	if id != "" {
		var ok bool
		if n, ok = m.Find(id); !ok {
			t.Fatalf("node %q not found", id)
		}
	}
	out := []string{}
	for _, c := range m.Tree().Children(n) {
		out = append(out, m.Item(c).ID)
	}
	return out
}

func find(t *testing.T, m *selection.Model, id string) tree.ID {
	t.Helper()
	n, ok := m.Find(id)
	if !ok {
		t.Fatalf("node %q not found", id)
	}
	return n
}

func TestAddRowsGroupsByLevel(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: twoLevels})
	err := l.AddRows([]model.Row{
		{"GA", "Group A", "I1", "Item 1"},
		{"GB", "Group B", "I3", "Item 3"},
		{"GA", "Group A", "I2", "Item 2"},
	})
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"GA", "GB"})
	testutil.AssertIDs(t, children(t, m, "GA"), []string{"I1", "I2"})
	testutil.AssertIDs(t, children(t, m, "GB"), []string{"I3"})
	if got := m.Item(find(t, m, "GA")).Label; got != "Group A" {
		t.Errorf("GA label = %q", got)
	}
	if !m.IsLeaf(find(t, m, "I2")) {
		t.Error("last level should be leaves")
	}
}

func TestDefaultIndexesMakeLeaves(t *testing.T) {
	m, l, _ := newLoader(loader.Options{})
	if err := l.AddRows([]model.Row{{"a", "A"}, {"b", "B"}}); err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"a", "b"})
	if m.NumberOfItems() != 2 {
		t.Errorf("NumberOfItems = %d, want 2", m.NumberOfItems())
	}
}

func TestNumericIDs(t *testing.T) {
	m, l, _ := newLoader(loader.Options{})
	if err := l.AddRows([]model.Row{{float64(7), "Seven"}, {1.5, "One and a half"}}); err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"7", "1.5"})
}

func TestUnflattenParentID(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: parentLevel})
	err := l.AddRows([]model.Row{
		{"I1", "Item 1", "GA", "Group A"},
		{"I2", "Item 2", "GA", "Group A"},
		{"GA", "Group A row", "R", "Root group"},
		{"I3", "Item 3", "GB", "Group B"},
	})
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"R", "GB"})
	testutil.AssertIDs(t, children(t, m, "R"), []string{"GA"})
	testutil.AssertIDs(t, children(t, m, "GA"), []string{"I1", "I2"})
	testutil.AssertIDs(t, children(t, m, "GB"), []string{"I3"})

	if got := m.Item(find(t, m, "GA")).Label; got != "Group A row" {
		t.Errorf("moved group should keep its row label, got %q", got)
	}
	if got := m.Item(find(t, m, "R")).Label; got != "Root group" {
		t.Errorf("R label = %q", got)
	}
}

func TestUnflattenParentlessRows(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: parentLevel})
	err := l.AddRows([]model.Row{
		{"A", "A", nil, nil},
		{"a1", "a1", "A", "ignored"},
		{"B", "B", "", nil},
	})
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"A", "B"})
	testutil.AssertIDs(t, children(t, m, "A"), []string{"a1"})
	if got := m.Item(find(t, m, "A")).Label; got != "A" {
		t.Errorf("A label = %q", got)
	}
}

func TestUnflattenSelfParentIsSkipped(t *testing.T) {
	m, l, warnings := newLoader(loader.Options{Indexes: parentLevel})
	err := l.AddRows([]model.Row{
		{"G", "G", "G", "G"},
		{"x", "x", "G", "G"},
	})
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, "G"), []string{"x"})
	if len(*warnings) != 1 || !strings.Contains((*warnings)[0], "names itself as parent") {
		t.Errorf("warnings = %v", *warnings)
	}
}

func TestUnflattenCycle(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: parentLevel})
	err := l.AddRows([]model.Row{
		{"A", "A", "B", "B"},
		{"B", "B", "C", "C"},
		{"C", "C", "A", "A"},
		{"x", "x", "A", "A"},
	})
	if !errors.Is(err, loader.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "A, B, C") {
		t.Errorf("error should name the loop: %v", err)
	}
	if m.Tree().Len() != 1 {
		t.Errorf("nothing should be inserted on error, tree has %d nodes", m.Tree().Len())
	}
}

func TestParentIDOutsideRowFallsBackToGrouping(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: []model.LevelIndexes{{
		model.FieldID: 0, model.FieldLabel: 1, model.FieldParentID: 5,
	}}})
	if err := l.AddRows([]model.Row{{"a", "A"}, {"b", "B"}}); err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"a", "b"})
}

func TestValueAsID(t *testing.T) {
	m, l, _ := newLoader(loader.Options{ValueAsID: true})
	if err := l.AddRows([]model.Row{{"1", "Alpha"}, {"2", "Beta"}}); err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"Alpha", "Beta"})
}

func TestNormalizers(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: []model.LevelIndexes{{
		model.FieldID: 0, model.FieldLabel: 1, model.FieldIsSelected: 2, model.FieldValue: 3,
	}}})
	err := l.AddRows([]model.Row{
		{"a", "<b>A</b>", true, "x&y"},
		{"b", "B", "false", 2.0},
		{"c", "C", "TRUE", nil},
		{"d", "D", nil, nil},
	})
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	a := m.Item(find(t, m, "a"))
	if a.Label != "&lt;b&gt;A&lt;/b&gt;" {
		t.Errorf("label not escaped: %q", a.Label)
	}
	if a.Value != "x&amp;y" {
		t.Errorf("value not escaped: %v", a.Value)
	}
	if v := m.Item(find(t, m, "b")).Value; v != 2.0 {
		t.Errorf("numeric value changed: %v", v)
	}
	for id, want := range map[string]model.SelectionState{
		"a": model.All, "b": model.None, "c": model.All, "d": model.None,
	} {
		testutil.AssertState(t, id, m.Selection(find(t, m, id)), want)
	}
	testutil.AssertState(t, "root", m.Selection(m.Root()), model.Include)
}

func TestCustomNormalizer(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Normalizers: map[model.Field]loader.Normalizer{
		model.FieldLabel: func(v any) any { return strings.ToUpper(v.(string)) },
	}})
	if err := l.AddRows([]model.Row{{"a", "<alpha>"}}); err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	if got := m.Item(find(t, m, "a")).Label; got != "<ALPHA>" {
		t.Errorf("label = %q", got)
	}
}

func TestParseSelected(t *testing.T) {
	tests := []struct {
		in   any
		want model.SelectionState
	}{
		{true, model.All},
		{false, model.None},
		{"true", model.All},
		{"True", model.All},
		{"yes", model.None},
		{"null", ""},
		{nil, ""},
		{1.0, model.All},
		{0.0, model.None},
	}
	for _, tt := range tests {
		if got := loader.ParseSelected(tt.in); got != tt.want {
			t.Errorf("ParseSelected(%v) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddNothingIsNoop(t *testing.T) {
	m, l, _ := newLoader(loader.Options{})
	events := 0
	m.Subscribe(func(selection.Event) { events++ })
	if err := l.AddRows(nil); err != nil {
		t.Fatalf("AddRows(nil): %v", err)
	}
	if err := l.AddSpecs(); err != nil {
		t.Fatalf("AddSpecs(): %v", err)
	}
	if m.Tree().Len() != 1 || events != 0 {
		t.Errorf("empty input changed the model: %d nodes, %d events", m.Tree().Len(), events)
	}
	if !m.Disabled() {
		t.Error("empty model should be disabled")
	}
}

func TestPagesMergeIntoExistingGroups(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: twoLevels})
	err := l.AddRows([]model.Row{
		{"GA", "Group A", "I1", "Item 1"},
		{"GB", "Group B", "I3", "Item 3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m.SetAndUpdateSelection(find(t, m, "GA"), model.All)
	err = l.AddRows([]model.Row{
		{"GA", "Group A", "I2", "Item 2"},
		{"GB", "Group B", "I4", "Item 4"},
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"GA", "GB"})
	testutil.AssertIDs(t, children(t, m, "GA"), []string{"I1", "I2"})
	testutil.AssertIDs(t, children(t, m, "GB"), []string{"I3", "I4"})
	testutil.AssertState(t, "I2", m.Selection(find(t, m, "I2")), model.All)
	testutil.AssertState(t, "I4", m.Selection(find(t, m, "I4")), model.None)
}

func TestPostUpdateHooks(t *testing.T) {
	var seen []int
	hook := func(m *selection.Model, opts loader.Options) {
		seen = append(seen, m.Tree().Len())
	}
	_, l, _ := newLoader(loader.Options{PostUpdate: []loader.Hook{hook}})
	l.AddRows([]model.Row{{"a", "A"}})
	l.AddSpecs(testutil.Leaf("b"))
	if len(seen) != 2 || seen[0] != 2 || seen[1] != 3 {
		t.Errorf("hooks saw %v, want [2 3]", seen)
	}
}

func TestAddPageServerTotal(t *testing.T) {
	m, l, _ := newLoader(loader.Options{})
	page := model.Page{Rows: []model.Row{{"a", "A"}}, Total: 40, HasTotal: true}

	if err := l.AddPage(page, "x"); err != nil {
		t.Fatal(err)
	}
	if m.Item(m.Root()).Server.Known {
		t.Error("searched page must not set the server total")
	}
	if err := l.AddPage(model.Page{Rows: []model.Row{{"b", "B"}}, Total: 40, HasTotal: true}, ""); err != nil {
		t.Fatal(err)
	}
	if srv := m.Item(m.Root()).Server; srv != selection.KnownTotal(40) {
		t.Errorf("root server count = %+v", srv)
	}
	if m.NumberOfItems() != 40 {
		t.Errorf("NumberOfItems = %d, want 40", m.NumberOfItems())
	}
}

func TestSetValue(t *testing.T) {
	m, l, _ := newLoader(loader.Options{Indexes: twoLevels})
	l.AddRows([]model.Row{
		{"GA", "Group A", "I1", "Item 1"},
		{"GA", "Group A", "I2", "Item 2"},
		{"GB", "Group B", "I3", "Item 3"},
	})
	commits := 0
	m.Subscribe(func(e selection.Event) {
		if e.Kind == selection.EventCommit {
			commits++
		}
	})

	l.SetValue([]string{"I1", "GB"})
	testutil.AssertIDs(t, m.SelectedIDs(m.Root()), []string{"I1", "GB"})
	if m.Snapshot() == nil || commits != 0 {
		t.Errorf("SetValue should commit silently (snapshot=%v, commits=%d)", m.Snapshot() != nil, commits)
	}

	m.SetAndUpdateSelection(find(t, m, "I2"), model.All)
	l.SetValue(nil)
	if commits != 1 || m.HasChanged() {
		t.Errorf("SetValue(nil) should commit the current state, commits=%d", commits)
	}
}

func TestRoundTripGeneratedRows(t *testing.T) {
	forest := testutil.New(testutil.GeneratorConfig{Seed: 7, Depth: 1, MaxWidth: 5}).Forest()
	m, l, _ := newLoader(loader.Options{Indexes: twoLevels})
	if err := l.AddRows(testutil.Rows(forest)); err != nil {
		t.Fatal(err)
	}
	var got []string
	for id := range m.Tree().Flatten(m.Root()) {
		if id != m.Root() {
			got = append(got, m.Item(id).ID)
		}
	}
	testutil.AssertIDs(t, got, testutil.IDs(forest))
}

func TestLoadMissingFile(t *testing.T) {
	_, l, _ := newLoader(loader.Options{})
	err := l.ReadFile(filepath.Join(t.TempDir(), "nope.json"), "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
