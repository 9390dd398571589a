package loader_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vanderheijden86/scalefilter/pkg/loader"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/testutil"
)

func TestReadShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		root  []string
	}{
		{"rows", `[["a","A"],["b","B"]]`, []string{"a", "b"}},
		{"nested object", `{"id":"g","label":"G","nodes":[{"id":"x","label":"X"}]}`, []string{"g"}},
		{"nested array", `[{"id":"g","label":"G","nodes":[]},{"id":"h","label":"H"}]`, []string{"g", "h"}},
		{"cda", `{"resultset":[["a","A"]],"queryInfo":{"pageStart":"0","totalRows":"10"}}`, []string{"a"}},
		{"empty array", `[]`, []string{}},
		{"blank", "  \n", []string{}},
		{"bom", "\xEF\xBB\xBF[[\"a\",\"A\"]]", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, l, _ := newLoader(loader.Options{})
			if err := l.Read(strings.NewReader(tt.input), ""); err != nil {
				t.Fatalf("Read: %v", err)
			}
			testutil.AssertIDs(t, children(t, m, ""), tt.root)
		})
	}
}

func TestReadNestedSelection(t *testing.T) {
	m, l, _ := newLoader(loader.Options{})
	input := `{"id":"g","label":"G","nodes":[{"id":"x","label":"X","isSelected":true},{"id":"y","label":"Y","isSelected":"none"}]}`
	if err := l.Read(strings.NewReader(input), ""); err != nil {
		t.Fatalf("Read: %v", err)
	}
	testutil.AssertState(t, "x", m.Selection(find(t, m, "x")), model.All)
	testutil.AssertState(t, "g", m.Selection(find(t, m, "g")), model.Include)
	if !m.Tree().HasChildren(find(t, m, "g")) {
		t.Error("g should be a branch")
	}
}

func TestReadCDATotal(t *testing.T) {
	m, l, _ := newLoader(loader.Options{})
	input := `{"resultset":[["a","A"],["b","B"]],"queryInfo":{"pageStart":0,"totalRows":"25"}}`
	if err := l.Read(strings.NewReader(input), ""); err != nil {
		t.Fatal(err)
	}
	if m.NumberOfItems() != 25 {
		t.Errorf("NumberOfItems = %d, want 25", m.NumberOfItems())
	}
}

func TestReadErrors(t *testing.T) {
	for _, input := range []string{`x`, `{"id":`, `[[1,2]`, `{"id":"a","isSelected":"maybe"}`, `{"id":"a","isSelected":"include"}`} {
		_, l, _ := newLoader(loader.Options{})
		if err := l.Read(strings.NewReader(input), ""); err == nil {
			t.Errorf("Read(%q) should fail", input)
		}
	}
}

func TestDecodePage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		rows     int
		total    int
		hasTotal bool
	}{
		{"numbers", `{"resultset":[["a"]],"queryInfo":{"pageStart":10,"totalRows":99}}`, 1, 99, true},
		{"strings", `{"resultset":[],"queryInfo":{"pageStart":"0","totalRows":"7"}}`, 0, 7, true},
		{"no paging", `{"resultset":[["a"],["b"]],"queryInfo":{"totalRows":5}}`, 2, 0, false},
		{"no query info", `{"resultset":[["a"]]}`, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := loader.DecodePage([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodePage: %v", err)
			}
			if len(page.Rows) != tt.rows || page.Total != tt.total || page.HasTotal != tt.hasTotal {
				t.Errorf("page = %d rows, total %d (%v)", len(page.Rows), page.Total, page.HasTotal)
			}
		})
	}
}

func TestEncodePage(t *testing.T) {
	var buf bytes.Buffer
	page := model.Page{Rows: []model.Row{{"a", "A"}}, Start: 0, Total: 3, HasTotal: true}
	if err := loader.EncodePage(&buf, page); err != nil {
		t.Fatal(err)
	}
	back, err := loader.DecodePage(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Rows) != 1 || !back.HasTotal || back.Total != 3 {
		t.Errorf("decoded %+v", back)
	}

	buf.Reset()
	loader.EncodePage(&buf, model.Page{})
	if !strings.Contains(buf.String(), `"resultset":[]`) {
		t.Errorf("empty page = %s", buf.String())
	}
}

func TestReadJSONL(t *testing.T) {
	m, l, warnings := newLoader(loader.Options{Indexes: twoLevels})
	content := `["GA","Group A","I1","Item 1"]
{not valid json}

["GA","Group A","I2","Item 2"]
{"id":"extra","label":"Extra"}
{"id":"bad","isSelected":"include"}
`
	if err := l.ReadJSONL(strings.NewReader(content)); err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"GA", "extra"})
	testutil.AssertIDs(t, children(t, m, "GA"), []string{"I1", "I2"})
	if len(*warnings) != 2 {
		t.Errorf("warnings = %v, want malformed and invalid", *warnings)
	}
}

func TestReadJSONLLineTooLong(t *testing.T) {
	const bufferSize = 1024
	longLine := `["long","` + strings.Repeat("a", bufferSize) + `"]`
	m, l, warnings := newLoader(loader.Options{BufferSize: bufferSize})
	if err := l.ReadJSONL(strings.NewReader(longLine + "\n" + `["ok","OK"]` + "\n")); err != nil {
		t.Fatalf("Expected success (skipping long line), got error: %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"ok"})

	found := false
	for _, w := range *warnings {
		if strings.Contains(w, "skipping line 1: line too long") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected line-too-long warning, got: %v", *warnings)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	forest := testutil.Scenario()
	jsonl := testutil.WriteFile(t, dir, "rows.jsonl", testutil.ToJSONL(testutil.Rows(forest)))
	doc := testutil.WriteFile(t, dir, "rows.json", `[["GA","Group A","I9","Item 9"]]`)

	m, l, _ := newLoader(loader.Options{Indexes: twoLevels})
	if err := l.ReadFile(jsonl, ""); err != nil {
		t.Fatalf("ReadFile(jsonl): %v", err)
	}
	if err := l.ReadFile(doc, ""); err != nil {
		t.Fatalf("ReadFile(json): %v", err)
	}
	testutil.AssertIDs(t, children(t, m, ""), []string{"GroupA", "GroupB", "GA"})
	testutil.AssertIDs(t, children(t, m, "GroupA"), []string{"Item1", "Item2"})
}

func BenchmarkAddRows(b *testing.B) {
	forest := testutil.New(testutil.GeneratorConfig{Depth: 1, MaxWidth: 200}).Forest()
	rows := testutil.Rows(forest)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := selection.New()
		l := loader.New(m, loader.Options{Indexes: twoLevels, WarningHandler: func(string) {}})
		if err := l.AddRows(rows); err != nil {
			b.Fatal(err)
		}
	}
}
