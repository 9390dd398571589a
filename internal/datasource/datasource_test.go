package datasource

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/testutil"
)

var fixtureRows = []model.Row{
	{"GA", "Group A", "I1", "Item 1"},
	{"GA", "Group A", "I2", "Item 2"},
	{"GB", "Group B", "I3", "Item 3"},
	{"GB", "Group B", "I4", "50% off_item"},
	{"GC", "Group C", "I5", "Item 5"},
}

func newSQLite(t *testing.T) Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.db")
	cols := []string{"group_id", "group_label", "id", "label"}
	if err := Import(context.Background(), path, "items", cols, fixtureRows); err != nil {
		t.Fatalf("Import: %v", err)
	}
	src, err := Open(DataSource{Path: path, Table: "items", SearchColumns: []string{"label"}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func newStatic(t *testing.T) Source {
	t.Helper()
	return NewStaticSource(fixtureRows, []int{3})
}

func pageIDs(p model.Page) []string {
	out := []string{}
	for _, r := range p.Rows {
		out = append(out, r[2].(string))
	}
	return out
}

func TestSourcesPaging(t *testing.T) {
	sources := map[string]func(*testing.T) Source{"sqlite": newSQLite, "static": newStatic}
	tests := []struct {
		name  string
		req   model.PageRequest
		ids   []string
		total int
	}{
		{"first page", model.PageRequest{Page: 0, PageSize: 2}, []string{"I1", "I2"}, 5},
		{"second page", model.PageRequest{Page: 1, PageSize: 2}, []string{"I3", "I4"}, 5},
		{"last page", model.PageRequest{Page: 2, PageSize: 2}, []string{"I5"}, 5},
		{"past the end", model.PageRequest{Page: 9, PageSize: 2}, []string{}, 5},
		{"unpaged", model.PageRequest{}, []string{"I1", "I2", "I3", "I4", "I5"}, 5},
		{"search", model.PageRequest{PageSize: 10, Pattern: "item 3"}, []string{"I3"}, 1},
		{"search ignores case", model.PageRequest{PageSize: 10, Pattern: "ITEM "}, []string{"I1", "I2", "I3", "I5"}, 4},
		{"percent is literal", model.PageRequest{PageSize: 10, Pattern: "50%"}, []string{"I4"}, 1},
		{"underscore is literal", model.PageRequest{PageSize: 10, Pattern: "f_i"}, []string{"I4"}, 1},
		{"no match", model.PageRequest{PageSize: 10, Pattern: "zzz"}, []string{}, 0},
	}
	for name, open := range sources {
		src := open(t)
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				page, err := src.Fetch(context.Background(), tt.req)
				if err != nil {
					t.Fatalf("Fetch: %v", err)
				}
				testutil.AssertIDs(t, pageIDs(page), tt.ids)
				if !page.HasTotal || page.Total != tt.total {
					t.Errorf("total = %d (%v), want %d", page.Total, page.HasTotal, tt.total)
				}
				if page.Start != tt.req.Offset() {
					t.Errorf("start = %d, want %d", page.Start, tt.req.Offset())
				}
			})
		}
	}
}

func TestSQLiteDefaultColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.sqlite")
	if err := Import(context.Background(), path, "t", []string{"id", "label", "n"}, []model.Row{{"a", "A", 1}, {"b", "B", 2}}); err != nil {
		t.Fatal(err)
	}
	src, err := NewSQLiteSource(DataSource{Path: path, Table: "t"})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	page, err := src.Fetch(context.Background(), model.PageRequest{Pattern: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 1 || len(page.Rows[0]) != 3 || page.Rows[0][0] != "b" {
		t.Fatalf("rows = %v", page.Rows)
	}
	if n, ok := page.Rows[0][2].(int64); !ok || n != 2 {
		t.Errorf("integer column = %#v", page.Rows[0][2])
	}
}

func TestSQLiteErrors(t *testing.T) {
	if _, err := NewSQLiteSource(DataSource{Path: "x.db"}); !errors.Is(err, ErrNoTable) {
		t.Errorf("expected ErrNoTable, got %v", err)
	}
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := Import(context.Background(), path, "t", []string{"id"}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSQLiteSource(DataSource{Path: path, Table: "missing"}); err == nil {
		t.Error("expected error for missing table")
	}
	if _, err := NewSQLiteSource(DataSource{Type: SourceTypeJSON, Path: path, Table: "t"}); err == nil {
		t.Error("expected error for non-SQLite source")
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newStatic(t).Fetch(ctx, model.PageRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDetectType(t *testing.T) {
	tests := map[string]SourceType{
		"a.db":       SourceTypeSQLite,
		"a.SQLite3":  SourceTypeSQLite,
		"rows.json":  SourceTypeJSON,
		"rows.jsonl": SourceTypeJSONL,
	}
	for path, want := range tests {
		got, err := DetectType(path)
		if err != nil || got != want {
			t.Errorf("DetectType(%s) = %s, %v; want %s", path, got, err, want)
		}
	}
	if _, err := DetectType("rows.csv"); err == nil {
		t.Error("expected error for unknown extension")
	}
	if _, err := Open(DataSource{Path: "rows.csv"}); err == nil {
		t.Error("Open should fail for unknown type")
	}
}

func TestReadRows(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"rows.json", `[["a","A"],["b","B"]]`, 2},
		{"cda.json", `{"resultset":[["a","A"]],"queryInfo":{"totalRows":1}}`, 1},
		{"rows.jsonl", "[\"a\",\"A\"]\n\n[\"b\",\"B\"]\n[\"c\",\"C\"]\n", 3},
		{"empty.json", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.name, tt.content)
			rows, err := ReadRows(path)
			if err != nil {
				t.Fatalf("ReadRows: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("rows = %d, want %d", len(rows), tt.want)
			}
		})
	}

	bad := testutil.WriteFile(t, dir, "bad.jsonl", "[\"a\"]\n{oops\n")
	if _, err := ReadRows(bad); err == nil {
		t.Error("expected error for malformed JSONL")
	}
	if _, err := ReadRows(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenStaticFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "rows.json", `[["a","Alpha"],["b","Beta"]]`)
	src, err := Open(DataSource{Path: path, SearchColumns: []string{"1"}})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	page, err := src.Fetch(context.Background(), model.PageRequest{Pattern: "bet"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 1 || page.Rows[0][0] != "b" {
		t.Errorf("rows = %v", page.Rows)
	}
}
