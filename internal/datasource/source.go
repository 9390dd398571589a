// Package datasource provides the paged row sources a filter fetches from:
// SQLite tables queried with LIMIT/OFFSET and LIKE search, and static row
// sets read from JSON or JSONL files.
package datasource

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database table
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a JSON document of rows (or a CDA result)
	SourceTypeJSON SourceType = "json"
	// SourceTypeJSONL is a file with one JSON row per line
	SourceTypeJSONL SourceType = "jsonl"
)

// Source fetches pages of rows.
type Source interface {
	Fetch(ctx context.Context, req model.PageRequest) (model.Page, error)
	Close() error
}

// DataSource describes where rows come from.
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type" yaml:"type"`
	// Path is the path to the source file
	Path string `json:"path" yaml:"path"`
	// Table is the SQLite table to read (SQLite only)
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Columns are the columns to select, in row order (SQLite only, default all)
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	// SearchColumns are matched against the search pattern (default: all
	// selected text columns)
	SearchColumns []string `json:"search_columns,omitempty" yaml:"search_columns,omitempty"`
	// OrderBy is the SQL ordering clause column (SQLite only, default rowid)
	OrderBy string `json:"order_by,omitempty" yaml:"order_by,omitempty"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	if s.Type == SourceTypeSQLite {
		return fmt.Sprintf("%s (%s, table=%s)", s.Path, s.Type, s.Table)
	}
	return fmt.Sprintf("%s (%s)", s.Path, s.Type)
}

// DetectType infers the source type from a file extension.
func DetectType(path string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	case ".jsonl":
		return SourceTypeJSONL, nil
	case ".json":
		return SourceTypeJSON, nil
	}
	return "", fmt.Errorf("cannot infer source type of %s", path)
}

// Open returns a Source for ds, dispatching on its type. An empty type is
// inferred from the path.
func Open(ds DataSource) (Source, error) {
	if ds.Type == "" {
		t, err := DetectType(ds.Path)
		if err != nil {
			return nil, err
		}
		ds.Type = t
	}
	switch ds.Type {
	case SourceTypeSQLite:
		src, err := NewSQLiteSource(ds)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", ds.Path, err)
		}
		return src, nil
	case SourceTypeJSON, SourceTypeJSONL:
		rows, err := ReadRows(ds.Path)
		if err != nil {
			return nil, err
		}
		return NewStaticSource(rows, searchIndexes(ds.SearchColumns)), nil
	}
	return nil, fmt.Errorf("unknown source type: %s", ds.Type)
}

// searchIndexes parses numeric column names for static sources.
func searchIndexes(cols []string) []int {
	var out []int
	for _, c := range cols {
		var idx int
		if _, err := fmt.Sscanf(c, "%d", &idx); err == nil {
			out = append(out, idx)
		}
	}
	return out
}

// matches reports whether any of the values contains pattern, ignoring case.
func matches(values []any, pattern string) bool {
	if pattern == "" {
		return true
	}
	pattern = strings.ToLower(pattern)
	for _, v := range values {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), pattern) {
			return true
		}
	}
	return false
}
