package datasource

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/scalefilter/pkg/loader"
	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// StaticSource pages through an in-memory row set.
type StaticSource struct {
	rows   []model.Row
	search []int
}

// NewStaticSource serves rows. Search matches the given columns, or every
// string column when none are given.
func NewStaticSource(rows []model.Row, searchColumns []int) *StaticSource {
	return &StaticSource{rows: rows, search: searchColumns}
}

// Fetch returns the requested page of rows matching req.Pattern. A page size
// of zero returns every match.
func (s *StaticSource) Fetch(ctx context.Context, req model.PageRequest) (model.Page, error) {
	if err := ctx.Err(); err != nil {
		return model.Page{}, err
	}
	var matched []model.Row
	for _, row := range s.rows {
		if matches(s.searchValues(row), req.Pattern) {
			matched = append(matched, row)
		}
	}
	page := model.Page{Start: req.Offset(), Total: len(matched), HasTotal: true}
	if page.Start >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if req.PageSize > 0 && page.Start+req.PageSize < end {
		end = page.Start + req.PageSize
	}
	page.Rows = matched[page.Start:end]
	return page, nil
}

func (s *StaticSource) searchValues(row model.Row) []any {
	if len(s.search) == 0 {
		return row
	}
	out := make([]any, 0, len(s.search))
	for _, idx := range s.search {
		if idx >= 0 && idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// Close is a no-op.
func (s *StaticSource) Close() error { return nil }

// ReadRows reads the rows of a JSON row array, a CDA result, or a JSONL file.
func ReadRows(path string) ([]model.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows file: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '{' {
		page, err := loader.DecodePage(data)
		if err != nil {
			return nil, err
		}
		return page.Rows, nil
	}

	var rows []model.Row
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows, nil
	}
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var row model.Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
