package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// Read decodes one JSON document and inserts it. Accepted shapes are a CDA
// result ({"resultset": [...], "queryInfo": {...}}), an array of rows, a
// nested node object, or an array of nested nodes. pattern is the search
// pattern the document was fetched with, if any.
func (l *Loader) Read(r io.Reader, pattern string) error {
	defer debug.LogEnterExit("loader.Read")()
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '{':
		var shape struct {
			Resultset json.RawMessage `json:"resultset"`
		}
		if err := json.Unmarshal(data, &shape); err != nil {
			return fmt.Errorf("decoding input: %w", err)
		}
		if shape.Resultset != nil {
			page, err := DecodePage(data)
			if err != nil {
				return err
			}
			return l.AddPage(page, pattern)
		}
		var spec model.NodeSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("decoding node: %w", err)
		}
		return l.AddSpecs(&spec)

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding input: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		if first := bytes.TrimSpace(items[0]); len(first) > 0 && first[0] == '{' {
			var specs []*model.NodeSpec
			if err := json.Unmarshal(data, &specs); err != nil {
				return fmt.Errorf("decoding nodes: %w", err)
			}
			return l.AddSpecs(specs...)
		}
		var rows []model.Row
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("decoding rows: %w", err)
		}
		return l.AddRows(rows)
	}
	return fmt.Errorf("decoding input: expected a JSON object or array, got %q", data[0])
}

// ReadFile reads path with Read, or with ReadJSONL for .jsonl files.
func (l *Loader) ReadFile(path, pattern string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	if filepath.Ext(path) == ".jsonl" {
		return l.ReadJSONL(file)
	}
	return l.Read(file, pattern)
}

// ReadJSONL reads one row (a JSON array) or one nested node (a JSON object)
// per line. Malformed lines are skipped with a warning.
func (l *Loader) ReadJSONL(r io.Reader) error {
	maxCapacity := l.opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	var rows []model.Row
	var specs []*model.NodeSpec
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("error reading input stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			// Line too long. Discard the rest of the line.
			l.warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if line[0] == '{' {
			var spec model.NodeSpec
			if err := json.Unmarshal(line, &spec); err != nil {
				l.warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
				continue
			}
			if err := spec.Validate(); err != nil {
				l.warn(fmt.Sprintf("skipping invalid node on line %d: %v", lineNum, err))
				continue
			}
			specs = append(specs, &spec)
			continue
		}
		var row model.Row
		if err := json.Unmarshal(line, &row); err != nil {
			l.warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		rows = append(rows, row)
	}

	if err := l.AddRows(rows); err != nil {
		return err
	}
	return l.AddSpecs(specs...)
}

// DecodePage decodes a CDA result. The total row count is only reported when
// the query info carries paging fields; both numbers and numeric strings are
// accepted.
func DecodePage(data []byte) (model.Page, error) {
	var doc struct {
		Resultset []model.Row    `json:"resultset"`
		QueryInfo map[string]any `json:"queryInfo"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Page{}, fmt.Errorf("decoding CDA result: %w", err)
	}
	page := model.Page{Rows: doc.Resultset}
	start, hasStart := toInt(doc.QueryInfo["pageStart"])
	total, hasTotal := toInt(doc.QueryInfo["totalRows"])
	page.Start = start
	if hasStart && hasTotal {
		page.Total = total
		page.HasTotal = true
	}
	return page, nil
}

// EncodePage writes a page in CDA form.
func EncodePage(w io.Writer, page model.Page) error {
	rows := page.Rows
	if rows == nil {
		rows = []model.Row{}
	}
	doc := map[string]any{"resultset": rows}
	if page.HasTotal {
		doc["queryInfo"] = map[string]any{
			"pageStart": page.Start,
			"totalRows": page.Total,
		}
	}
	return json.NewEncoder(w).Encode(doc)
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case int:
		return x, true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	}
	return 0, false
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
