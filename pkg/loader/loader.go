// Package loader turns tabular or nested input into selection tree nodes.
//
// Rows are mapped to nodes through one LevelIndexes per hierarchy level.
// Several levels group rows by id level after level; a single level with a
// parentId column is unflattened into a tree of arbitrary depth.
package loader

import (
	"fmt"
	"log"

	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
)

// DefaultMaxBufferSize is the default buffer size for line-oriented input (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// Hook runs after every batch of input has been inserted into the model.
type Hook func(m *selection.Model, opts Options)

// Options configures how input is mapped onto the tree.
type Options struct {
	// Indexes maps columns to node fields, one entry per hierarchy level.
	// When empty, rows are read as (id, label).
	Indexes []model.LevelIndexes

	// ValueAsID uses the label column as the node id.
	ValueAsID bool

	// Normalizers override the default per-field normalizers.
	Normalizers map[model.Field]Normalizer

	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings go to the standard logger.
	WarningHandler func(string)

	// PostUpdate hooks run after each inserted batch.
	PostUpdate []Hook

	// BufferSize sets the maximum line size (in bytes) for JSONL input.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int
}

// DefaultIndexes is the mapping used when Options.Indexes is empty.
var DefaultIndexes = []model.LevelIndexes{{model.FieldID: 0, model.FieldLabel: 1}}

// Loader inserts input into one selection model.
type Loader struct {
	model       *selection.Model
	opts        Options
	normalizers map[model.Field]Normalizer
	warn        func(string)
}

// New creates a loader feeding m.
func New(m *selection.Model, opts Options) *Loader {
	if len(opts.Indexes) == 0 {
		opts.Indexes = DefaultIndexes
	}
	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) { log.Printf("warning: %s", msg) }
	}
	norms := DefaultNormalizers()
	for field, fn := range opts.Normalizers {
		if fn != nil {
			norms[field] = fn
		}
	}
	return &Loader{model: m, opts: opts, normalizers: norms, warn: warn}
}

// Model returns the model the loader feeds.
func (l *Loader) Model() *selection.Model { return l.model }

// Options returns the effective options.
func (l *Loader) Options() Options { return l.opts }

// Build maps rows onto node specs without touching the model.
func (l *Loader) Build(rows []model.Row) ([]*model.NodeSpec, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	hierarchy := l.hierarchy(len(rows[0]))
	if hierarchy[0].HasParent() {
		return l.unflatten(rows, hierarchy[0])
	}
	return l.nestedGroupBy(rows, hierarchy), nil
}

// AddRows builds specs from rows and inserts them. Nodes whose id already
// exists in the tree receive the new children instead of being duplicated.
// Inserting no rows is a no-op.
func (l *Loader) AddRows(rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	defer metrics.Timer(metrics.InputLoad)()
	specs, err := l.Build(rows)
	if err != nil {
		return fmt.Errorf("building nodes from %d rows: %w", len(rows), err)
	}
	l.insert(specs)
	return nil
}

// AddSpecs inserts pre-shaped nodes.
func (l *Loader) AddSpecs(specs ...*model.NodeSpec) error {
	if len(specs) == 0 {
		return nil
	}
	defer metrics.Timer(metrics.InputLoad)()
	nodes := 0
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("invalid node: %w", err)
		}
		nodes += spec.Count()
	}
	debug.Log("loader: inserting %d nodes", nodes)
	l.insert(specs)
	return nil
}

// AddPage inserts a page of rows. The root's server total is taken from the
// page only for unfiltered queries, since a searched total describes the
// matches rather than the whole set.
func (l *Loader) AddPage(page model.Page, pattern string) error {
	if err := l.AddRows(page.Rows); err != nil {
		return err
	}
	if page.HasTotal && pattern == "" {
		l.model.SetServerTotal(l.model.Root(), page.Total)
		l.model.Update()
	}
	return nil
}

// SetValue selects exactly the given ids and commits silently. A nil list
// commits the current state instead, notifying observers.
func (l *Loader) SetValue(ids []string) {
	if ids == nil {
		l.model.UpdateSelectedItems(false)
		return
	}
	l.model.SetSelectedItems(ids)
}

func (l *Loader) insert(specs []*model.NodeSpec) {
	l.model.Load(l.model.Root(), specs...)
	debug.Log("loader: inserted %d top-level nodes", len(specs))
	for _, hook := range l.opts.PostUpdate {
		hook(l.model, l.opts)
	}
}
