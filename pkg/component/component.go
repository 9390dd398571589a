// Package component hosts a filter: it owns the selection model and wires
// the selection policy, the input loader, the output handler and an optional
// page source together.
//
// A Manager is driven from one goroutine. Only FetchPage may run elsewhere;
// its result is handed back to ApplyPage on the owning goroutine.
package component

import (
	"context"
	"log"

	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/loader"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/output"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/strategy"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 100

// PageFetcher is the page source of a paginated filter.
type PageFetcher interface {
	Fetch(ctx context.Context, req model.PageRequest) (model.Page, error)
}

// Options configure a Manager. The zero value is a LimitedSelect filter with
// lowestId output and no page source.
type Options struct {
	Strategy strategy.Strategy
	Output   *output.Handler
	Loader   loader.Options
	Model    []selection.Option

	// Fetcher enables pagination; PageSize defaults to DefaultPageSize.
	Fetcher  PageFetcher
	PageSize int
	// ServerSideSearch sends search patterns to the Fetcher.
	ServerSideSearch bool

	// StateDir enables persistence of the committed selection.
	StateDir string

	WarningHandler func(string)
}

// Manager is a hosted filter.
type Manager struct {
	model    *selection.Model
	strategy strategy.Strategy
	loader   *loader.Loader
	output   *output.Handler

	fetcher      PageFetcher
	pageSize     int
	serverSearch bool
	stateDir     string
	warn         func(string)

	// pagination, owned by the model goroutine
	issued    uint64
	applied   uint64
	page      int
	pattern   string
	exhausted bool

	pending []string
}

// New returns a Manager over a fresh model.
func New(opts Options) *Manager {
	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) { log.Printf("warning: %s", msg) }
	}
	if opts.Strategy == nil {
		opts.Strategy = strategy.NewLimited(strategy.DefaultLimit, strategy.WithWarningHandler(warn))
	}
	if opts.Output == nil {
		opts.Output = output.New(string(output.LowestID), nil)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Loader.WarningHandler == nil {
		opts.Loader.WarningHandler = warn
	}

	m := selection.New(opts.Model...)
	mgr := &Manager{
		model:        m,
		strategy:     opts.Strategy,
		loader:       loader.New(m, opts.Loader),
		output:       opts.Output,
		fetcher:      opts.Fetcher,
		pageSize:     opts.PageSize,
		serverSearch: opts.ServerSideSearch && opts.Fetcher != nil,
		stateDir:     opts.StateDir,
		warn:         warn,
		page:         -1,
	}
	m.SetCollapsed(true)
	// The first data becomes the starting commit, so a cancel before any
	// apply reverts to it.
	m.Subscribe(func(e selection.Event) {
		if e.Kind == selection.EventLoad && m.Snapshot() == nil && !m.Disabled() {
			m.UpdateSelectedItems(true)
		}
	})
	if mgr.stateDir != "" {
		m.Subscribe(func(e selection.Event) {
			if e.Kind == selection.EventCommit {
				if err := mgr.SaveState(); err != nil {
					mgr.warn(err.Error())
				}
			}
		})
	}
	return mgr
}

// Model returns the selection model.
func (c *Manager) Model() *selection.Model { return c.model }

// Strategy returns the selection policy.
func (c *Manager) Strategy() strategy.Strategy { return c.strategy }

// Output returns the output handler.
func (c *Manager) Output() *output.Handler { return c.output }

// Loader returns the input loader.
func (c *Manager) Loader() *loader.Loader { return c.loader }

// Paginated reports whether the manager has a page source.
func (c *Manager) Paginated() bool { return c.fetcher != nil }

// AddRows inserts input rows.
func (c *Manager) AddRows(rows []model.Row) error {
	if err := c.loader.AddRows(rows); err != nil {
		return err
	}
	c.flushPending()
	return nil
}

// AddSpecs inserts pre-shaped nodes.
func (c *Manager) AddSpecs(specs ...*model.NodeSpec) error {
	if err := c.loader.AddSpecs(specs...); err != nil {
		return err
	}
	c.flushPending()
	return nil
}

// Value returns the committed output.
func (c *Manager) Value() any { return c.output.Value(c.model) }

// OnChange calls fn with the processed output after every commit.
func (c *Manager) OnChange(fn func(any)) (unsubscribe func()) {
	return c.output.Watch(c.model, fn)
}

// SetValue selects exactly ids and commits silently; nil commits the current
// state. Ids are kept until data arrives when the tree is still empty.
func (c *Manager) SetValue(ids []string) {
	if ids != nil && c.model.Disabled() {
		c.pending = ids
		return
	}
	c.pending = nil
	c.loader.SetValue(ids)
}

func (c *Manager) flushPending() {
	if c.pending != nil && !c.model.Disabled() {
		ids := c.pending
		c.pending = nil
		c.loader.SetValue(ids)
	}
}

func (c *Manager) lookup(id string) (tree.ID, bool) {
	n, ok := c.model.Find(id)
	if !ok {
		debug.Log("component: unknown node %q", id)
	}
	return n, ok
}

// Toggle flips the selection of the node with the given id through the
// policy. It reports whether the change was applied.
func (c *Manager) Toggle(id string) bool {
	n, ok := c.lookup(id)
	return ok && c.ToggleNode(n)
}

// ToggleNode is Toggle by tree id.
func (c *Manager) ToggleNode(n tree.ID) bool {
	return c.strategy.ChangeSelection(c.model, n)
}

// SelectOnly clears the selection and selects the node with the given id.
func (c *Manager) SelectOnly(id string) bool {
	n, ok := c.lookup(id)
	return ok && c.strategy.SelectOnlyThis(c.model, n)
}

// Invert flips the selection below the node with the given id, or of the
// whole tree when id is empty.
func (c *Manager) Invert(id string) {
	n := c.model.Root()
	if id != "" {
		var ok bool
		if n, ok = c.lookup(id); !ok {
			return
		}
	}
	c.model.Invert(n)
}

// ApplySelection commits the current selection.
func (c *Manager) ApplySelection() { c.strategy.ApplySelection(c.model) }

// CancelSelection reverts to the last commit.
func (c *Manager) CancelSelection() { c.strategy.CancelSelection(c.model) }

// ToggleCollapse opens or closes the selection list.
func (c *Manager) ToggleCollapse() { strategy.ToggleCollapse(c.strategy, c.model) }

// ServerSideSearch reports whether searches are sent to the page source.
func (c *Manager) ServerSideSearch() bool { return c.serverSearch }

// BeginFilter runs a search on the loaded nodes and, with server-side search,
// issues the request for the first page of matches.
func (c *Manager) BeginFilter(text string) (Request, bool) {
	c.strategy.Filter(c.model, text)
	if !c.serverSearch || text == c.pattern {
		return Request{}, false
	}
	return c.BeginPage(0, text), true
}

// Filter runs a search. With server-side search the matching rows are
// fetched from the first page on.
func (c *Manager) Filter(ctx context.Context, text string) error {
	req, ok := c.BeginFilter(text)
	if !ok {
		return nil
	}
	return c.run(ctx, req)
}
