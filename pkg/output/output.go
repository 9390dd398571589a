// Package output turns a committed selection into the value a host consumes.
package output

import (
	"strings"

	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/filter"
	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// Format names an output mode.
type Format string

const (
	// LowestID lists the ids of selected leaves.
	LowestID Format = "lowestId"
	// HighestID lists the most compact ids: a fully selected group stands for
	// its descendants.
	HighestID Format = "highestId"
	// Selected returns the committed ids per state bucket.
	Selected Format = "selected"
	// Scalable returns the filter expression.
	Scalable Format = "scalable"
)

// Formats lists the built-in modes.
var Formats = []Format{LowestID, HighestID, Selected, Scalable}

// ParseFormat maps a configuration name to a Format, ignoring case. Unknown
// names fall back to LowestID.
func ParseFormat(name string) Format {
	for _, f := range Formats {
		if strings.EqualFold(string(f), name) {
			return f
		}
	}
	if name != "" {
		debug.Log("output: unknown format %q, using %s", name, LowestID)
	}
	return LowestID
}

// Transform computes a custom output value from the model and its committed
// snapshot.
type Transform func(m *selection.Model, snap *selection.Snapshot) any

// Buckets is the Selected form of a snapshot.
type Buckets struct {
	All     []string `json:"all" yaml:"all"`
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
	None    []string `json:"none" yaml:"none"`
}

// Handler produces output values in one mode.
type Handler struct {
	format    Format
	transform Transform
}

// New returns a handler for format. A non-nil transform replaces the format.
func New(format string, transform Transform) *Handler {
	return &Handler{format: ParseFormat(format), transform: transform}
}

// Format returns the configured mode.
func (h *Handler) Format() Format { return h.format }

// Value computes the output of the last commit of m. Before the first commit
// the current state is used.
func (h *Handler) Value(m *selection.Model) any {
	snap := m.Snapshot()
	if snap == nil {
		snap = m.Capture()
	}
	return h.ValueOf(m, snap)
}

// ValueOf computes the output for a given snapshot of m.
func (h *Handler) ValueOf(m *selection.Model, snap *selection.Snapshot) any {
	if h.transform != nil {
		return h.transform(m, snap)
	}
	switch h.format {
	case HighestID:
		return HighestIDs(m, snap)
	case Selected:
		return SelectedBuckets(m, snap)
	case Scalable:
		return filter.ToFilterOf(m, snap)
	}
	return LowestIDs(m, snap)
}

// Watch calls fn with the processed value after every commit of m.
func (h *Handler) Watch(m *selection.Model, fn func(any)) (unsubscribe func()) {
	return m.Subscribe(func(e selection.Event) {
		if e.Kind == selection.EventCommit {
			fn(h.Value(m))
		}
	})
}

// LowestIDs returns the ids of committed selected leaves in tree order.
func LowestIDs(m *selection.Model, snap *selection.Snapshot) []string {
	ids := []string{}
	for _, n := range snap.Bucket(model.All) {
		if m.IsLeaf(n) {
			ids = append(ids, m.Item(n).ID)
		}
	}
	return ids
}

// HighestIDs returns the ids of committed selected nodes whose parent is not
// itself a selected node with an id.
func HighestIDs(m *selection.Model, snap *selection.Snapshot) []string {
	all := snap.Bucket(model.All)
	inList := make(map[tree.ID]bool, len(all))
	for _, n := range all {
		if m.Item(n).ID != "" {
			inList[n] = true
		}
	}
	ids := []string{}
	for _, n := range all {
		if !inList[n] {
			continue
		}
		if p := m.Tree().Parent(n); p != tree.NoID && inList[p] {
			continue
		}
		ids = append(ids, m.Item(n).ID)
	}
	return ids
}

// SelectedBuckets returns the committed ids per state.
func SelectedBuckets(m *selection.Model, snap *selection.Snapshot) Buckets {
	ids := func(state model.SelectionState) []string {
		out := []string{}
		for _, n := range snap.Bucket(state) {
			if id := m.Item(n).ID; id != "" {
				out = append(out, id)
			}
		}
		return out
	}
	return Buckets{
		All:     ids(model.All),
		Include: ids(model.Include),
		Exclude: ids(model.Exclude),
		None:    ids(model.None),
	}
}
