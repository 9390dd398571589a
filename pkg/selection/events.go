package selection

import (
	"slices"

	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// EventKind identifies a model notification.
type EventKind int

const (
	// EventState lists the nodes whose state changed during one mutation.
	EventState EventKind = iota
	// EventSelection follows an interactive selection change on Node.
	EventSelection
	// EventCommit follows a non-silent snapshot commit.
	EventCommit
	// EventVisibility follows a search filter change.
	EventVisibility
	// EventLoad follows insertion of data under Node.
	EventLoad
	// EventSort follows a re-sort of Node's children.
	EventSort
	// EventFlags follows a change of busy, collapsed or limit flags.
	EventFlags
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventSelection:
		return "selection"
	case EventCommit:
		return "commit"
	case EventVisibility:
		return "visibility"
	case EventLoad:
		return "load"
	case EventSort:
		return "sort"
	case EventFlags:
		return "flags"
	}
	return "unknown"
}

// Event is delivered to observers once a mutation has settled.
type Event struct {
	Kind  EventKind
	Node  tree.ID
	Nodes []tree.ID
}

// Observer receives model notifications.
type Observer func(Event)

type observer struct {
	id int
	fn Observer
}

// Subscribe registers fn and returns a function that removes it.
func (m *Model) Subscribe(fn Observer) (unsubscribe func()) {
	id := m.nextObs
	m.nextObs++
	m.observers = append(m.observers, observer{id: id, fn: fn})
	return func() {
		m.observers = slices.DeleteFunc(m.observers, func(o observer) bool { return o.id == id })
	}
}

// begin opens a mutation scope. Notifications raised inside are held until
// the outermost scope ends.
func (m *Model) begin() { m.depth++ }

// Batch runs fn as one mutation: observers hear about it once fn returns.
func (m *Model) Batch(fn func()) {
	m.begin()
	defer m.end()
	fn()
}

func (m *Model) end() {
	m.depth--
	if m.depth > 0 {
		return
	}
	if m.resortOnSelection && len(m.changed) > 0 {
		m.resortChanged()
	}
	m.flush()
}

func (m *Model) emit(e Event) {
	m.pending = append(m.pending, e)
	if m.depth == 0 {
		m.flush()
	}
}

func (m *Model) markChanged(id tree.ID) {
	if _, ok := m.seen[id]; ok {
		return
	}
	m.seen[id] = struct{}{}
	m.changed = append(m.changed, id)
}

func (m *Model) flush() {
	var events []Event
	if len(m.changed) > 0 {
		events = append(events, Event{Kind: EventState, Node: m.tree.Root(), Nodes: m.changed})
		m.changed = nil
		clear(m.seen)
	}
	events = append(events, m.pending...)
	m.pending = nil
	if len(events) == 0 {
		return
	}
	observers := slices.Clone(m.observers)
	for _, e := range events {
		for _, o := range observers {
			o.fn(e)
		}
	}
}

func (m *Model) resortChanged() {
	parents := make(map[tree.ID]struct{})
	for _, id := range m.changed {
		if p := m.tree.Parent(id); p != tree.NoID {
			parents[p] = struct{}{}
		}
	}
	for p := range parents {
		m.tree.Sort(p, tree.SortOptions{Silent: true})
	}
	m.pending = append(m.pending, Event{Kind: EventSort, Node: m.tree.Root()})
}
