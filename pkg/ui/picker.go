// Package ui is the terminal host of a filter: a collapsible tree of groups
// and items with checkboxes, a search box and pagination on scroll.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/scalefilter/pkg/component"
	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
	"github.com/vanderheijden86/scalefilter/pkg/watcher"
)

// searchDebounce is the typing pause after which a search runs.
const searchDebounce = 150 * time.Millisecond

// chromeHeight is the number of lines around the list: header, search box
// (two lines with its border) and footer.
const chromeHeight = 4

// FileChangedMsg is sent when the watched input file changes on disk.
type FileChangedMsg struct {
	Change watcher.Change
}

// searchTickMsg fires searchDebounce after a keystroke in the search box.
type searchTickMsg struct {
	seq  int
	text string
}

// pageMsg carries a page fetched off the update loop.
type pageMsg struct {
	req  component.Request
	resp component.Response
	err  error
}

// WatchFileCmd returns a command that waits for a file change and sends
// FileChangedMsg.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return FileChangedMsg{Change: <-w.Changed()}
	}
}

// Reloader loads new content of the input file into the filter.
type Reloader func(c *component.Manager, change watcher.Change) error

// Options configure the picker.
type Options struct {
	Title   string
	Theme   *Theme
	Watcher *watcher.Watcher
	Reload  Reloader
}

type row struct {
	id    tree.ID
	depth int
}

// Model is the picker's bubbletea model.
type Model struct {
	mgr   *component.Manager
	ctx   context.Context
	theme Theme
	keys  KeyMap
	title string

	input     textinput.Model
	searching bool
	searchSeq int

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	expanded map[tree.ID]bool
	rows     []row
	cursor   int
	status   string

	watcher *watcher.Watcher
	reload  Reloader

	applied bool
}

// New returns a picker over c. ctx bounds the page fetches it issues.
func New(ctx context.Context, c *component.Manager, opts Options) *Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	title := opts.Title
	if title == "" {
		title = "sf"
	}

	ti := textinput.New()
	ti.Placeholder = "type to search..."
	ti.Prompt = "/ "
	ti.CharLimit = 120

	m := &Model{
		mgr:      c,
		ctx:      ctx,
		theme:    theme,
		keys:     DefaultKeyMap(),
		title:    title,
		input:    ti,
		viewport: viewport.New(80, 20),
		expanded: make(map[tree.ID]bool),
		watcher:  opts.Watcher,
		reload:   opts.Reload,
	}
	c.Model().SetCollapsed(false)
	m.rebuild()
	return m
}

// Init starts watching the input file, if any.
func (m *Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

// Applied reports whether the user quit by applying the selection.
func (m *Model) Applied() bool { return m.applied }

// Value returns the committed output.
func (m *Model) Value() any { return m.mgr.Value() }

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.input.Width = max(10, msg.Width-4)
		m.ready = true

	case tea.KeyMsg:
		if m.searching {
			cmd = m.updateSearch(msg)
		} else {
			cmd = m.updateKeys(msg)
		}

	case searchTickMsg:
		if msg.seq == m.searchSeq {
			cmd = m.search(msg.text)
		}

	case pageMsg:
		if msg.err != nil {
			m.mgr.FailPage(msg.req)
			m.status = fmt.Sprintf("failed to load rows: %v", msg.err)
		} else if err := m.mgr.ApplyPage(msg.resp); err != nil {
			m.status = fmt.Sprintf("failed to load rows: %v", err)
		}

	case FileChangedMsg:
		if m.reload != nil {
			if err := m.reload(m.mgr, msg.Change); err != nil {
				m.status = fmt.Sprintf("reload failed: %v", err)
			} else {
				m.status = "reloaded " + msg.Change.Path
			}
		}
		if m.watcher != nil {
			cmd = WatchFileCmd(m.watcher)
		}
	}

	m.rebuild()
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		m.input.SetValue("")
		m.searchSeq++
		return m.search("")
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		m.searchSeq++
		return m.search(m.input.Value())
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if text := m.input.Value(); text != before {
		m.searchSeq++
		seq := m.searchSeq
		return tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchTickMsg{seq: seq, text: text}
		}))
	}
	return cmd
}

// search filters the tree, fetching matches when search runs at the source.
func (m *Model) search(text string) tea.Cmd {
	m.cursor = 0
	req, ok := m.mgr.BeginFilter(text)
	if !ok {
		return nil
	}
	return m.fetchCmd(req)
}

func (m *Model) fetchCmd(req component.Request) tea.Cmd {
	c, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		resp, err := c.FetchPage(ctx, req)
		return pageMsg{req: req, resp: resp, err: err}
	}
}

func (m *Model) loadMore() tea.Cmd {
	if m.mgr.Model().Busy() {
		return nil
	}
	req, ok := m.mgr.BeginNextPage()
	if !ok {
		return nil
	}
	debug.Log("ui: loading page %d", req.Page)
	return m.fetchCmd(req)
}

func (m *Model) current() (tree.ID, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return tree.NoID, false
	}
	return m.rows[m.cursor].id, true
}

func (m *Model) updateKeys(msg tea.KeyMsg) tea.Cmd {
	sm := m.mgr.Model()
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		} else {
			return m.loadMore()
		}

	case key.Matches(msg, m.keys.More):
		return m.loadMore()

	case key.Matches(msg, m.keys.Expand):
		if id, ok := m.current(); ok && sm.Tree().HasChildren(id) {
			m.expanded[id] = true
		}

	case key.Matches(msg, m.keys.Collapse):
		id, ok := m.current()
		if !ok {
			break
		}
		if m.expanded[id] {
			delete(m.expanded, id)
			break
		}
		parent := sm.Tree().Parent(id)
		for i, r := range m.rows {
			if r.id == parent {
				m.cursor = i
				delete(m.expanded, parent)
				break
			}
		}

	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.current(); ok && !m.mgr.ToggleNode(id) {
			m.status = m.rejection()
		}

	case key.Matches(msg, m.keys.Only):
		if id, ok := m.current(); ok && !m.mgr.SelectOnly(sm.Item(id).ID) {
			m.status = m.rejection()
		}

	case key.Matches(msg, m.keys.Invert):
		if id, ok := m.current(); ok {
			m.mgr.Invert(sm.Item(id).ID)
		}

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.input.SetValue(sm.SearchPattern())
		m.input.CursorEnd()
		return m.input.Focus()

	case key.Matches(msg, m.keys.Apply):
		m.mgr.ApplySelection()
		m.applied = true
		return tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.mgr.CancelSelection()
		sm.SetCollapsed(false)
		m.status = "selection reverted"

	case key.Matches(msg, m.keys.Copy):
		data, err := json.Marshal(m.mgr.Value())
		if err == nil {
			err = clipboard.WriteAll(string(data))
		}
		if err != nil {
			m.status = fmt.Sprintf("copy failed: %v", err)
		} else {
			m.status = "copied output to clipboard"
		}
	}
	return nil
}

func (m *Model) rejection() string {
	if m.mgr.Model().ReachedSelectionLimit() {
		return "selection limit reached"
	}
	return "cannot select this node"
}

// rebuild recomputes the visible rows. Groups open while a search is active
// so that matches are shown.
func (m *Model) rebuild() {
	sm := m.mgr.Model()
	if sm.Stale() {
		sm.Update()
	}
	t := sm.Tree()
	searching := sm.SearchPattern() != ""
	m.rows = m.rows[:0]

	var walk func(id tree.ID, depth int)
	walk = func(id tree.ID, depth int) {
		for _, c := range t.Children(id) {
			if !sm.Visible(c) {
				continue
			}
			m.rows = append(m.rows, row{id: c, depth: depth})
			if searching || m.expanded[c] {
				walk(c, depth+1)
			}
		}
	}
	walk(sm.Root(), 0)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) renderRow(r row, selected bool) string {
	sm := m.mgr.Model()
	t := sm.Tree()
	item := sm.Item(r.id)

	marker := "  "
	switch {
	case t.IsLeaf(r.id):
	case !t.HasChildren(r.id):
		marker = "· "
	case m.expanded[r.id] || sm.SearchPattern() != "":
		marker = "▾ "
	default:
		marker = "▸ "
	}

	indent := strings.Repeat("  ", r.depth)
	prefix := indent + marker + m.theme.Checkbox(item.Selection) + " "
	width := max(10, m.viewport.Width-lipgloss.Width(prefix)-2)
	label := truncate(item.Label, width)
	if !t.IsLeaf(r.id) {
		label = m.theme.Group.Render(label)
		if n := sm.VisibleCount(r.id); n > 0 {
			label += m.theme.Muted.Render(fmt.Sprintf(" (%d)", n))
		}
	}

	line := prefix + label
	if selected {
		return m.theme.Cursor.Width(m.viewport.Width - 1).Render(line)
	}
	return " " + line
}

func (m *Model) header() string {
	sm := m.mgr.Model()
	parts := []string{m.theme.Header.Render(m.title)}
	parts = append(parts, fmt.Sprintf("%d of %d selected", sm.NumberOfSelectedItems(), sm.NumberOfItems()))
	if sm.HasChanged() {
		parts = append(parts, m.theme.Alert.Render("modified"))
	}
	if sm.ReachedSelectionLimit() {
		parts = append(parts, m.theme.Alert.Render("limit reached"))
	}
	if sm.Busy() {
		parts = append(parts, m.theme.Status.Render("loading…"))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) footer() string {
	if m.status != "" {
		return m.theme.Status.Render(m.status)
	}
	var help []string
	for _, b := range m.keys.help() {
		h := b.Help()
		help = append(help, m.theme.HelpKey.Render(h.Key)+" "+m.theme.HelpDesc.Render(h.Desc))
	}
	return strings.Join(help, "  ")
}

// View renders the picker.
func (m *Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var body string
	if len(m.rows) == 0 {
		switch {
		case m.mgr.Model().Busy():
			body = m.theme.Status.Render("  loading…")
		case m.mgr.Model().Disabled():
			body = m.theme.Status.Render("  no data")
		default:
			body = m.theme.Status.Render("  no matches")
		}
	} else {
		lines := make([]string, len(m.rows))
		for i, r := range m.rows {
			lines[i] = m.renderRow(r, i == m.cursor)
		}
		m.viewport.SetContent(strings.Join(lines, "\n"))
		switch {
		case m.cursor < m.viewport.YOffset:
			m.viewport.SetYOffset(m.cursor)
		case m.cursor >= m.viewport.YOffset+m.viewport.Height:
			m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
		}
		body = m.viewport.View()
	}

	search := m.input.View()
	if !m.searching && m.mgr.Model().SearchPattern() == "" {
		search = m.theme.Muted.Render("/ to search")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.theme.Input.Render(search),
		body,
		m.footer(),
	)
}

// Run starts the picker full-screen and returns it after the user quits.
func Run(ctx context.Context, c *component.Manager, opts Options) (*Model, error) {
	m := New(ctx, c, opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return m, fmt.Errorf("running picker: %w", err)
	}
	return m, nil
}
