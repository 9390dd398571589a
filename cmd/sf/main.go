package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/scalefilter/internal/datasource"
	"github.com/vanderheijden86/scalefilter/pkg/component"
	"github.com/vanderheijden86/scalefilter/pkg/config"
	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/loader"
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/output"
	"github.com/vanderheijden86/scalefilter/pkg/selection"
	"github.com/vanderheijden86/scalefilter/pkg/ui"
	"github.com/vanderheijden86/scalefilter/pkg/version"
	"github.com/vanderheijden86/scalefilter/pkg/watcher"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitCancelled = 130
)

type options struct {
	configPath   string
	table        string
	strategy     string
	limit        int
	output       string
	format       string
	selectIDs    string
	toggleIDs    string
	invertIDs    string
	search       string
	pageSize     int
	prefetch     int
	serverSearch bool
	stateDir     string
	restore      bool
	watch        bool
	tui          bool
	importSQLite string
	stats        bool
	debug        bool
	cpuProfile   string
	version      bool
	input        string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/sf/config.yaml)")
	fs.StringVar(&o.table, "table", "", "Table to read from a SQLite input")
	fs.StringVar(&o.strategy, "strategy", "", "Selection strategy: SingleSelect, MultiSelect or LimitedSelect")
	fs.IntVar(&o.limit, "limit", 0, "Selection cap for LimitedSelect")
	fs.StringVar(&o.output, "output", "", "Output mode: lowestId, highestId, selected or scalable")
	fs.StringVar(&o.format, "format", "json", "Encoding of the output: json or yaml")
	fs.StringVar(&o.selectIDs, "select", "", "Comma-separated ids to select and commit")
	fs.StringVar(&o.toggleIDs, "toggle", "", "Comma-separated ids to toggle before applying")
	fs.StringVar(&o.invertIDs, "invert", "", "Comma-separated ids whose subtree is inverted")
	fs.StringVar(&o.search, "search", "", "Search pattern applied before the selection")
	fs.IntVar(&o.pageSize, "page-size", 0, "Rows per page for paged sources")
	fs.IntVar(&o.prefetch, "prefetch", 0, "Pages to fetch up front")
	fs.BoolVar(&o.serverSearch, "server-search", false, "Run searches at the source")
	fs.StringVar(&o.stateDir, "state-dir", "", "Directory of the persisted selection")
	fs.BoolVar(&o.restore, "restore", false, "Restore the last committed selection")
	fs.BoolVar(&o.watch, "watch", false, "Reload the input file when it changes")
	fs.BoolVar(&o.tui, "tui", false, "Pick interactively in the terminal")
	fs.StringVar(&o.importSQLite, "import-sqlite", "", "Write the input rows into a SQLite database and exit")
	fs.BoolVar(&o.stats, "stats", false, "Print timing metrics to stderr on exit")
	fs.BoolVar(&o.debug, "debug", false, "Write debug logs to stderr (same as SF_DEBUG=1)")
	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: sf [options] [input]")
		fmt.Fprintln(stderr, "\nSelect nodes of a hierarchical filter and print the committed value.")
		fmt.Fprintln(stderr, "Input is a JSON, JSONL or SQLite file; '-' reads JSON from stdin.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		o.input = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected one input, got %d", fs.NArg())
	}
	if o.format != "json" && o.format != "yaml" {
		return nil, fmt.Errorf("unknown format %q (json or yaml)", o.format)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if o.version {
		fmt.Fprintf(stdout, "sf %s\n", version.String())
		return exitOK
	}

	if o.debug {
		debug.SetEnabled(true)
		debug.SetOutput(stderr)
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return exitError
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return exitError
		}
		defer pprof.StopCPUProfile()
	}
	if o.stats {
		defer printStats(stderr)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if o.importSQLite != "" {
		if err := importSQLite(ctx, o, cfg, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	warn := func(msg string) { fmt.Fprintf(stderr, "warning: %s\n", msg) }
	c, closeSource, err := newManager(cfg, warn)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer closeSource()

	if err := load(ctx, c, cfg, o, stdin); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if err := applyFlags(ctx, c, o); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if o.tui {
		return runTUI(ctx, c, cfg, o, stdout, stderr)
	}
	if err := printValue(stdout, c.Value(), o.format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if o.watch {
		if err := watchAndPrint(ctx, c, o, stdout, stderr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}
	return exitOK
}

// loadConfig reads the config file and lets flags override it.
func loadConfig(o *options) (config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return cfg, err
	}

	if o.strategy != "" {
		cfg.SelectionStrategy.Type = o.strategy
	}
	if o.limit > 0 {
		cfg.SelectionStrategy.Limit = o.limit
	}
	if o.output != "" {
		cfg.OutputFormat = o.output
	}
	if o.pageSize > 0 {
		cfg.Pagination.PageSize = o.pageSize
	}
	if o.prefetch > 0 {
		cfg.Pagination.Prefetch = o.prefetch
	}
	if o.serverSearch {
		cfg.Search.ServerSide = true
	}
	if o.stateDir != "" {
		cfg.StateDir = o.stateDir
	}
	if o.input != "" {
		cfg.Source = datasource.DataSource{Path: o.input, Table: cfg.Source.Table}
	}
	if o.table != "" {
		cfg.Source.Table = o.table
	}
	return cfg, cfg.Validate()
}

// newManager builds the filter from cfg. SQLite sources are paged; the
// returned func closes the source.
func newManager(cfg config.Config, warn func(string)) (*component.Manager, func(), error) {
	strat, err := cfg.Strategy(warn)
	if err != nil {
		return nil, nil, err
	}
	var modelOpts []selection.Option
	cmp, resort, err := cfg.Comparator()
	if err != nil {
		return nil, nil, err
	}
	if !cmp.IsZero() {
		modelOpts = append(modelOpts, selection.WithComparator(cmp, resort))
	}

	opts := component.Options{
		Strategy: strat,
		Output:   output.New(cfg.OutputFormat, nil),
		Loader: loader.Options{
			Indexes:   cfg.Input.Indexes,
			ValueAsID: cfg.Input.ValueAsID,
		},
		Model:            modelOpts,
		PageSize:         cfg.Pagination.PageSize,
		ServerSideSearch: cfg.Search.ServerSide,
		StateDir:         cfg.ResolvedStateDir(),
		WarningHandler:   warn,
	}

	closeSource := func() {}
	if paged(cfg.Source) {
		src, err := datasource.Open(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		opts.Fetcher = src
		closeSource = func() { src.Close() }
	}
	return component.New(opts), closeSource, nil
}

// paged reports whether rows come from the source a page at a time.
func paged(ds datasource.DataSource) bool {
	if ds.Path == "" || ds.Path == "-" {
		return false
	}
	t := ds.Type
	if t == "" {
		t, _ = datasource.DetectType(ds.Path)
	}
	return t == datasource.SourceTypeSQLite
}

func load(ctx context.Context, c *component.Manager, cfg config.Config, o *options, stdin io.Reader) error {
	switch {
	case c.Paginated():
		pages := max(cfg.Pagination.Prefetch, 1)
		if err := c.Prefetch(ctx, pages); err != nil {
			return err
		}
	case cfg.Source.Path == "-":
		if err := c.Loader().Read(stdin, ""); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	case cfg.Source.Path != "":
		if err := c.Loader().ReadFile(cfg.Source.Path, ""); err != nil {
			return err
		}
	default:
		return errors.New("no input: pass a file or set source.path in the config")
	}

	if o.restore && !c.LoadState() {
		debug.Log("sf: no persisted selection in %s", cfg.StateDir)
	}
	return nil
}

// applyFlags runs the non-interactive edits in a fixed order: search,
// select, toggle, invert. Edits other than --select are committed together.
func applyFlags(ctx context.Context, c *component.Manager, o *options) error {
	if o.search != "" {
		if err := c.Filter(ctx, o.search); err != nil {
			return err
		}
	}
	if o.selectIDs != "" {
		c.SetValue(splitIDs(o.selectIDs))
	}
	edited := false
	for _, id := range splitIDs(o.toggleIDs) {
		if !c.Toggle(id) {
			debug.Log("sf: toggle %q rejected", id)
		}
		edited = true
	}
	for _, id := range splitIDs(o.invertIDs) {
		c.Invert(id)
		edited = true
	}
	if edited {
		c.ApplySelection()
	}
	return nil
}

func splitIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// printValue writes v as indented JSON or as YAML. YAML goes through the
// JSON form so that types with custom JSON encodings keep their shape.
func printValue(w io.Writer, v any, format string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	if format == "yaml" {
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		return enc.Close()
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// reload re-reads the input file into c. Nodes merge by id, so the current
// selection survives.
func reload(c *component.Manager, change watcher.Change) error {
	if c.Paginated() {
		return nil
	}
	return c.Loader().ReadFile(change.Path, "")
}

// watchAndPrint prints the value again every time the input file changes,
// until ctx is done.
func watchAndPrint(ctx context.Context, c *component.Manager, o *options, stdout, stderr io.Writer) error {
	w, err := watcher.NewWatcher(o.input, watcher.WithOnError(func(err error) {
		fmt.Fprintf(stderr, "warning: watch: %v\n", err)
	}))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-w.Changed():
			if err := reload(c, change); err != nil {
				fmt.Fprintf(stderr, "warning: reload %s: %v\n", change.Path, err)
				continue
			}
			c.SetValue(nil)
			if err := printValue(stdout, c.Value(), o.format); err != nil {
				return err
			}
		}
	}
}

func runTUI(ctx context.Context, c *component.Manager, cfg config.Config, o *options, stdout, stderr io.Writer) int {
	f, ok := stdout.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(stderr, "Error: --tui needs an interactive terminal")
		return exitUsage
	}

	// Keep debug output off the screen while the picker owns it.
	if debug.Enabled() {
		dir := cfg.ResolvedStateDir()
		if err := os.MkdirAll(dir, 0o755); err == nil {
			if logFile, err := os.Create(filepath.Join(dir, "debug.log")); err == nil {
				debug.SetOutput(logFile)
				defer logFile.Close()
			}
		}
	}

	uiOpts := ui.Options{Title: "sf " + filepath.Base(o.input), Reload: reload}
	if o.watch && o.input != "" && o.input != "-" {
		w, err := watcher.NewWatcher(o.input)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		if err := w.Start(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		defer w.Stop()
		uiOpts.Watcher = w
	}

	m, err := ui.Run(ctx, c, uiOpts)
	debug.SetOutput(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if !m.Applied() {
		return exitCancelled
	}
	if err := printValue(stdout, m.Value(), o.format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// importSQLite copies the input rows into a table of a SQLite database, with
// columns c0..cN, so that large inputs can be paged.
func importSQLite(ctx context.Context, o *options, cfg config.Config, stdout io.Writer) error {
	if o.input == "" || o.input == "-" {
		return errors.New("--import-sqlite needs an input file")
	}
	rows, err := datasource.ReadRows(o.input)
	if err != nil {
		return err
	}
	table := cfg.Source.Table
	if table == "" {
		table = "rows"
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	columns := make([]string, width)
	for i := range columns {
		columns[i] = fmt.Sprintf("c%d", i)
	}
	if err := datasource.Import(ctx, o.importSQLite, table, columns, rows); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d rows into %s (table %s)\n", len(rows), o.importSQLite, table)
	return nil
}

func printStats(w io.Writer) {
	for _, s := range metrics.AllTimingStats() {
		fmt.Fprintf(w, "%-18s n=%-6d avg=%.3fms max=%.3fms total=%.3fms\n",
			s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
	}
}
