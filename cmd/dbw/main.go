// Command dbw browses the datasets, blocks and files of a data catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/databrowser/internal/bookmarks"
	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/config"
	"github.com/vanderheijden86/databrowser/pkg/debug"
	"github.com/vanderheijden86/databrowser/pkg/export"
	"github.com/vanderheijden86/databrowser/pkg/filter"
	"github.com/vanderheijden86/databrowser/pkg/retry"
	"github.com/vanderheijden86/databrowser/pkg/ui"
	"github.com/vanderheijden86/databrowser/pkg/version"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (f *multiFlag) String() string { return strings.Join(*f, ",") }

func (f *multiFlag) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty value")
	}
	*f = append(*f, v)
	return nil
}

type options struct {
	baseURL       string
	instance      string
	datasets      multiFlag
	blocks        multiFlag
	state         string
	stateFile     string
	print         bool
	json          bool
	depth         int
	exportPath    string
	configPath    string
	listBookmarks bool
	open          string
	save          string
	version       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("dbw", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.baseURL, "url", "", "Data service base URL (overrides service.base_url)")
	fs.StringVar(&opts.instance, "instance", "", "Service instance: prod, dev or debug")
	fs.Var(&opts.datasets, "dataset", "Dataset to browse, e.g. /Primary/Processed/TIER (repeatable)")
	fs.Var(&opts.blocks, "block", "Block to browse, e.g. /Primary/Processed/TIER#uuid (repeatable)")
	fs.StringVar(&opts.state, "state", "", "View state to open, e.g. 'block=/A/B/C#1 block_create_since=48'")
	fs.StringVar(&opts.stateFile, "state-file", "", "File holding the view state; watched for changes by other programs")
	fs.BoolVar(&opts.print, "print", false, "Print the tree and exit (default when stdout is not a terminal)")
	fs.BoolVar(&opts.json, "json", false, "With --print, write the catalog and metrics as JSON")
	fs.IntVar(&opts.depth, "depth", 0, "Levels to print or export (0 = all, 1 = datasets only)")
	fs.StringVar(&opts.exportPath, "export", "", "Write an SVG or PNG snapshot of the tree to this path and exit")
	fs.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/dbw/config.yaml)")
	fs.BoolVar(&opts.listBookmarks, "bookmarks", false, "List saved bookmarks and exit")
	fs.StringVar(&opts.open, "open", "", "Open the bookmark with this name")
	fs.StringVar(&opts.save, "save", "", "Save the view as a bookmark with this name")
	fs.BoolVar(&opts.version, "version", false, "Show version")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: dbw [flags]\n\n")
		fmt.Fprintf(stderr, "Browse a data catalog by dataset or block.\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment: DBW_DEBUG, DBW_METRICS, DBW_LOG_LEVEL, DBW_TRACE, DBW_TUI_AUTOCLOSE_MS\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "dbw %s\n", version.Version)
		return 0
	}

	cfg, cfgPath := loadConfig(opts.configPath, stderr)
	if opts.baseURL != "" {
		cfg.Service.BaseURL = opts.baseURL
	}
	if opts.instance != "" {
		cfg.Service.Instance = opts.instance
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *bookmarks.Store
	if opts.listBookmarks || opts.open != "" || opts.save != "" {
		s, err := bookmarks.Open(cfg.BookmarksPath())
		if err != nil {
			fmt.Fprintf(stderr, "Error opening bookmarks: %v\n", err)
			return 1
		}
		defer s.Close()
		store = s
	}

	if opts.listBookmarks {
		if err := listBookmarks(ctx, stdout, store); err != nil {
			fmt.Fprintf(stderr, "Error listing bookmarks: %v\n", err)
			return 1
		}
		return 0
	}

	filters := cfg.Filters.State()
	var states []string
	if opts.open != "" {
		b, err := store.Get(ctx, opts.open)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		states = append(states, b.State)
	}
	if opts.state != "" {
		states = append(states, opts.state)
	}
	scopes := resolveScopes(filters, states, opts.datasets, opts.blocks)

	tracer, closeTrace := openTracer(stderr)
	defer closeTrace()
	newController := func() *browser.Controller {
		return browser.NewController(browser.Options{
			Filters:    filters,
			Tracer:     tracer,
			FileFilter: cfg.Experimental.FileFilter,
		})
	}

	if opts.save != "" {
		if len(scopes) != 1 {
			fmt.Fprintf(stderr, "Error: --save needs exactly one dataset or block, got %d\n", len(scopes))
			return 2
		}
		ctrl := newController()
		ctrl.SetScopeTo(scopes[0])
		b, err := store.Save(ctx, opts.save, ctrl.ViewState())
		if err != nil {
			fmt.Fprintf(stderr, "Error saving bookmark: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "Saved bookmark %q: %s\n", b.Name, b.State)
	}

	client := catalog.New(catalog.Config{
		BaseURL:  cfg.Service.BaseURL,
		Format:   cfg.Service.Format,
		Instance: cfg.Service.Instance,
		Timeout:  cfg.Service.Timeout,
		Retry:    retryConfig(cfg.Service.Retries),
	})

	if opts.exportPath != "" {
		if len(scopes) != 1 {
			fmt.Fprintf(stderr, "Error: --export needs exactly one dataset or block, got %d\n", len(scopes))
			return 2
		}
		ctrl := newController()
		if err := fetchView(ctx, client, ctrl, ctrl.SetScopeTo(scopes[0])); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:     opts.exportPath,
			Title:    ctrl.ViewState(),
			Root:     ctrl.Tree(),
			MaxDepth: opts.depth,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error exporting snapshot: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "Snapshot written to %s\n", opts.exportPath)
		return 0
	}

	if opts.print || opts.json || len(scopes) > 1 || !isTerminal(stdout) {
		if len(scopes) == 0 {
			fmt.Fprintln(stderr, "Error: nothing to print; give --dataset, --block, --state or --open")
			return 2
		}
		views, err := printViews(ctx, client, newController, scopes)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if opts.json {
			err = writeJSON(stdout, views)
		} else {
			err = writeText(stdout, views, opts.depth)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error writing output: %v\n", err)
			return 1
		}
		for _, v := range views {
			if v.Err != nil {
				return 1
			}
		}
		return 0
	}

	if len(scopes) == 0 && opts.stateFile == "" && ui.IsTerminal() {
		s, err := ui.PromptScope(filters)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return 0
			}
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		scopes = append(scopes, s)
	}

	tui := tuiOptions{
		cfg:        cfg,
		configPath: cfgPath,
		client:     client,
		ctrl:       newController(),
		scopes:     scopes,
		stateFile:  opts.stateFile,
		store:      store,
	}
	if err := runTUI(tui); err != nil {
		fmt.Fprintf(stderr, "Error running dbw: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file, falling back to defaults with a warning
// when it cannot be used.
func loadConfig(path string, stderr io.Writer) (config.Config, string) {
	if path == "" {
		path = config.ConfigPath()
	}
	if path == "" {
		return config.DefaultConfig(), ""
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg, path
}

// resolveScopes applies view states to filters and collects the scopes they
// name, followed by the --dataset and --block values in that order.
func resolveScopes(filters *filter.State, states []string, datasets, blocks []string) []browser.Scope {
	var scopes []browser.Scope
	for _, s := range states {
		scope, rest := browser.ParseViewState(s)
		filters.Decode(rest)
		if !scope.IsZero() {
			scopes = append(scopes, scope)
		}
	}
	for _, d := range datasets {
		scopes = append(scopes, browser.DatasetScope(d))
	}
	for _, b := range blocks {
		scopes = append(scopes, browser.BlockScope(b))
	}
	return scopes
}

func retryConfig(attempts int) retry.Config {
	rc := retry.DefaultConfig()
	if attempts > 0 {
		rc.MaxAttempts = attempts
	}
	return rc
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func listBookmarks(ctx context.Context, w io.Writer, store *bookmarks.Store) error {
	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No bookmarks saved. Use --save NAME or press m in the browser.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUPDATED\tVIEW")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, b.UpdatedAt.Local().Format("2006-01-02 15:04"), b.State)
	}
	return tw.Flush()
}

// openTracer opens the JSON event trace named by DBW_TRACE. DBW_LOG_LEVEL
// picks the level (default info).
func openTracer(stderr io.Writer) (*browser.Tracer, func()) {
	path := os.Getenv("DBW_TRACE")
	if path == "" {
		return nil, func() {}
	}
	level := browser.LogLevelInfo
	if raw := os.Getenv("DBW_LOG_LEVEL"); raw != "" {
		level = browser.ParseLogLevel(raw)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: cannot open trace file: %v\n", err)
		return nil, func() {}
	}
	debug.Log("event trace at %s (level %s)", path, level)
	return browser.NewTracer(f, level), func() { _ = f.Close() }
}

// redirectLog sends log and debug output to dbw.log in the state
// directory while the alt-screen is up.
func redirectLog() func() {
	dir := config.StateDir()
	if dir == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }
	}
	f, err := os.OpenFile(filepath.Join(dir, "dbw.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }
	}
	log.SetOutput(f)
	debug.SetOutput(f)
	log.Printf("dbw %s started %s", version.Version, time.Now().Format(time.RFC3339))
	return func() {
		log.SetOutput(os.Stderr)
		debug.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
