package browser

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/debug"
	"github.com/vanderheijden86/databrowser/pkg/filter"
	"github.com/vanderheijden86/databrowser/pkg/token"
	"github.com/vanderheijden86/databrowser/pkg/tree"
)

// Status texts shown in the view's title line.
const (
	StatusWaiting  = "Waiting for parameters to be set..."
	StatusSetting  = "setting parameters..."
	StatusFetching = "fetching data..."
	statusErrorPfx = "error: "
)

// Options configures a Controller. The zero value is usable.
type Options struct {
	// Filters are the initial windows (default filter.Default()).
	Filters *filter.State
	// Tokens mints fetch tokens (default the process-wide generator).
	Tokens TokenSource
	// Notifier receives events (default none).
	Notifier Notifier
	// Tracer receives the JSON event trace (default none).
	Tracer *Tracer
	// Now is the clock used for create-since cutoffs (default time.Now).
	Now func() time.Time
	// FileFilter sends file_create_since with queries when set.
	FileFilter bool
}

// Controller owns one browser view. It is not safe for concurrent use: a
// single goroutine (the UI event loop) must drive it.
type Controller struct {
	coord    *Coordinator
	scope    Scope
	filters  *filter.State
	root     *tree.Root
	resp     *catalog.Response
	status   string
	statusOK bool
	notifier Notifier
	tracer   *Tracer
	now      func() time.Time
}

// NewController returns a controller with no scope and an empty tree.
func NewController(opts Options) *Controller {
	if opts.Filters == nil {
		opts.Filters = filter.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Event) {})
	}
	coord := NewCoordinator(opts.Tokens)
	coord.FileFilter = opts.FileFilter
	return &Controller{
		coord:    coord,
		filters:  opts.Filters.Clone(),
		status:   StatusWaiting,
		statusOK: true,
		notifier: opts.Notifier,
		tracer:   opts.Tracer,
		now:      opts.Now,
	}
}

// Subscribe adds n to the notifiers receiving events. Like every other
// method it must be called from the goroutine driving the controller.
func (c *Controller) Subscribe(n Notifier) {
	c.notifier = MultiNotifier(c.notifier, n)
}

// Scope returns the current scope.
func (c *Controller) Scope() Scope { return c.scope }

// Filters returns a copy of the current windows.
func (c *Controller) Filters() *filter.State { return c.filters.Clone() }

// Tree returns the current tree, or nil while none is loaded.
func (c *Controller) Tree() *tree.Root { return c.root }

// Response returns the reply the current tree was built from, or nil.
func (c *Controller) Response() *catalog.Response { return c.resp }

// Status returns the title-line text and false if it reports an error.
func (c *Controller) Status() (string, bool) { return c.status, c.statusOK }

// Coordinator exposes the fetch coordinator.
func (c *Controller) Coordinator() *Coordinator { return c.coord }

// SetScope changes the scope. A non-empty dataset takes precedence over
// block; with both empty nothing happens. An unchanged scope does not
// refetch.
func (c *Controller) SetScope(dataset, block string) *Request {
	return c.SetScopeTo(ScopeFrom(dataset, block))
}

// SetScopeTo is SetScope for an already-built Scope.
func (c *Controller) SetScopeTo(s Scope) *Request {
	if s.IsZero() || s == c.scope {
		return nil
	}
	c.scope = s
	c.setStatus(StatusSetting, true)
	c.publish(Event{Kind: ParametersChanging, Scope: s})
	c.tracer.event(LogLevelInfo, "scope_changed", map[string]any{"scope": s.String()})
	return c.Fetch()
}

// OnFilterChanged sets one window and always refetches.
func (c *Controller) OnFilterChanged(key filter.Key, w filter.Window) *Request {
	c.filters.Set(key, w)
	c.tracer.event(LogLevelInfo, "filter_changed", map[string]any{"key": string(key), "window": int(w)})
	return c.Fetch()
}

// Fetch starts a fetch for the current scope and filters, clearing the
// tree. Without a scope it reports that arguments are needed and returns
// nil.
func (c *Controller) Fetch() *Request {
	req, err := c.coord.Begin(c.scope, c.filters, c.now())
	switch {
	case errors.Is(err, ErrNoScope):
		c.OnNoScope()
		return nil
	case err != nil:
		log.Printf("warning: browser: fetch not started: %v", err)
		c.tracer.event(LogLevelWarn, "fetch_not_started", map[string]any{"error": err.Error()})
		return nil
	}

	c.root = nil
	c.resp = nil
	c.setStatus(StatusFetching, true)
	c.publish(Event{Kind: FetchStarted, Scope: c.scope, Token: req.Token})
	c.tracer.event(LogLevelInfo, "fetch_started", map[string]any{
		"token": uint64(req.Token),
		"query": req.Params.Values().Encode(),
	})
	return req
}

// HandleResponse feeds back the outcome of a request. fetchErr is the
// transport error, if any. The returned error is non-nil only when the
// awaited fetch failed; stale replies are dropped and return nil.
func (c *Controller) HandleResponse(tok token.Token, resp *catalog.Response, fetchErr error) error {
	var (
		outcome Outcome
		err     error
	)
	if fetchErr != nil {
		outcome, err = c.coord.Fail(tok, fetchErr)
	} else {
		outcome, err = c.coord.Resolve(tok, resp)
	}

	if outcome == Rejected {
		c.OnFetchRejected(tok)
		return nil
	}
	if err != nil {
		c.onFetchFailed(tok, err)
		return err
	}
	c.OnFetchAccepted(tok, resp)
	return nil
}

// OnFetchAccepted rebuilds the tree from resp and echoes the scope in the
// status line.
func (c *Controller) OnFetchAccepted(tok token.Token, resp *catalog.Response) {
	c.root = tree.Build(resp)
	c.resp = resp
	c.setStatus(c.scope.String(), true)
	c.publish(Event{Kind: FetchCompleted, Scope: c.scope, Token: tok})

	counts := c.root.Count()
	c.tracer.event(LogLevelInfo, "fetch_completed", map[string]any{
		"token":    uint64(tok),
		"datasets": counts.Datasets,
		"blocks":   counts.Blocks,
		"files":    counts.Files,
	})
}

// OnFetchRejected records a stale reply. Tree and status are untouched.
func (c *Controller) OnFetchRejected(tok token.Token) {
	debug.Log("browser: stale reply for token %s dropped", tok)
	c.tracer.event(LogLevelDebug, "fetch_rejected", map[string]any{
		"token":   uint64(tok),
		"awaited": uint64(c.coord.Awaited()),
	})
}

// OnNoScope reports that a scope is needed before anything can be fetched.
func (c *Controller) OnNoScope() {
	c.setStatus(StatusWaiting, true)
	c.publish(Event{Kind: NeedArguments})
	c.tracer.event(LogLevelDebug, "need_arguments", nil)
}

func (c *Controller) onFetchFailed(tok token.Token, err error) {
	c.setStatus(statusErrorPfx+err.Error(), false)
	c.publish(Event{Kind: FetchFailed, Scope: c.scope, Token: tok, Err: err})
	c.tracer.event(LogLevelError, "fetch_failed", map[string]any{
		"token": uint64(tok),
		"error": err.Error(),
	})
}

// FilterState encodes the recognized windows, e.g.
// "dataset_create_since=9999 block_create_since=48".
func (c *Controller) FilterState() string {
	return c.filters.Encode()
}

// RestoreFilterState applies an encoded filter state and refetches only if
// a window actually changed.
func (c *Controller) RestoreFilterState(s string) *Request {
	if !c.filters.Decode(s) {
		return nil
	}
	c.tracer.event(LogLevelInfo, "filters_restored", map[string]any{"state": c.filters.Encode()})
	return c.Fetch()
}

// ViewState is FilterState prefixed with the scope, e.g.
// "block=/A/B/C#1 block_create_since=24". It captures everything needed to
// reproduce the view.
func (c *Controller) ViewState() string {
	parts := make([]string, 0, 2)
	if !c.scope.IsZero() {
		parts = append(parts, c.scope.String())
	}
	if f := c.FilterState(); f != "" {
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

// RestoreViewState applies a string produced by ViewState. It refetches
// once if either the scope or a window changed.
func (c *Controller) RestoreViewState(s string) *Request {
	scope, filters := ParseViewState(s)
	changed := c.filters.Decode(filters)
	if !scope.IsZero() && scope != c.scope {
		c.scope = scope
		c.setStatus(StatusSetting, true)
		c.publish(Event{Kind: ParametersChanging, Scope: scope})
		changed = true
	}
	if !changed {
		return nil
	}
	c.tracer.event(LogLevelInfo, "view_restored", map[string]any{"state": s})
	return c.Fetch()
}

// ParseViewState splits a view-state string into its scope and the
// remaining filter fields. A dataset field wins over a block field.
func ParseViewState(s string) (Scope, string) {
	var dataset, block string
	rest := make([]string, 0, 2)
	for _, field := range strings.Fields(s) {
		k, v, _ := strings.Cut(field, "=")
		switch k {
		case "dataset":
			dataset = v
		case "block":
			block = v
		default:
			rest = append(rest, field)
		}
	}
	return ScopeFrom(dataset, block), strings.Join(rest, " ")
}

func (c *Controller) setStatus(s string, ok bool) {
	c.status = s
	c.statusOK = ok
}

func (c *Controller) publish(e Event) {
	c.notifier.Notify(e)
}
