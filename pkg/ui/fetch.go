package ui

import (
	"context"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/databrowser/internal/bookmarks"
	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/export"
	"github.com/vanderheijden86/databrowser/pkg/token"
	"github.com/vanderheijden86/databrowser/pkg/tree"
	"github.com/vanderheijden86/databrowser/pkg/watcher"
)

// Fetcher performs catalog queries. *catalog.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, api string, params url.Values) (*catalog.Response, error)
}

// CatalogMsg carries the outcome of one fetch back to the event loop. Token
// is the token the request was issued under.
type CatalogMsg struct {
	Token   token.Token
	Resp    *catalog.Response
	Err     error
	Elapsed time.Duration
}

// StateChangedMsg is sent when another process rewrites the state file.
type StateChangedMsg struct {
	State string
}

// StateFileErrorMsg reports a state file watch failure.
type StateFileErrorMsg struct {
	Err error
}

// EventMsg carries one controller event to the event loop.
type EventMsg struct {
	Event browser.Event
}

type bookmarkSavedMsg struct {
	Bookmark bookmarks.Bookmark
	Err      error
}

type exportDoneMsg struct {
	Path string
	Err  error
}

// FetchCmd runs req on f in the background.
func FetchCmd(ctx context.Context, f Fetcher, req *browser.Request) tea.Cmd {
	if req == nil || f == nil {
		return nil
	}
	tok, api, params := req.Token, req.API, req.Params.Values()
	return func() tea.Msg {
		start := time.Now()
		resp, err := f.Fetch(ctx, api, params)
		return CatalogMsg{Token: tok, Resp: resp, Err: err, Elapsed: time.Since(start)}
	}
}

// WatchStateCmd waits for the next external change to sf.
func WatchStateCmd(ctx context.Context, sf *watcher.StateFile) tea.Cmd {
	if sf == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-sf.Updates():
			return StateChangedMsg{State: s}
		case err := <-sf.Errors():
			return StateFileErrorMsg{Err: err}
		case <-ctx.Done():
			return nil
		}
	}
}

// WaitForEventCmd waits for the next event published to n.
func WaitForEventCmd(ctx context.Context, n *browser.ChannelNotifier) tea.Cmd {
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-n.C:
			return EventMsg{Event: e}
		case <-ctx.Done():
			return nil
		}
	}
}

func saveBookmarkCmd(ctx context.Context, store *bookmarks.Store, name, state string) tea.Cmd {
	return func() tea.Msg {
		b, err := store.Save(ctx, name, state)
		return bookmarkSavedMsg{Bookmark: b, Err: err}
	}
}

func exportCmd(root *tree.Root, path, title string) tea.Cmd {
	return func() tea.Msg {
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:  path,
			Title: title,
			Root:  root,
		})
		return exportDoneMsg{Path: path, Err: err}
	}
}
