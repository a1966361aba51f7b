package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/metrics"
	"github.com/vanderheijden86/databrowser/pkg/tree"
	"github.com/vanderheijden86/databrowser/pkg/ui"
)

// maxParallelFetches bounds concurrent queries in print mode.
const maxParallelFetches = 4

// printedView is the outcome of one scope in print mode.
type printedView struct {
	State string
	Resp  *catalog.Response
	Root  *tree.Root
	Err   error
}

// fetchView issues req and hands the reply to ctrl.
func fetchView(ctx context.Context, f ui.Fetcher, ctrl *browser.Controller, req *browser.Request) error {
	if req == nil {
		return fmt.Errorf("no query for %s", ctrl.Scope())
	}
	resp, err := f.Fetch(ctx, req.API, req.Params.Values())
	return ctrl.HandleResponse(req.Token, resp, err)
}

// printViews fetches every scope in parallel, each through its own
// controller. Fetch failures are kept per view; only context cancellation
// aborts the whole run.
func printViews(ctx context.Context, f ui.Fetcher, newController func() *browser.Controller, scopes []browser.Scope) ([]printedView, error) {
	views := make([]printedView, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)

	for i, scope := range scopes {
		g.Go(func() error {
			ctrl := newController()
			req := ctrl.SetScopeTo(scope)
			err := fetchView(gctx, f, ctrl, req)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			views[i] = printedView{
				State: ctrl.ViewState(),
				Resp:  ctrl.Response(),
				Root:  ctrl.Tree(),
				Err:   err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func writeText(w io.Writer, views []printedView, depth int) error {
	for i, v := range views {
		if len(views) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s\n", v.State)
		}
		if v.Err != nil {
			fmt.Fprintf(w, "error: %v\n", v.Err)
			continue
		}
		if err := tree.Render(w, v.Root, depth); err != nil {
			return err
		}
	}
	return nil
}

type jsonView struct {
	State   string            `json:"state"`
	Catalog *catalog.Response `json:"catalog,omitempty"`
	Counts  *tree.Counts      `json:"counts,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type jsonOutput struct {
	Views   []jsonView        `json:"views"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

func writeJSON(w io.Writer, views []printedView) error {
	out := jsonOutput{Views: make([]jsonView, 0, len(views))}
	for _, v := range views {
		jv := jsonView{State: v.State}
		if v.Err != nil {
			jv.Error = v.Err.Error()
		} else {
			jv.Catalog = v.Resp
			if v.Root != nil {
				c := v.Root.Count()
				jv.Counts = &c
			}
		}
		out.Views = append(out.Views, jv)
	}
	if metrics.Enabled() {
		s := metrics.Collect()
		out.Metrics = &s
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
