package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/databrowser/internal/bookmarks"
	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/config"
	"github.com/vanderheijden86/databrowser/pkg/ui"
	"github.com/vanderheijden86/databrowser/pkg/watcher"
)

type tuiOptions struct {
	cfg        config.Config
	configPath string
	client     *catalog.Client
	ctrl       *browser.Controller
	scopes     []browser.Scope
	stateFile  string
	store      *bookmarks.Store
}

// runTUI starts the interactive browser. The state file, when given, seeds
// the view unless a scope came from the command line.
func runTUI(o tuiOptions) error {
	restoreLog := redirectLog()
	defer restoreLog()

	if o.store == nil {
		if s, err := bookmarks.Open(o.cfg.BookmarksPath()); err != nil {
			log.Printf("warning: bookmarks disabled: %v", err)
		} else {
			defer s.Close()
			o.store = s
		}
	}

	var initial *browser.Request
	if len(o.scopes) > 0 {
		initial = o.ctrl.SetScopeTo(o.scopes[0])
	}

	var sf *watcher.StateFile
	if o.stateFile != "" {
		s, err := watcher.NewStateFile(o.stateFile)
		if err != nil {
			return err
		}
		content, err := s.Start()
		if err != nil {
			return err
		}
		defer s.Stop()
		sf = s
		if initial == nil && content != "" {
			initial = o.ctrl.RestoreViewState(content)
		}
	}

	m := ui.NewModel(ui.Options{
		Controller: o.ctrl,
		Fetcher:    o.client,
		Config:     o.cfg,
		ConfigPath: o.configPath,
		Bookmarks:  o.store,
		StateFile:  sf,
		Initial:    initial,
	})
	defer m.Close()

	return runTUIProgram(m)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM; a second signal or a stuck
	// program gets killed.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Auto-quit for scripted runs: DBW_TUI_AUTOCLOSE_MS.
	if ms := autoCloseDelay(os.Getenv("DBW_TUI_AUTOCLOSE_MS")); ms > 0 {
		go func() {
			timer := time.NewTimer(ms)
			defer timer.Stop()

			select {
			case <-runDone:
				return
			case <-timer.C:
			}

			p.Quit()

			select {
			case <-runDone:
				return
			case <-time.After(2 * time.Second):
			}

			p.Kill()
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

// autoCloseDelay parses a millisecond count; anything else disables it.
func autoCloseDelay(v string) time.Duration {
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
