package ui

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/filter"
)

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// PromptScope asks for a dataset or block and the dataset and block
// windows. filters is updated in place. A huh.ErrUserAborted error means
// the user cancelled.
func PromptScope(filters *filter.State) (browser.Scope, error) {
	var (
		kind   = "block"
		name   string
		dsWin  = strconv.Itoa(int(filters.Get(filter.DatasetCreateSince)))
		blkWin = strconv.Itoa(int(filters.Get(filter.BlockCreateSince)))
	)

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Browse by").
				Options(
					huh.NewOption("Block (/Primary/Processed/Tier#uuid)", "block"),
					huh.NewOption("Dataset (/Primary/Processed/Tier)", "dataset"),
				).
				Value(&kind),
			huh.NewInput().
				Title("Name").
				Description("Wildcards (*) are passed to the service").
				Value(&name).
				Validate(validateScopeName),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(filter.DatasetCreateSince.Label()).
				Options(windowOptions()...).
				Value(&dsWin),
			huh.NewSelect[string]().
				Title(filter.BlockCreateSince.Label()).
				Options(windowOptions()...).
				Value(&blkWin),
		),
	)
	if err := form.Run(); err != nil {
		return browser.Scope{}, err
	}

	filters.Set(filter.DatasetCreateSince, parseWindow(dsWin))
	filters.Set(filter.BlockCreateSince, parseWindow(blkWin))

	name = strings.TrimSpace(name)
	if kind == "dataset" {
		return browser.DatasetScope(name), nil
	}
	return browser.BlockScope(name), nil
}

func validateScopeName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("a name is required")
	}
	if !strings.HasPrefix(s, "/") {
		return errors.New("names start with /")
	}
	return nil
}

func windowOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(filter.Choices))
	for _, c := range filter.Choices {
		opts = append(opts, huh.NewOption(c.Label, strconv.Itoa(int(c.Window))))
	}
	return opts
}

func parseWindow(s string) filter.Window {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return filter.Window(n)
}

// ParseScopeInput interprets a line typed into the scope prompt. A line with
// key=value fields is a view state and may carry filter fields, which are
// returned as rest. Otherwise a name containing '#' is a block and anything
// else a dataset.
func ParseScopeInput(s string) (scope browser.Scope, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return browser.Scope{}, ""
	}
	if strings.Contains(s, "=") {
		return browser.ParseViewState(s)
	}
	if strings.Contains(s, "#") {
		return browser.BlockScope(s), ""
	}
	return browser.DatasetScope(s), ""
}
