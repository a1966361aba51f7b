package ui

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/databrowser/internal/bookmarks"
	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/config"
	"github.com/vanderheijden86/databrowser/pkg/debug"
	"github.com/vanderheijden86/databrowser/pkg/filter"
	"github.com/vanderheijden86/databrowser/pkg/metrics"
	"github.com/vanderheijden86/databrowser/pkg/tree"
	"github.com/vanderheijden86/databrowser/pkg/watcher"
)

// SplitViewThreshold is the minimum width at which tree and detail are
// shown side by side.
const SplitViewThreshold = 100

const (
	defaultWidth  = 120
	defaultHeight = 40
	eventBuffer   = 64
)

type focus int

const (
	focusTree focus = iota
	focusDetail
)

type inputMode int

const (
	inputNone inputMode = iota
	inputScope
	inputBookmark
)

// Options configures a Model.
type Options struct {
	Controller *browser.Controller
	Fetcher    Fetcher
	Config     config.Config
	// ConfigPath receives quick views saved with alt+1-9. Empty keeps them
	// in memory only.
	ConfigPath string
	Bookmarks  *bookmarks.Store
	StateFile  *watcher.StateFile
	// ExportDir receives snapshots written with x (default ".").
	ExportDir string
	// Initial is issued when the program starts, usually the request
	// returned by SetScope for the command-line scope.
	Initial *browser.Request
	Now     func() time.Time
}

// Model is the Bubble Tea model of the catalog browser. All controller
// calls happen inside Update; fetches run as commands and come back as
// CatalogMsg.
type Model struct {
	ctrl       *browser.Controller
	events     *browser.ChannelNotifier
	fetcher    Fetcher
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        config.Config
	configPath string
	bookmarks  *bookmarks.Store
	stateFile  *watcher.StateFile
	exportDir  string
	initial    *browser.Request
	now        func() time.Time

	theme    Theme
	keys     KeyMap
	help     help.Model
	tree     TreeModel
	viewport viewport.Model
	renderer *MarkdownRenderer
	spinner  spinner.Model
	input    textinput.Model

	width       int
	height      int
	splitRatio  float64
	isSplitView bool
	showDetails bool
	showHelp    bool
	focused     focus
	inputMode   inputMode
	spinning    bool
	lastScope   browser.Scope

	detailNode  *tree.Node
	detailDirty bool

	statusMsg     string
	statusIsError bool
}

// NewModel builds the browser model and subscribes it to the controller's
// events. The model starts with default dimensions so it renders before the
// first WindowSizeMsg.
func NewModel(opts Options) Model {
	if opts.Controller == nil {
		opts.Controller = browser.NewController(browser.Options{})
	}
	events := browser.NewChannelNotifier(eventBuffer)
	opts.Controller.Subscribe(events)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	keys := DefaultKeyMap()
	keys.FileNext.SetEnabled(opts.Config.Experimental.FileFilter)
	keys.FilePrev.SetEnabled(opts.Config.Experimental.FileFilter)

	ti := textinput.New()
	ti.CharLimit = 512

	ratio := opts.Config.UI.SplitRatio
	if ratio < 0.2 || ratio > 0.8 {
		ratio = 0.6
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		ctrl:        opts.Controller,
		events:      events,
		fetcher:     opts.Fetcher,
		ctx:         ctx,
		cancel:      cancel,
		cfg:         opts.Config,
		configPath:  opts.ConfigPath,
		bookmarks:   opts.Bookmarks,
		stateFile:   opts.StateFile,
		exportDir:   opts.ExportDir,
		initial:     opts.Initial,
		now:         opts.Now,
		theme:       theme,
		keys:        keys,
		help:        help.New(),
		tree:        NewTreeModel(theme, opts.Config.UI.ExpandDepth),
		renderer:    NewMarkdownRenderer(40, ""),
		input:       ti,
		splitRatio:  ratio,
		showDetails: opts.Config.UI.DetailPane,
		spinning:    opts.Initial != nil,
		lastScope:   opts.Controller.Scope(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorPrimary)),
		),
	}
	m.resize(defaultWidth, defaultHeight)
	m.sync()
	if m.initial != nil {
		m.writeState()
	}
	return m
}

// Controller returns the controller driven by the model.
func (m Model) Controller() *browser.Controller {
	return m.ctrl
}

// Close cancels outstanding fetches and the state file watch.
func (m Model) Close() {
	m.cancel()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		FetchCmd(m.ctx, m.fetcher, m.initial),
		WatchStateCmd(m.ctx, m.stateFile),
		WaitForEventCmd(m.ctx, m.events),
	}
	if m.spinning {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case CatalogMsg:
		if err := m.ctrl.HandleResponse(msg.Token, msg.Resp, msg.Err); err != nil {
			log.Printf("warning: fetch %s failed after %s: %v", msg.Token, msg.Elapsed.Round(time.Millisecond), err)
		}
		m.sync()

	case spinner.TickMsg:
		if !m.ctrl.Coordinator().Awaiting() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		cmds = append(cmds, m.handleEvent(msg.Event), WaitForEventCmd(m.ctx, m.events))

	case StateChangedMsg:
		debug.Log("ui: state file changed: %q", msg.State)
		if cmd := m.issue(m.ctrl.RestoreViewState(msg.State)); cmd != nil {
			m.setStatus("View updated from state file", false)
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, WatchStateCmd(m.ctx, m.stateFile))

	case StateFileErrorMsg:
		m.setStatus("state file: "+msg.Err.Error(), true)
		cmds = append(cmds, WatchStateCmd(m.ctx, m.stateFile))

	case bookmarkSavedMsg:
		if msg.Err != nil {
			m.setStatus("bookmark: "+msg.Err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("Bookmarked %q", msg.Bookmark.Name), false)
		}

	case exportDoneMsg:
		if msg.Err != nil {
			m.setStatus("export: "+msg.Err.Error(), true)
		} else {
			m.setStatus("Snapshot written to "+msg.Path, false)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}
	if msg.String() == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Cancel, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	m.statusMsg = ""
	m.statusIsError = false

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Cancel):
		m.focused = focusTree
	case key.Matches(msg, m.keys.Scope):
		cmd = m.openInput(inputScope, "Scope: ", m.ctrl.Scope().Name())
	case key.Matches(msg, m.keys.DatasetNext):
		cmd = m.cycleWindow(filter.DatasetCreateSince, filter.NextChoice)
	case key.Matches(msg, m.keys.DatasetPrev):
		cmd = m.cycleWindow(filter.DatasetCreateSince, filter.PrevChoice)
	case key.Matches(msg, m.keys.BlockNext):
		cmd = m.cycleWindow(filter.BlockCreateSince, filter.NextChoice)
	case key.Matches(msg, m.keys.BlockPrev):
		cmd = m.cycleWindow(filter.BlockCreateSince, filter.PrevChoice)
	case key.Matches(msg, m.keys.FileNext):
		cmd = m.cycleWindow(filter.FileCreateSince, filter.NextChoice)
	case key.Matches(msg, m.keys.FilePrev):
		cmd = m.cycleWindow(filter.FileCreateSince, filter.PrevChoice)
	case key.Matches(msg, m.keys.Refresh):
		cmd = m.issue(m.ctrl.Fetch())
	case key.Matches(msg, m.keys.Copy):
		m.copyView()
	case key.Matches(msg, m.keys.Bookmark):
		if m.bookmarks == nil {
			m.setStatus("Bookmarks are not available", true)
			break
		}
		cmd = m.openInput(inputBookmark, "Bookmark name: ", "")
	case key.Matches(msg, m.keys.Export):
		cmd = m.exportSnapshot()
	case key.Matches(msg, m.keys.Focus):
		if m.showDetails || m.focused == focusDetail {
			m.toggleFocus()
		}
	case key.Matches(msg, m.keys.ToggleDetail):
		m.showDetails = !m.showDetails
		if !m.showDetails {
			m.focused = focusTree
		}
		m.resize(m.width, m.height)
	default:
		if n, save, ok := quickViewKey(msg.String()); ok {
			cmd = m.quickView(n, save)
		} else if m.focused == focusDetail {
			m.viewport, cmd = m.viewport.Update(msg)
		} else {
			m.handleTreeKey(msg)
		}
	}

	m.refreshDetail()
	return m, cmd
}

func (m *Model) handleTreeKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.Top):
		m.tree.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.tree.JumpToBottom()
	case key.Matches(msg, m.keys.Toggle):
		m.tree.ToggleExpand()
	case key.Matches(msg, m.keys.Child):
		m.tree.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Parent):
		m.tree.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.JumpParent):
		m.tree.JumpToParent()
	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandAll()
	case key.Matches(msg, m.keys.CollapseAll):
		m.tree.CollapseAll()
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.closeInput()
		switch mode {
		case inputScope:
			return m, m.applyScopeInput(value)
		case inputBookmark:
			if value == "" {
				return m, nil
			}
			return m, saveBookmarkCmd(m.ctx, m.bookmarks, value, m.ctrl.ViewState())
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) openInput(mode inputMode, prompt, value string) tea.Cmd {
	m.inputMode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.Reset()
}

// applyScopeInput handles a line from the scope prompt. A view-state line
// restores scope and windows together.
func (m *Model) applyScopeInput(value string) tea.Cmd {
	scope, rest := ParseScopeInput(value)
	if scope.IsZero() && rest == "" {
		return nil
	}
	var req *browser.Request
	if strings.Contains(value, "=") {
		req = m.ctrl.RestoreViewState(value)
	} else {
		req = m.ctrl.SetScopeTo(scope)
	}
	if req == nil {
		m.setStatus("View unchanged", false)
		m.sync()
		return nil
	}
	return m.issue(req)
}

func (m *Model) cycleWindow(k filter.Key, step func(filter.Window) filter.Window) tea.Cmd {
	w := step(m.ctrl.Filters().Get(k))
	cmd := m.issue(m.ctrl.OnFilterChanged(k, w))
	m.setStatus(fmt.Sprintf("%s: %s", k.Label(), w), false)
	return cmd
}

// quickViewKey maps "1".."9" to opening and "alt+1".."alt+9" to saving a
// quick view.
func quickViewKey(s string) (n int, save bool, ok bool) {
	if rest, found := strings.CutPrefix(s, "alt+"); found {
		s, save = rest, true
	}
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false, false
	}
	return int(s[0] - '0'), save, true
}

func (m *Model) quickView(n int, save bool) tea.Cmd {
	if save {
		m.cfg.SetQuickView(n, m.ctrl.ViewState())
		if m.configPath != "" {
			if err := config.SaveTo(m.cfg, m.configPath); err != nil {
				m.setStatus("saving quick view: "+err.Error(), true)
				return nil
			}
		}
		m.setStatus(fmt.Sprintf("Quick view %d saved", n), false)
		return nil
	}

	state := m.cfg.QuickView(n)
	if state == "" {
		m.setStatus(fmt.Sprintf("Quick view %d is empty (alt+%d saves one)", n, n), false)
		return nil
	}
	cmd := m.issue(m.ctrl.RestoreViewState(state))
	if cmd == nil {
		m.setStatus(fmt.Sprintf("Quick view %d is already shown", n), false)
	}
	return cmd
}

func (m *Model) copyView() {
	state := m.ctrl.ViewState()
	if state == "" {
		m.setStatus("Nothing to copy", true)
		return
	}
	if err := clipboard.WriteAll(state); err != nil {
		m.setStatus("clipboard: "+err.Error(), true)
		return
	}
	m.setStatus("Copied: "+state, false)
}

func (m *Model) exportSnapshot() tea.Cmd {
	root := m.ctrl.Tree()
	if root == nil || root.Empty() {
		m.setStatus("Nothing to export", true)
		return nil
	}
	name := "dbw-" + m.now().Format("20060102-150405") + ".svg"
	title := m.ctrl.ViewState()
	return exportCmd(root, filepath.Join(m.exportDir, name), title)
}

func (m *Model) toggleFocus() {
	if m.focused == focusTree {
		m.focused = focusDetail
	} else {
		m.focused = focusTree
	}
}

// issue starts req (nil means the controller did not refetch) and keeps
// the view and the state file in step with the controller.
func (m *Model) issue(req *browser.Request) tea.Cmd {
	m.sync()
	if req == nil {
		return nil
	}
	m.writeState()
	return FetchCmd(m.ctx, m.fetcher, req)
}

// handleEvent reacts to a controller event. A fetch without a scope opens
// the scope prompt.
func (m *Model) handleEvent(e browser.Event) tea.Cmd {
	debug.Log("ui: event %s scope=%q token=%s", e.Kind, e.Scope.Name(), e.Token)
	m.sync()
	switch e.Kind {
	case browser.FetchStarted:
		if !m.spinning && m.ctrl.Coordinator().Awaiting() {
			m.spinning = true
			return m.spinner.Tick
		}
	case browser.FetchFailed:
		if e.Err != nil {
			m.setStatus("fetch failed: "+e.Err.Error(), true)
		}
	case browser.NeedArguments:
		if m.inputMode == inputNone {
			m.setStatus("Enter a dataset or block to browse", false)
			return m.openInput(inputScope, "Scope: ", "")
		}
	}
	return nil
}

// sync pulls the controller's tree and status into the view.
func (m *Model) sync() {
	if scope := m.ctrl.Scope(); scope != m.lastScope {
		m.tree.Forget()
		m.lastScope = scope
	}
	if root := m.ctrl.Tree(); root != m.tree.Root() {
		m.tree.Build(root)
		m.detailDirty = true
	}
	status, _ := m.ctrl.Status()
	m.tree.SetEmptyText(status)
	m.refreshDetail()
}

func (m *Model) writeState() {
	if m.stateFile == nil {
		return
	}
	if err := m.stateFile.Write(m.ctrl.ViewState()); err != nil {
		log.Printf("warning: writing state file: %v", err)
	}
}

func (m *Model) refreshDetail() {
	n := m.tree.SelectedNode()
	if n == m.detailNode && !m.detailDirty {
		return
	}
	m.detailNode = n
	m.detailDirty = false
	content, err := m.renderer.Render(NodeMarkdown(n, m.now()))
	if err != nil {
		content = err.Error()
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m *Model) setStatus(s string, isErr bool) {
	m.statusMsg = s
	m.statusIsError = isErr
}

func (m Model) bodyHeight() int {
	h := m.height - 3 // header, filter bar, footer
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.input.Width = width - 20
	m.isSplitView = width > SplitViewThreshold && m.showDetails

	body := m.bodyHeight()
	if m.isSplitView {
		avail := width - 4 // two bordered panels
		treeW := int(float64(avail) * m.splitRatio)
		detailW := avail - treeW
		m.tree.SetSize(treeW, body-2)
		m.viewport = viewport.New(detailW, body-2)
		m.renderer.SetWidth(detailW)
	} else {
		m.tree.SetSize(width, body)
		m.viewport = viewport.New(width, body)
		m.renderer.SetWidth(width)
	}
	m.detailDirty = true
	m.refreshDetail()
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var body string
	switch {
	case m.showHelp:
		body = m.renderHelpOverlay()
	case m.isSplitView:
		body = m.renderSplitView()
	case m.focused == focusDetail:
		body = m.viewport.View()
	default:
		body = m.tree.View()
	}

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderFilterBar(),
		body,
		m.renderFooter(),
	))
}

func (m Model) renderSplitView() string {
	treeStyle, detailStyle := FocusedPanelStyle, PanelStyle
	if m.focused == focusDetail {
		treeStyle, detailStyle = PanelStyle, FocusedPanelStyle
	}
	panelHeight := m.bodyHeight() - 2

	treeView := treeStyle.
		Width(m.tree.width).
		Height(panelHeight).
		MaxHeight(panelHeight + 2).
		Render(m.tree.View())
	detailView := detailStyle.
		Width(m.viewport.Width).
		Height(panelHeight).
		MaxHeight(panelHeight + 2).
		Render(m.viewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, treeView, detailView)
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.Renderer.NewStyle().
		Background(ThemeBg("#BD93F9")).
		Foreground(ThemeFg("#282A36")).
		Bold(true).
		Padding(0, 1).
		Render("dbw")

	status, ok := m.ctrl.Status()
	statusStyle := t.SecondaryText
	if !ok {
		statusStyle = t.ErrorText
	}

	spin := "  "
	if m.ctrl.Coordinator().Awaiting() {
		spin = m.spinner.View()
	}
	line := title + " " + spin + " " + statusStyle.Render(truncate(status, m.width-8))
	return lipgloss.NewStyle().Width(m.width).MaxHeight(1).Render(line)
}

func (m Model) renderFilterBar() string {
	t := m.theme
	keys := filter.RecognizedKeys
	if m.cfg.Experimental.FileFilter {
		keys = filter.AllKeys
	}
	filters := m.ctrl.Filters()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		w := filters.Get(k)
		style := t.MutedText
		if w.IsSet() {
			style = t.PrimaryBold
		}
		parts = append(parts, t.MutedText.Render(k.Label()+": ")+style.Render(w.String()))
	}
	return lipgloss.NewStyle().Width(m.width).MaxHeight(1).Render(strings.Join(parts, t.MutedText.Render("  │  ")))
}

func (m Model) renderFooter() string {
	t := m.theme
	switch {
	case m.inputMode != inputNone:
		return m.input.View() + "  " + RenderKeyHints("enter", "apply", "esc", "cancel")
	case m.statusMsg != "":
		if m.statusIsError {
			return t.ErrorText.Render(truncate(m.statusMsg, m.width))
		}
		return t.SecondaryText.Render(truncate(m.statusMsg, m.width))
	default:
		return m.help.View(m.keys)
	}
}
