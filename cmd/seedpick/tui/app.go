package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"seedpick/pkg/filetree"
	"seedpick/pkg/logging"
	"seedpick/pkg/session"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateLoading AppState = iota
	StateBrowsing
	StateError
)

// Options configures the TUI application.
type Options struct {
	Client          *session.Client
	TorrentID       int
	RefreshInterval time.Duration
	RPCTimeout      time.Duration
}

// Model is the main Bubble Tea model for the seedpick TUI.
type Model struct {
	state   AppState
	options Options

	tree  *filetree.Tree
	view  *FilesView
	log   *logging.Logger
	title string

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model
	loadErr error
	status  string

	// Window dimensions
	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Second
	}
	if opts.RPCTimeout <= 0 {
		opts.RPCTimeout = 10 * time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	t := filetree.New()
	return Model{
		state:   StateLoading,
		options: opts,
		tree:    t,
		view:    NewFilesView(t),
		log:     logging.Get("tui"),
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetch(true),
	)
}

// snapshotMsg carries one fetched file snapshot.
type snapshotMsg struct {
	files         *session.TorrentFiles
	err           error
	authoritative bool
}

// refreshTickMsg triggers the next routine progress poll.
type refreshTickMsg struct{}

// persistDoneMsg reports the outcome of a remote selection edit.
type persistDoneMsg struct {
	err error
}

// fetch returns a command that retrieves the torrent's file snapshot.
func (m Model) fetch(authoritative bool) tea.Cmd {
	client := m.options.Client
	id := m.options.TorrentID
	timeout := m.options.RPCTimeout
	ctx := m.ctx
	return func() tea.Msg {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		files, err := client.FetchFiles(callCtx, id)
		return snapshotMsg{files: files, err: err, authoritative: authoritative}
	}
}

// scheduleRefresh returns a command for the next routine poll.
func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.options.RefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state == StateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case snapshotMsg:
		return m.applySnapshot(msg)

	case refreshTickMsg:
		return m, m.fetch(false)

	case persistDoneMsg:
		if msg.err != nil {
			m.status = "edit failed: " + msg.err.Error()
			m.log.Warn("remote edit failed", "error", msg.err)
		}
		return m, nil
	}

	return m, nil
}

// applySnapshot folds a fetched snapshot into the tree.
func (m Model) applySnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.state == StateLoading {
			m.state = StateError
			m.loadErr = msg.err
			return m, nil
		}
		// A transient poll failure should not tear down the view.
		m.status = "refresh failed: " + msg.err.Error()
		return m, m.scheduleRefresh()
	}

	contextChanged := msg.authoritative
	m.tree.ApplySnapshot(msg.files.Entries, contextChanged)
	if contextChanged {
		m.options.Client.MarkAuthoritative()
	}
	m.title = msg.files.Name

	if m.state != StateBrowsing {
		m.state = StateBrowsing
		m.tree.Root().ExpandAll()
	}
	m.view.Rebuild()
	m.status = ""
	return m, m.scheduleRefresh()
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateLoading:
		if key == "q" || key == "esc" {
			m.cancel()
			return m, tea.Quit
		}

	case StateError:
		switch key {
		case "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "r":
			m.state = StateLoading
			m.loadErr = nil
			return m, tea.Batch(m.spinner.Tick, m.fetch(true))
		}

	case StateBrowsing:
		return m.handleBrowsingKey(key)
	}

	return m, nil
}

// handleBrowsingKey handles input while the tree is on screen.
func (m Model) handleBrowsingKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit

	case "up", "k":
		m.view.MoveUp()
	case "down", "j":
		m.view.MoveDown()
	case "g", "home":
		m.view.MoveTop()
	case "G", "end":
		m.view.MoveBottom()

	case "enter", "right", "l", "left", "h":
		m.view.Toggle()
	case "e":
		m.view.ExpandAll()
	case "c":
		m.view.CollapseAll()

	case " ":
		return m.twiddleWanted()
	case "p":
		return m.twiddlePriority()
	case "o":
		return m.openCurrent()

	case "r":
		m.status = "refreshing..."
		return m, m.fetch(true)
	}

	return m, nil
}

// twiddleWanted toggles the wanted state of the node under the cursor and
// persists the changed files remotely.
func (m Model) twiddleWanted() (tea.Model, tea.Cmd) {
	n := m.view.Current()
	if n == nil {
		return m, nil
	}
	// Decide the target before editing so the remote call matches what the
	// tree just applied.
	target := n.SubtreeWanted() != filetree.Checked
	changed := m.tree.SetWanted([]*filetree.Node{n}, target)
	if changed.IsEmpty() {
		return m, nil
	}
	m.view.RebuildIfDirty()

	client := m.options.Client
	id := m.options.TorrentID
	timeout := m.options.RPCTimeout
	ctx := m.ctx
	return m, func() tea.Msg {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return persistDoneMsg{err: client.SetWanted(callCtx, id, changed, target)}
	}
}

// twiddlePriority cycles the priority of the node under the cursor,
// Normal -> High -> Low, resetting mixed subtrees to Normal.
func (m Model) twiddlePriority() (tea.Model, tea.Cmd) {
	n := m.view.Current()
	if n == nil {
		return m, nil
	}
	var next filetree.Priority
	switch n.PriorityMask() {
	case filetree.MaskNormal:
		next = filetree.PriorityHigh
	case filetree.MaskHigh:
		next = filetree.PriorityLow
	default:
		next = filetree.PriorityNormal
	}
	changed := m.tree.SetPriority([]*filetree.Node{n}, next)
	if changed.IsEmpty() {
		return m, nil
	}
	m.view.RebuildIfDirty()

	client := m.options.Client
	id := m.options.TorrentID
	timeout := m.options.RPCTimeout
	ctx := m.ctx
	return m, func() tea.Msg {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return persistDoneMsg{err: client.SetPriority(callCtx, id, changed, next)}
	}
}

// openCurrent hands a fully-downloaded file to the OS opener.
func (m Model) openCurrent() (tea.Model, tea.Cmd) {
	n := m.view.Current()
	if n == nil {
		return m, nil
	}
	path, ok := m.tree.Open(n)
	if !ok {
		m.status = "not a complete file"
		return m, nil
	}

	m.status = "opening " + path
	return m, func() tea.Msg {
		return persistDoneMsg{err: openWithOS(path)}
	}
}

// openWithOS launches the platform file opener.
func openWithOS(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateLoading:
		return fmt.Sprintf("\n  %s Loading torrent files...\n\n  %s\n",
			m.spinner.View(),
			mutedTextStyle.Render("press q to cancel"))

	case StateError:
		return fmt.Sprintf("\n  %s\n\n  %s\n",
			errorTextStyle.Render("Error: "+m.loadErr.Error()),
			mutedTextStyle.Render("r to retry, q to quit"))

	case StateBrowsing:
		return m.renderBrowsing()
	}
	return ""
}

// renderBrowsing renders the header, the tree window, and the footer.
func (m Model) renderBrowsing() string {
	contentWidth := m.width - 2

	root := m.tree.Root()
	header := fmt.Sprintf("%s  %s",
		titleStyle.Render(m.title),
		mutedTextStyle.Render(fmt.Sprintf("%d files, %s, %.0f%% done",
			m.tree.Len(),
			humanize.IBytes(root.Size()),
			root.Progress()*100)))

	// Header and divider, footer hint line and divider.
	treeHeight := m.height - 5
	if treeHeight < 1 {
		treeHeight = 1
	}

	var b strings.Builder
	b.WriteString(" " + header + "\n")
	b.WriteString(renderDivider(contentWidth) + "\n")
	b.WriteString(m.view.View(contentWidth, treeHeight) + "\n")
	b.WriteString(renderDivider(contentWidth) + "\n")
	b.WriteString(" " + m.renderFooter())
	return b.String()
}

// renderFooter renders key hints and the transient status.
func (m Model) renderFooter() string {
	hints := []struct{ key, desc string }{
		{"space", "get"},
		{"p", "priority"},
		{"enter", "fold"},
		{"o", "open"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyStyle.Render(h.key)+" "+keyDescStyle.Render(h.desc))
	}
	line := strings.Join(parts, "  ")
	if m.status != "" {
		line += "  " + statusTextStyle.Render(m.status)
	}
	return line
}

// Run starts the TUI application.
func Run(opts Options) error {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
