// Package ui implements a terminal progress monitor for ingestion runs using
// bubbletea's Elm architecture.
//
// The [Model] implements the standard Init/Update/View pattern. Progress
// updates flow through a channel from the IngestEngine, providing
// non-blocking status reporting while slices load, the catalog is queried,
// aggregates are computed and the range is committed.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tannerfalls/playlistdb/internal/tasks"
)

type progressUpdateMsg tasks.ProgressUpdate

type ingestCompleteMsg struct {
	result *tasks.IngestResult
	err    error
}

// keyMap defines the key bindings for the progress monitor.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.quit}} }

// Model represents the ingest monitor state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	engine       *tasks.IngestEngine
	opts         tasks.IngestOpts
	progressChan chan tasks.ProgressUpdate
	current      tasks.ProgressUpdate
	result       *tasks.IngestResult
	err          error
	finished     bool
	width        int
	spinner      spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a monitor that will run engine with opts when started.
func NewModel(ctx context.Context, engine *tasks.IngestEngine, opts tasks.IngestOpts) *Model {
	runCtx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.warn

	return &Model{
		ctx:          runCtx,
		cancel:       cancel,
		engine:       engine,
		opts:         opts,
		progressChan: make(chan tasks.ProgressUpdate, 64),
		spinner:      sp,
		bar:          progress.New(progress.WithDefaultGradient()),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Result returns the run outcome once the program has exited.
func (m *Model) Result() (*tasks.IngestResult, error) {
	return m.result, m.err
}

// Init starts the run and begins listening for progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startIngest(), m.waitForProgress())
}

func (m *Model) startIngest() tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Run(m.ctx, m.progressChan, m.opts)
		close(m.progressChan)
		return ingestCompleteMsg{result: result, err: err}
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-m.progressChan; ok {
			return progressUpdateMsg(update)
		}
		return nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			if m.finished {
				return m, tea.Quit
			}
			// cancel the run; the complete message will follow
			m.cancel()
			return m, nil
		}
		return m, nil

	case progressUpdateMsg:
		m.current = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case ingestCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the monitor.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("playlistdb ingest"))
	b.WriteString("\n")

	if m.finished {
		b.WriteString(m.renderResult())
		return b.String()
	}

	phase := m.current.Phase.String()
	if phase == "" {
		phase = "starting"
	}
	b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), styles.warn.Render(phase)))
	b.WriteString("\n")

	if m.current.Message != "" {
		b.WriteString(m.current.Message)
		b.WriteString("\n")
	}

	if m.current.Total > 0 {
		percent := float64(m.current.Step) / float64(m.current.Total)
		b.WriteString(m.bar.ViewAs(percent))
		b.WriteString(fmt.Sprintf(" %d/%d", m.current.Step, m.current.Total))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Ingest failed: %v", m.err)) + "\n"
	}

	r := m.result
	var b strings.Builder
	b.WriteString(styles.ok.Render("Ingest complete"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Run ID:      %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("  PID range:   %d-%d\n", r.MinPID, r.MaxPID))
	b.WriteString(fmt.Sprintf("  Playlists:   %d (%d empty)\n", r.Playlists, r.EmptyPlaylists))
	b.WriteString(fmt.Sprintf("  Tracks:      %d unique, %d fetched, %d purged\n", r.UniqueTracks, r.FetchedTracks, r.PurgedTracks))
	b.WriteString(fmt.Sprintf("  Artists:     %d fetched\n", r.FetchedArtists))
	b.WriteString(fmt.Sprintf("  Duration:    %s\n", r.Duration))
	return b.String()
}

// Run starts the bubbletea program and blocks until it exits, returning the
// run outcome.
func Run(ctx context.Context, engine *tasks.IngestEngine, opts tasks.IngestOpts) (*tasks.IngestResult, error) {
	model := NewModel(ctx, engine, opts)
	program := tea.NewProgram(model)

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("running progress monitor: %w", err)
	}

	if m, ok := final.(*Model); ok {
		return m.Result()
	}
	return model.Result()
}
