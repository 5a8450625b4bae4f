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
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/shared"
	"github.com/desertthunder/downcida/internal/tasks"
)

// run is one in-flight download. result and err are written before progress is closed.
type run struct {
	index    int
	progress chan tasks.ProgressUpdate
	result   *models.DownloadResult
	err      error
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	session  string
	engine   tasks.Downloader
	logger   *log.Logger
	requests []models.DownloadRequest
	items    []tasks.BatchItem
	retried  map[int]bool // items superseded by a retry
	current  *run
	update   tasks.ProgressUpdate
	finished bool
	width    int
	spinner  spinner.Model
	bar      progress.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a TUI that downloads reqs one after another with engine.
func NewModel(ctx context.Context, engine tasks.Downloader, reqs []models.DownloadRequest, logger *log.Logger) *Model {
	ctx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = log.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:      ctx,
		cancel:   cancel,
		session:  shared.GenerateID(),
		engine:   engine,
		logger:   logger,
		requests: reqs,
		retried:  map[int]bool{},
		spinner:  sp,
		bar:      progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Results returns the outcome of every request processed so far. A retried failure reports its latest attempt.
func (m *Model) Results() []tasks.BatchItem {
	items := make([]tasks.BatchItem, 0, len(m.items))
	for i, item := range m.items {
		if !m.retried[i] {
			items = append(items, item)
		}
	}
	return items
}

// Init starts the first download.
func (m *Model) Init() tea.Cmd {
	m.logger.Info("tui session started", "session", m.session, "tracks", len(m.requests))
	return tea.Batch(m.spinner.Tick, m.next())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.retry) && m.finished:
			return m, m.retryFailed()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.update = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()

		case MsgDownloadComplete:
			outcome := msg.data.(downloadOutcome)
			m.items = append(m.items, tasks.BatchItem{
				Request: m.requests[outcome.index],
				Result:  outcome.result,
				Error:   outcome.err,
			})
			m.current = nil
			m.update = tasks.ProgressUpdate{}
			return m, m.next()
		}
	}

	return m, nil
}

// next starts the request after the last processed one, or marks the session finished.
func (m *Model) next() tea.Cmd {
	index := len(m.items)
	if index >= len(m.requests) || m.ctx.Err() != nil {
		m.finished = true
		m.logger.Info("tui session finished", "session", m.session, "downloads", len(m.items))
		return nil
	}

	r := &run{index: index, progress: make(chan tasks.ProgressUpdate, 64)}
	m.current = r

	go func() {
		r.result, r.err = m.engine.Download(m.ctx, m.requests[index], r.progress)
		close(r.progress)
	}()

	return m.waitForProgress()
}

// retryFailed queues failed requests again after the processed ones.
func (m *Model) retryFailed() tea.Cmd {
	var retry []models.DownloadRequest
	for i, item := range m.items {
		if item.Error != nil && !m.retried[i] {
			retry = append(retry, item.Request)
			m.retried[i] = true
		}
	}
	if len(retry) == 0 {
		return nil
	}

	m.requests = append(m.requests, retry...)
	m.finished = false
	return m.next()
}

func (m *Model) waitForProgress() tea.Cmd {
	r := m.current
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-r.progress
		if !ok {
			return downloadCompleteMsg(r.index, r.result, r.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the current download and the finished ones.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("downcida • %d/%d", min(len(m.items)+1, len(m.requests)), len(m.requests))))
	b.WriteString("\n")

	for _, item := range m.items {
		b.WriteString(renderItem(item))
		b.WriteString("\n")
	}

	if m.current != nil {
		b.WriteString("\n")
		b.WriteString(m.renderCurrent())
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString("\n")
		b.WriteString(m.renderSummary())
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.quit}))
	} else {
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return b.String()
}

func (m *Model) renderCurrent() string {
	req := m.requests[m.current.index]
	header := fmt.Sprintf("%s [%s]", req.TrackID, req.Format)

	switch m.update.Phase {
	case tasks.Download:
		tp, _ := m.update.Data.(tasks.TransferProgress)
		if tp.TotalBytes > 0 {
			return fmt.Sprintf("%s\n%s\n%s", header, m.bar.ViewAs(tp.Fraction()), styles.help.Render(m.update.Message))
		}
		return fmt.Sprintf("%s\n%s %s", header, m.spinner.View(), m.update.Message)
	case tasks.Complete:
		return fmt.Sprintf("%s\n%s", header, styles.ok.Render(m.update.Message))
	default:
		message := m.update.Message
		if message == "" {
			message = "Starting..."
		}
		return fmt.Sprintf("%s\n%s %s", header, m.spinner.View(), message)
	}
}

func (m *Model) renderSummary() string {
	var ok, failed int
	for _, item := range m.Results() {
		if item.Error != nil {
			failed++
		} else {
			ok++
		}
	}

	if failed == 0 {
		return styles.ok.Render(fmt.Sprintf("✓ %d downloaded", ok))
	}
	return styles.warn.Render(fmt.Sprintf("%d downloaded, %d failed", ok, failed))
}

func renderItem(item tasks.BatchItem) string {
	if item.Error != nil {
		return styles.err.Render(fmt.Sprintf("✗ %s: %v", item.Request.TrackID, item.Error))
	}
	return styles.ok.Render("✓ ") + fmt.Sprintf("%s (%s, %d ms)",
		item.Result.FilePath, humanize.Bytes(uint64(item.Result.Bytes)), item.Result.ElapsedMillis())
}
