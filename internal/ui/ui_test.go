package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/tasks"
)

type fakeDownloader struct {
	fail  map[string]error
	calls []string
}

func (f *fakeDownloader) Download(ctx context.Context, req models.DownloadRequest, progress chan<- tasks.ProgressUpdate) (*models.DownloadResult, error) {
	f.calls = append(f.calls, req.TrackID)
	progress <- tasks.ProgressUpdate{Phase: tasks.Submit, Message: "Submitting..."}
	progress <- tasks.ProgressUpdate{Phase: tasks.Download, Data: tasks.TransferProgress{BytesWritten: 5, TotalBytes: 10}}
	if err := f.fail[req.TrackID]; err != nil {
		return nil, err
	}
	return &models.DownloadResult{FilePath: "/music/" + req.TrackID + ".flac", Bytes: 2048}, nil
}

// drive feeds each command's message back into the model until no command remains.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 100 {
			t.Fatal("model did not settle")
		}
		_, cmd = m.Update(cmd())
	}
}

func newTestModel(engine tasks.Downloader, tracks ...string) *Model {
	reqs := make([]models.DownloadRequest, 0, len(tracks))
	for _, id := range tracks {
		reqs = append(reqs, models.NewDownloadRequest(id, "/music", "", models.FormatFLAC))
	}
	return NewModel(context.Background(), engine, reqs, log.New(io.Discard))
}

func TestModel(t *testing.T) {
	t.Run("Downloads Sequentially", func(t *testing.T) {
		engine := &fakeDownloader{}
		m := newTestModel(engine, "a", "b")

		drive(t, m, m.next())

		if !m.finished {
			t.Fatal("expected session to finish")
		}
		if len(m.Results()) != 2 {
			t.Fatalf("expected 2 results, got %d", len(m.Results()))
		}
		if strings.Join(engine.calls, ",") != "a,b" {
			t.Errorf("unexpected call order %v", engine.calls)
		}

		view := m.View()
		if !strings.Contains(view, "/music/a.flac") || !strings.Contains(view, "✓ 2 downloaded") {
			t.Errorf("unexpected view:\n%s", view)
		}
	})

	t.Run("Shows Failures And Retries", func(t *testing.T) {
		engine := &fakeDownloader{fail: map[string]error{"b": errors.New("job_failed: boom")}}
		m := newTestModel(engine, "a", "b")

		drive(t, m, m.next())

		view := m.View()
		if !strings.Contains(view, "✗ b: job_failed: boom") || !strings.Contains(view, "1 downloaded, 1 failed") {
			t.Errorf("unexpected view:\n%s", view)
		}

		delete(engine.fail, "b")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
		drive(t, m, cmd)

		results := m.Results()
		if len(results) != 2 || results[1].Request.TrackID != "b" || results[1].Error != nil {
			t.Errorf("expected the retry to replace the failure, got %+v", results)
		}
		if !strings.Contains(m.View(), "✓ 2 downloaded") {
			t.Errorf("expected summary to count the retry:\n%s", m.View())
		}
	})

	t.Run("Renders Progress Bar", func(t *testing.T) {
		m := newTestModel(&fakeDownloader{}, "a")
		m.current = &run{index: 0}
		m.update = tasks.ProgressUpdate{Phase: tasks.Download, Message: "Downloaded 5 B of 10 B", Data: tasks.TransferProgress{BytesWritten: 5, TotalBytes: 10}}

		view := m.View()
		if !strings.Contains(view, "50%") {
			t.Errorf("expected percentage in view:\n%s", view)
		}
	})

	t.Run("Quit Cancels Context", func(t *testing.T) {
		m := newTestModel(&fakeDownloader{}, "a")

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if m.ctx.Err() == nil {
			t.Error("expected context to be cancelled")
		}
	})
}
