package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/repositories"
	"github.com/desertthunder/downcida/internal/shared"
	"github.com/desertthunder/downcida/internal/tasks"
	"github.com/desertthunder/downcida/internal/ui"
)

const tuiLogPath = "./tmp/downcida-tui.log"

// runTUI downloads reqs inside the interactive terminal UI and returns the per-track outcomes.
func (r *Runner) runTUI(ctx context.Context, reqs []models.DownloadRequest, repo *repositories.DownloadRepository) ([]tasks.BatchItem, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.engine(repo), reqs, fileLogger)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return model.Results(), fmt.Errorf("error running TUI: %w", err)
	}

	return model.Results(), nil
}
