package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/services"
	"github.com/desertthunder/downcida/internal/tasks"
)

// HistoryAdapter stores orchestrated downloads through a [DownloadRepository].
type HistoryAdapter struct {
	repo *DownloadRepository
}

var _ tasks.HistoryRecorder = (*HistoryAdapter)(nil)

// NewHistoryAdapter wraps repo as a [tasks.HistoryRecorder].
func NewHistoryAdapter(repo *DownloadRepository) *HistoryAdapter {
	return &HistoryAdapter{repo: repo}
}

// Start creates a pending record for req and returns its ID.
func (h *HistoryAdapter) Start(ctx context.Context, req models.DownloadRequest) (string, error) {
	record := models.NewDownloadRecord(0, req)
	if err := h.repo.Create(record); err != nil {
		return "", err
	}
	return record.ID(), nil
}

// Finish marks the record completed or failed. The error kind is taken from a [services.DownloadError] when present.
func (h *HistoryAdapter) Finish(ctx context.Context, id string, handle *models.JobHandle, result *models.DownloadResult, elapsed time.Duration, err error) error {
	record, getErr := h.repo.Get(id)
	if getErr != nil {
		return getErr
	}

	if handle != nil {
		record.AttachHandle(*handle)
	}

	switch {
	case err != nil:
		kind, message := "error", err.Error()
		var de *services.DownloadError
		if errors.As(err, &de) {
			kind, message = de.Kind.String(), de.Message
		}
		record.Fail(kind, message, elapsed)
	case result != nil:
		record.Complete(result)
	}

	return h.repo.Update(record)
}
