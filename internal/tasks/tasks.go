// package tasks sequences the submit, poll and download phases of a conversion into one call.
//
// DownloadEngine times the whole sequence, reports progress through a channel for CLI/UI layers,
// and records each attempt in an optional history store.
package tasks

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/services"
)

// JobClient is the remote side of a download. [services.Client] implements it.
type JobClient interface {
	Submit(ctx context.Context, trackID, region, profile string) (*models.JobHandle, error)
	WaitForCompletion(ctx context.Context, handle models.JobHandle, onProgress services.ProgressFunc) error
	Fetch(ctx context.Context, handle models.JobHandle, dir string, format models.AudioFormat, onProgress services.ProgressFunc) (string, int64, error)
}

// HistoryRecorder persists download attempts.
//
// Errors from a recorder are logged and never fail the download.
type HistoryRecorder interface {
	Start(ctx context.Context, req models.DownloadRequest) (string, error)
	Finish(ctx context.Context, id string, handle *models.JobHandle, result *models.DownloadResult, elapsed time.Duration, err error) error
}

// Downloader defines the single orchestrated operation.
type Downloader interface {
	// Download submits req, waits for the job, and streams the file into req.DestinationDir.
	Download(ctx context.Context, req models.DownloadRequest, progress chan<- ProgressUpdate) (*models.DownloadResult, error)
}

// DownloadEngine implements Downloader on top of a [JobClient].
type DownloadEngine struct {
	client  JobClient
	history HistoryRecorder
	logger  *log.Logger
	sniff   bool
	now     func() time.Time
}

// NewDownloadEngine creates a DownloadEngine. A nil logger discards output.
func NewDownloadEngine(client JobClient, logger *log.Logger) *DownloadEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DownloadEngine{client: client, logger: logger, sniff: true, now: time.Now}
}

// WithHistory sets the recorder used for every download.
func (e *DownloadEngine) WithHistory(h HistoryRecorder) *DownloadEngine {
	e.history = h
	return e
}

// WithSniffing toggles content detection of finished files.
func (e *DownloadEngine) WithSniffing(enabled bool) *DownloadEngine {
	e.sniff = enabled
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *DownloadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Download runs the three phases in order. Component errors are returned as-is, so callers can
// inspect them with [services.KindOf] or errors.Is against the shared sentinels.
func (e *DownloadEngine) Download(ctx context.Context, req models.DownloadRequest, progress chan<- ProgressUpdate) (*models.DownloadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := e.now()
	recordID := e.startRecord(ctx, req)

	var handle *models.JobHandle
	fail := func(err error) (*models.DownloadResult, error) {
		elapsed := e.now().Sub(start)
		e.logger.Error("download failed", "track", req.TrackID, "error", err, "elapsed", elapsed)
		e.finishRecord(ctx, recordID, handle, nil, elapsed, err)
		return nil, err
	}

	e.sendProgress(progress, submitUpdate(req))
	handle, err := e.client.Submit(ctx, req.TrackID, req.Region, req.Format.Profile())
	if err != nil {
		return fail(err)
	}
	e.logger.Info("submitted", "track", req.TrackID, "handoff", handle.HandoffID, "server", handle.ServerName)

	e.sendProgress(progress, submittedUpdate(handle))
	err = e.client.WaitForCompletion(ctx, *handle, func(ev services.ProgressEvent) {
		if ev.Kind == services.EventPending {
			e.sendProgress(progress, pendingUpdate(ev.Attempt))
		}
	})
	if err != nil {
		return fail(err)
	}
	e.logger.Info("completed", "track", req.TrackID, "handoff", handle.HandoffID)

	e.sendProgress(progress, downloadStartUpdate(handle))
	path, written, err := e.client.Fetch(ctx, *handle, req.DestinationDir, req.Format, func(ev services.ProgressEvent) {
		if ev.Kind == services.EventChunk {
			e.sendProgress(progress, chunkUpdate(ev.BytesWritten, ev.TotalBytes))
		}
	})
	if err != nil {
		return fail(err)
	}

	result := &models.DownloadResult{
		FilePath: path,
		Elapsed:  e.now().Sub(start),
		Bytes:    written,
		Handle:   *handle,
	}
	if e.sniff {
		result.ContentType = e.detect(path)
	}

	e.logger.Info("downloaded", "track", req.TrackID, "path", path, "bytes", written, "elapsed", result.Elapsed)
	e.finishRecord(ctx, recordID, handle, result, result.Elapsed, nil)
	e.sendProgress(progress, completeUpdate(result))
	return result, nil
}

// detect sniffs the file's MIME type, warning when it does not look like audio.
func (e *DownloadEngine) detect(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		e.logger.Warn("could not detect content type", "path", path, "error", err)
		return ""
	}
	if !strings.HasPrefix(mtype.String(), "audio/") {
		e.logger.Warn("downloaded file does not look like audio", "path", path, "content_type", mtype.String())
	}
	return mtype.String()
}

func (e *DownloadEngine) startRecord(ctx context.Context, req models.DownloadRequest) string {
	if e.history == nil {
		return ""
	}
	id, err := e.history.Start(ctx, req)
	if err != nil {
		e.logger.Warn("could not record download", "track", req.TrackID, "error", err)
		return ""
	}
	return id
}

func (e *DownloadEngine) finishRecord(ctx context.Context, id string, handle *models.JobHandle, result *models.DownloadResult, elapsed time.Duration, err error) {
	if e.history == nil || id == "" {
		return
	}
	if recErr := e.history.Finish(context.WithoutCancel(ctx), id, handle, result, elapsed, err); recErr != nil {
		e.logger.Warn("could not update download record", "id", id, "error", recErr)
	}
}
