package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/services"
	"github.com/desertthunder/downcida/internal/shared"
	"github.com/desertthunder/downcida/internal/tasks"
)

// downloadOutput is the JSON shape of one download.
type downloadOutput struct {
	Track       string `json:"track"`
	Path        string `json:"path,omitempty"`
	Bytes       int64  `json:"bytes,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Handoff     string `json:"handoff,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
}

// Download converts and downloads each track argument in order.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	reqs, err := r.downloadRequests(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(reqs[0].DestinationDir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %v", shared.ErrIO, err)
	}

	db, repo, err := r.openHistory()
	if err != nil {
		r.logger.Warn("download history disabled", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	if cmd.Bool("tui") {
		items, err := r.runTUI(ctx, reqs, repo)
		if err != nil {
			return err
		}
		return batchError(items)
	}

	var progress chan tasks.ProgressUpdate
	var observed chan struct{}
	if !cmd.Bool("no-progress") && !cmd.Bool("json") {
		progress = make(chan tasks.ProgressUpdate, 64)
		observed = make(chan struct{})
		go func() {
			newProgressObserver(r.status).observe(progress)
			close(observed)
		}()
	}

	result, runErr := r.engine(repo).DownloadAll(ctx, reqs, progress)

	if progress != nil {
		close(progress)
		<-observed
	}

	if cmd.Bool("json") {
		outputs := make([]downloadOutput, 0, len(result.Items))
		for _, item := range result.Items {
			outputs = append(outputs, toDownloadOutput(item))
		}
		if err := r.writeJSON(outputs, true); err != nil {
			return err
		}
	} else {
		for _, item := range result.Items {
			r.writeItem(item.Request, item.Result, item.Error)
		}
	}

	if err := batchError(result.Items); err != nil {
		return err
	}
	return runErr
}

// downloadRequests parses track arguments and flags, falling back to the [download] config section.
func (r *Runner) downloadRequests(cmd *cli.Command) ([]models.DownloadRequest, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one track is required", shared.ErrMissingArgument)
	}

	dir := cmd.String("output")
	if dir == "" {
		dir = r.config.Download.OutputDir
	}
	region := cmd.String("region")
	if region == "" {
		region = r.config.Download.Region
	}
	formatName := cmd.String("format")
	if formatName == "" {
		formatName = r.config.Download.Format
	}

	format, err := models.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	reqs := make([]models.DownloadRequest, 0, len(args))
	for _, arg := range args {
		trackID, err := services.ParseTrackID(arg)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, models.NewDownloadRequest(trackID, dir, region, format))
	}
	return reqs, nil
}

func (r *Runner) writeItem(req models.DownloadRequest, result *models.DownloadResult, err error) {
	if err != nil {
		r.writePlain("✗ %s: %v\n", req.TrackID, err)
		return
	}
	r.writePlain("✓ %s (%s, %s)\n", result.FilePath, humanize.Bytes(uint64(result.Bytes)), shared.FormatElapsed(result.Elapsed))
}

func toDownloadOutput(item tasks.BatchItem) downloadOutput {
	out := downloadOutput{Track: item.Request.TrackID}
	if item.Error != nil {
		out.Error = item.Error.Error()
		if kind, ok := services.KindOf(item.Error); ok {
			out.ErrorKind = kind.String()
		}
		return out
	}
	out.Path = item.Result.FilePath
	out.Bytes = item.Result.Bytes
	out.ElapsedMS = item.Result.ElapsedMillis()
	out.ContentType = item.Result.ContentType
	out.Handoff = item.Result.Handle.HandoffID
	return out
}

// batchError returns the first failure, annotated with the failure count when several tracks ran.
func batchError(items []tasks.BatchItem) error {
	var first error
	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
			if first == nil {
				first = item.Error
			}
		}
	}

	switch {
	case failed == 0:
		return nil
	case len(items) == 1:
		return first
	default:
		return fmt.Errorf("%d of %d downloads failed: %w", failed, len(items), first)
	}
}
