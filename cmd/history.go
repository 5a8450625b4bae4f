package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/downcida/internal/formatter"
	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/repositories"
	"github.com/desertthunder/downcida/internal/shared"
)

// withHistory opens the history database for the duration of fn.
func (r *Runner) withHistory(fn func(repo *repositories.DownloadRepository) error) error {
	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: download history is disabled (database.enabled = false)", shared.ErrServiceUnavailable)
	}
	defer db.Close()
	return fn(repo)
}

func statusCriteria(status string) (map[string]any, error) {
	criteria := map[string]any{}
	if status == "" {
		return criteria, nil
	}
	if !models.RecordStatus(status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
	}
	criteria["status"] = status
	return criteria, nil
}

// HistoryList prints recent downloads, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	criteria, err := statusCriteria(cmd.String("status"))
	if err != nil {
		return err
	}
	if track := cmd.String("track"); track != "" {
		criteria["track_id"] = track
	}
	criteria["limit"] = int(cmd.Int("limit"))

	return r.withHistory(func(repo *repositories.DownloadRepository) error {
		records, err := repo.List(criteria)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(formatter.ToEntries(records), true)
		}

		if len(records) == 0 {
			return r.writePlain("No downloads recorded.\n")
		}
		for _, record := range records {
			r.writePlain("%s\n", formatter.FormatRecord(record))
		}
		return nil
	})
}

// HistoryExport writes the history to a file in the requested format.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	criteria, err := statusCriteria(cmd.String("status"))
	if err != nil {
		return err
	}

	return r.withHistory(func(repo *repositories.DownloadRepository) error {
		records, err := repo.List(criteria)
		if err != nil {
			return err
		}

		path, err := formatter.WriteExport(records, cmd.String("format"), cmd.String("output"))
		if err != nil {
			return err
		}

		r.logger.Info("exported history", "path", path, "records", len(records))
		return r.writePlain("✓ Exported %d downloads to %s\n", len(records), path)
	})
}

// HistoryClear removes every download from the history listing.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	return r.withHistory(func(repo *repositories.DownloadRepository) error {
		n, err := repo.Clear()
		if err != nil {
			return err
		}
		return r.writePlain("✓ Cleared %d downloads\n", n)
	})
}
