package tasks

import (
	"context"

	"github.com/desertthunder/downcida/internal/models"
)

// BatchItem is the outcome of one request in a [DownloadEngine.DownloadAll] call.
type BatchItem struct {
	Request models.DownloadRequest
	Result  *models.DownloadResult
	Error   error
}

// BatchResult summarizes a sequential run over several requests.
type BatchResult struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
}

// DownloadAll runs Download for each request in order, one at a time, continuing past failures.
//
// Cancelling ctx stops the run before the next request; the items processed so far are returned
// together with the context error.
func (e *DownloadEngine) DownloadAll(ctx context.Context, reqs []models.DownloadRequest, progress chan<- ProgressUpdate) (*BatchResult, error) {
	result := &BatchResult{Items: make([]BatchItem, 0, len(reqs))}

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := e.Download(ctx, req, progress)
		result.Items = append(result.Items, BatchItem{Request: req, Result: res, Error: err})
		if err != nil {
			result.Failed++
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			continue
		}
		result.Succeeded++
	}
	return result, nil
}
