package tasks

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/downcida/internal/models"
)

// ProgressUpdate represents a progress event during a download.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// TransferProgress is carried in [ProgressUpdate.Data] during [Download].
type TransferProgress struct {
	BytesWritten int64
	TotalBytes   int64 // 0 when the server sent no Content-Length
}

// Fraction reports completion in [0, 1], or 0 when the size is unknown.
func (p TransferProgress) Fraction() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	f := float64(p.BytesWritten) / float64(p.TotalBytes)
	if f > 1 {
		return 1
	}
	return f
}

// Operation phase enumeration
type Phase int

const (
	Submit Phase = iota
	Poll
	Download
	Complete
)

func (p Phase) String() string {
	switch p {
	case Submit:
		return "submit"
	case Poll:
		return "poll"
	case Download:
		return "download"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func submitUpdate(req models.DownloadRequest) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Submitting %s as %s (region %s)...", req.TrackID, req.Format, req.Region),
		Data:    req,
	}
}

func submittedUpdate(handle *models.JobHandle) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Poll,
		Step:    0,
		Message: fmt.Sprintf("Job %s accepted by %s, waiting for conversion...", handle.HandoffID, handle.ServerName),
		Data:    *handle,
	}
}

func pendingUpdate(attempt int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Poll,
		Step:    attempt,
		Message: fmt.Sprintf("Converting... (check %d)", attempt),
	}
}

func downloadStartUpdate(handle *models.JobHandle) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Message: fmt.Sprintf("Downloading %s...", handle.HandoffID),
		Data:    TransferProgress{},
	}
}

func chunkUpdate(written, total int64) ProgressUpdate {
	message := fmt.Sprintf("Downloaded %s", humanize.Bytes(uint64(written)))
	if total > 0 {
		message = fmt.Sprintf("Downloaded %s of %s", humanize.Bytes(uint64(written)), humanize.Bytes(uint64(total)))
	}
	return ProgressUpdate{
		Phase:   Download,
		Step:    int(written),
		Total:   int(total),
		Message: message,
		Data:    TransferProgress{BytesWritten: written, TotalBytes: total},
	}
}

func completeUpdate(result *models.DownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s (%s, %d ms)", result.FilePath, humanize.Bytes(uint64(result.Bytes)), result.ElapsedMillis()),
		Data:    *result,
	}
}
