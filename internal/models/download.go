package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/downcida/internal/shared"
)

// DefaultRegion lets the API pick the account region.
const DefaultRegion = "auto"

// DownloadRequest is the caller's input for one download. Treat it as immutable once built.
type DownloadRequest struct {
	TrackID        string
	DestinationDir string
	Region         string
	Format         AudioFormat
}

// NewDownloadRequest builds a request, defaulting an empty region to [DefaultRegion].
func NewDownloadRequest(trackID, destinationDir, region string, format AudioFormat) DownloadRequest {
	region = strings.TrimSpace(region)
	if region == "" {
		region = DefaultRegion
	}
	return DownloadRequest{
		TrackID:        trackID,
		DestinationDir: destinationDir,
		Region:         region,
		Format:         format,
	}
}

// Validate checks the request before any network call is made.
func (r DownloadRequest) Validate() error {
	if r.TrackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if r.DestinationDir == "" {
		return fmt.Errorf("%w: destination directory", shared.ErrMissingArgument)
	}
	if !r.Format.Valid() {
		return fmt.Errorf("%w: format %d", shared.ErrInvalidArgument, r.Format)
	}
	return nil
}

// JobHandle identifies a remote conversion job. Handles are never reused across requests.
type JobHandle struct {
	HandoffID  string `json:"handoff"`
	ServerName string `json:"server"`
}

// FileName is the local name for the job's artifact: "<handoff>.<ext>".
func (h JobHandle) FileName(format AudioFormat) string {
	return h.HandoffID + "." + format.Extension()
}

// JobState is the coarse state of a remote job.
type JobState int

const (
	JobPending JobState = iota
	JobCompleted
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobStatus is one status poll result. Message is only meaningful for [JobFailed].
type JobStatus struct {
	State   JobState
	Message string
}

// Terminal reports whether polling should stop.
func (s JobStatus) Terminal() bool {
	return s.State != JobPending
}

// ParseJobStatus maps the API's status string to a [JobStatus].
//
// Only "completed" and "error" are terminal; any other value is treated as pending.
func ParseJobStatus(status, message string) JobStatus {
	switch status {
	case "completed":
		return JobStatus{State: JobCompleted}
	case "error":
		if message == "" {
			message = "Unknown error"
		}
		return JobStatus{State: JobFailed, Message: message}
	default:
		return JobStatus{State: JobPending}
	}
}

// DownloadResult is produced once per successful request.
type DownloadResult struct {
	FilePath    string        `json:"file_path"`
	Elapsed     time.Duration `json:"elapsed"`
	Bytes       int64         `json:"bytes"`
	ContentType string        `json:"content_type,omitempty"`
	Handle      JobHandle     `json:"handle"`
}

// ElapsedMillis is Elapsed in whole milliseconds.
func (r DownloadResult) ElapsedMillis() int64 {
	return r.Elapsed.Milliseconds()
}
