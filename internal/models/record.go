package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/downcida/internal/shared"
)

// RecordStatus tracks a download through the history table.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordCompleted RecordStatus = "completed"
	RecordFailed    RecordStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordPending, RecordCompleted, RecordFailed:
		return true
	}
	return false
}

// DownloadRecord is a persisted download attempt.
type DownloadRecord struct {
	id           string
	sequence     int
	trackID      string
	region       string
	format       string
	handoff      string
	server       string
	status       RecordStatus
	filePath     string
	bytes        int64
	contentType  string
	elapsed      time.Duration
	errorKind    string
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

var _ Model = (*DownloadRecord)(nil)

// NewDownloadRecord creates a pending record for req.
func NewDownloadRecord(sequence int, req DownloadRequest) *DownloadRecord {
	now := time.Now()
	return &DownloadRecord{
		sequence:  sequence,
		trackID:   req.TrackID,
		region:    req.Region,
		format:    req.Format.String(),
		status:    RecordPending,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreDownloadRecord rebuilds a record from stored columns.
func RestoreDownloadRecord(
	id string, sequence int, trackID, region, format, handoff, server string, status RecordStatus,
	filePath string, bytes int64, contentType string, elapsed time.Duration, errorKind, errorMessage string,
	createdAt, updatedAt time.Time, deletedAt *time.Time,
) *DownloadRecord {
	return &DownloadRecord{
		id:           id,
		sequence:     sequence,
		trackID:      trackID,
		region:       region,
		format:       format,
		handoff:      handoff,
		server:       server,
		status:       status,
		filePath:     filePath,
		bytes:        bytes,
		contentType:  contentType,
		elapsed:      elapsed,
		errorKind:    errorKind,
		errorMessage: errorMessage,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		deletedAt:    deletedAt,
	}
}

func (d *DownloadRecord) ID() string { return d.id }
func (d *DownloadRecord) Sequence() int { return d.sequence }
func (d *DownloadRecord) TrackID() string { return d.trackID }
func (d *DownloadRecord) Region() string { return d.region }
func (d *DownloadRecord) Format() string { return d.format }
func (d *DownloadRecord) Handoff() string { return d.handoff }
func (d *DownloadRecord) Server() string { return d.server }
func (d *DownloadRecord) Status() RecordStatus { return d.status }
func (d *DownloadRecord) FilePath() string { return d.filePath }
func (d *DownloadRecord) Bytes() int64 { return d.bytes }
func (d *DownloadRecord) ContentType() string { return d.contentType }
func (d *DownloadRecord) Elapsed() time.Duration { return d.elapsed }
func (d *DownloadRecord) ErrorKind() string { return d.errorKind }
func (d *DownloadRecord) ErrorMessage() string { return d.errorMessage }
func (d *DownloadRecord) CreatedAt() time.Time { return d.createdAt }
func (d *DownloadRecord) UpdatedAt() time.Time { return d.updatedAt }
func (d *DownloadRecord) DeletedAt() *time.Time { return d.deletedAt }
func (d *DownloadRecord) SetID(id string) { d.id = id }
func (d *DownloadRecord) SetSequence(seq int) { d.sequence = seq }
func (d *DownloadRecord) SetUpdatedAt(t time.Time) { d.updatedAt = t }

// AttachHandle stores the job handle issued on submission.
func (d *DownloadRecord) AttachHandle(h JobHandle) {
	d.handoff = h.HandoffID
	d.server = h.ServerName
}

// Complete marks the record completed with the download's outcome.
func (d *DownloadRecord) Complete(result *DownloadResult) {
	d.status = RecordCompleted
	d.filePath = result.FilePath
	d.bytes = result.Bytes
	d.contentType = result.ContentType
	d.elapsed = result.Elapsed
	if result.Handle.HandoffID != "" {
		d.AttachHandle(result.Handle)
	}
	d.errorKind = ""
	d.errorMessage = ""
}

// Fail marks the record failed.
func (d *DownloadRecord) Fail(kind, message string, elapsed time.Duration) {
	d.status = RecordFailed
	d.errorKind = kind
	d.errorMessage = message
	d.elapsed = elapsed
}

// Validate checks required fields.
func (d *DownloadRecord) Validate() error {
	if d.trackID == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	}
	if d.format == "" {
		return fmt.Errorf("%w: format is required", shared.ErrInvalidInput)
	}
	if !d.status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, d.status)
	}
	if d.status == RecordCompleted && d.filePath == "" {
		return fmt.Errorf("%w: completed download needs a file path", shared.ErrInvalidInput)
	}
	return nil
}
