package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/shared"
)

const downloadColumns = `
	id, sequence, track_id, region, format, handoff, server, status,
	file_path, bytes, content_type, elapsed_ms, error_kind, error_message,
	created_at, updated_at, deleted_at`

// DownloadRepository implements models.Repository[*models.DownloadRecord] for download history.
//
// Handles CRUD operations with soft delete support and status/track queries.
type DownloadRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.DownloadRecord] = (*DownloadRepository)(nil)

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new record with generated ID and sequence
func (r *DownloadRepository) Create(record *models.DownloadRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "downloads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)
	record.SetSequence(sequence)

	query := `
		INSERT INTO downloads (` + downloadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.TrackID(),
		record.Region(),
		record.Format(),
		nullable(record.Handoff()),
		nullable(record.Server()),
		string(record.Status()),
		nullable(record.FilePath()),
		record.Bytes(),
		nullable(record.ContentType()),
		record.Elapsed().Milliseconds(),
		nullable(record.ErrorKind()),
		nullable(record.ErrorMessage()),
		record.CreatedAt(),
		record.UpdatedAt(),
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Get retrieves a record by ID, excluding soft-deleted records
func (r *DownloadRepository) Get(id string) (*models.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ? AND deleted_at IS NULL`

	record, err := scanDownload(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: download %s", shared.ErrRecordNotFound, id)
	}
	return record, err
}

// Update writes the mutable fields of an existing record
func (r *DownloadRepository) Update(record *models.DownloadRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE downloads
		SET handoff = ?, server = ?, status = ?, file_path = ?, bytes = ?,
			content_type = ?, elapsed_ms = ?, error_kind = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullable(record.Handoff()),
		nullable(record.Server()),
		string(record.Status()),
		nullable(record.FilePath()),
		record.Bytes(),
		nullable(record.ContentType()),
		record.Elapsed().Milliseconds(),
		nullable(record.ErrorKind()),
		nullable(record.ErrorMessage()),
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	return expectRow(result, record.ID())
}

// Delete soft-deletes a record by ID
func (r *DownloadRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE downloads SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	return expectRow(result, id)
}

// Clear soft-deletes every live record and returns how many were affected
func (r *DownloadRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE downloads SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear downloads: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves records matching criteria, newest first.
//
// Supported keys: "status" (string or [models.RecordStatus]), "track_id" (string), "limit" (int).
func (r *DownloadRepository) List(criteria map[string]any) ([]*models.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE deleted_at IS NULL`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.RecordStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	}

	if trackID, ok := criteria["track_id"].(string); ok && trackID != "" {
		query += " AND track_id = ?"
		args = append(args, trackID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var records []*models.DownloadRecord
	for rows.Next() {
		record, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (*models.DownloadRecord, error) {
	var (
		id           string
		sequence     int
		trackID      string
		region       string
		format       string
		handoff      sql.NullString
		server       sql.NullString
		status       string
		filePath     sql.NullString
		bytes        int64
		contentType  sql.NullString
		elapsedMS    int64
		errorKind    sql.NullString
		errorMessage sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &trackID, &region, &format, &handoff, &server, &status,
		&filePath, &bytes, &contentType, &elapsedMS, &errorKind, &errorMessage,
		&createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreDownloadRecord(
		id, sequence, trackID, region, format, handoff.String, server.String, models.RecordStatus(status),
		filePath.String, bytes, contentType.String, time.Duration(elapsedMS)*time.Millisecond,
		errorKind.String, errorMessage.String, createdAt, updatedAt, deleted,
	), nil
}

// nullable stores empty strings as NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: download %s not found or already deleted", shared.ErrRecordNotFound, id)
	}
	return nil
}
