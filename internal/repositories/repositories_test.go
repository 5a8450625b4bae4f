package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/services"
	"github.com/desertthunder/downcida/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newRecord(trackID string) *models.DownloadRecord {
	return models.NewDownloadRecord(0, models.NewDownloadRequest(trackID, "/tmp", "US", models.FormatFLAC))
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "downloads")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}
}

func TestDownloadRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		first, second := newRecord("a"), newRecord("b")

		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		if first.ID() == "" || first.ID() == second.ID() {
			t.Errorf("expected distinct generated IDs, got %q and %q", first.ID(), second.ID())
		}
		if first.Sequence() != 1 || second.Sequence() != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence(), second.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		record := newRecord("4uLU6hMCjMI75M1A2tKUQC")
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		got, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}

		if got.TrackID() != "4uLU6hMCjMI75M1A2tKUQC" || got.Region() != "US" || got.Format() != "flac" {
			t.Errorf("unexpected record %s/%s/%s", got.TrackID(), got.Region(), got.Format())
		}
		if got.Status() != models.RecordPending {
			t.Errorf("expected pending, got %s", got.Status())
		}
		if got.Handoff() != "" || got.FilePath() != "" {
			t.Error("expected empty optional fields")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		record := newRecord("a")
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		record.Complete(&models.DownloadResult{
			FilePath:    "/tmp/h1.flac",
			Elapsed:     2345 * time.Millisecond,
			Bytes:       1024,
			ContentType: "audio/flac",
			Handle:      models.JobHandle{HandoffID: "h1", ServerName: "hund"},
		})
		if err := repo.Update(record); err != nil {
			t.Fatalf("failed to update record: %v", err)
		}

		got, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}

		if got.Status() != models.RecordCompleted {
			t.Errorf("expected completed, got %s", got.Status())
		}
		if got.FilePath() != "/tmp/h1.flac" || got.Bytes() != 1024 || got.ContentType() != "audio/flac" {
			t.Errorf("unexpected result fields %s %d %s", got.FilePath(), got.Bytes(), got.ContentType())
		}
		if got.Elapsed() != 2345*time.Millisecond {
			t.Errorf("expected 2345ms, got %v", got.Elapsed())
		}
		if got.Handoff() != "h1" || got.Server() != "hund" {
			t.Errorf("unexpected handle %s@%s", got.Handoff(), got.Server())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		record := newRecord("a")
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		if err := repo.Delete(record.ID()); err != nil {
			t.Fatalf("failed to delete record: %v", err)
		}

		if _, err := repo.Get(record.ID()); err == nil {
			t.Error("expected deleted record to be hidden")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM downloads WHERE id = ?", record.ID()).Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 1 {
			t.Error("expected soft delete to keep the row")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		for i, trackID := range []string{"a", "b", "a", "c"} {
			record := newRecord(trackID)
			if i%2 == 1 {
				record.Fail("job_failed", "boom", time.Second)
			}
			if err := repo.Create(record); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			expected int
		}{
			{"All", map[string]any{}, 4},
			{"Nil Criteria", nil, 4},
			{"By Status String", map[string]any{"status": "failed"}, 2},
			{"By Status Value", map[string]any{"status": models.RecordPending}, 2},
			{"By Track", map[string]any{"track_id": "a"}, 2},
			{"Limit", map[string]any{"limit": 3}, 3},
			{"Combined", map[string]any{"track_id": "a", "status": "pending"}, 2},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				records, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list records: %v", err)
				}
				if len(records) != tt.expected {
					t.Errorf("expected %d records, got %d", tt.expected, len(records))
				}
			})
		}

		t.Run("Newest First", func(t *testing.T) {
			records, err := repo.List(nil)
			if err != nil {
				t.Fatalf("failed to list records: %v", err)
			}
			if records[0].Sequence() != 4 || records[3].Sequence() != 1 {
				t.Errorf("expected descending sequences, got %d..%d", records[0].Sequence(), records[3].Sequence())
			}
		})
	})

	t.Run("Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		for _, trackID := range []string{"a", "b"} {
			if err := repo.Create(newRecord(trackID)); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		n, err := repo.Clear()
		if err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 cleared, got %d", n)
		}

		records, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records after clear, got %d", len(records))
		}
	})
}

func TestHistoryAdapter(t *testing.T) {
	req := models.NewDownloadRequest("4uLU6hMCjMI75M1A2tKUQC", "/tmp", "", models.FormatMP3)
	handle := &models.JobHandle{HandoffID: "h1", ServerName: "hund"}

	t.Run("Success", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		history := NewHistoryAdapter(repo)

		id, err := history.Start(context.Background(), req)
		if err != nil {
			t.Fatalf("failed to start record: %v", err)
		}

		result := &models.DownloadResult{FilePath: "/tmp/h1.mp3", Elapsed: time.Second, Bytes: 10, Handle: *handle}
		if err := history.Finish(context.Background(), id, handle, result, time.Second, nil); err != nil {
			t.Fatalf("failed to finish record: %v", err)
		}

		got, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.Status() != models.RecordCompleted || got.Format() != "mp3" || got.Region() != "auto" {
			t.Errorf("unexpected record %s %s %s", got.Status(), got.Format(), got.Region())
		}
	})

	t.Run("Failure Keeps Kind And Server Text", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		history := NewHistoryAdapter(repo)

		id, err := history.Start(context.Background(), req)
		if err != nil {
			t.Fatalf("failed to start record: %v", err)
		}

		failure := services.NewDownloadError(services.JobFailed, "source unavailable")
		if err := history.Finish(context.Background(), id, handle, nil, 3*time.Second, failure); err != nil {
			t.Fatalf("failed to finish record: %v", err)
		}

		got, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.Status() != models.RecordFailed {
			t.Errorf("expected failed, got %s", got.Status())
		}
		if got.ErrorKind() != "job_failed" || got.ErrorMessage() != "source unavailable" {
			t.Errorf("unexpected error fields %s %q", got.ErrorKind(), got.ErrorMessage())
		}
		if got.Handoff() != "h1" {
			t.Errorf("expected handle to be attached, got %q", got.Handoff())
		}
	})
}
