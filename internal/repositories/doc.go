// Package repositories implements SQLite persistence for download history.
//
// [DownloadRepository] implements models.Repository[*models.DownloadRecord] with atomic sequence generation
// for human-readable ordering. Deletes are soft: rows get a deleted_at timestamp and are excluded from queries.
//
// [HistoryAdapter] exposes the repository as a tasks.HistoryRecorder so the download engine can record each
// attempt without knowing about SQL.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
