// Package tasks orchestrates a single track download with real-time progress reporting.
//
// # Core Operation
//
// [DownloadEngine.Download] runs three strictly sequential phases against a [JobClient]:
//
//  1. Submit: post the conversion job and receive a [models.JobHandle]
//  2. Poll: wait until the remote job completes or fails
//  3. Download: stream the file to "<dir>/<handoff>.<ext>"
//
// The elapsed time covers all three phases. Any failure aborts the sequence and is returned unchanged.
//
// [DownloadEngine.DownloadAll] runs several requests one after another and collects per-track results.
// One progress channel can follow the whole batch; every request begins with a [Submit] update.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains the [Phase], step counters, a message, and optional data;
// download updates carry a [TransferProgress]. Updates use select with default, so a slow reader
// may miss some. Exact per-poll counts are available from [services.ProgressFunc].
//
// # History
//
// The optional [HistoryRecorder] stores each attempt (repositories.HistoryAdapter in practice).
// Recorder errors are logged and ignored.
//
// # Content Detection
//
// Finished files are sniffed with mimetype and the detected type is stored in [models.DownloadResult].
// A non-audio type only produces a warning.
package tasks
