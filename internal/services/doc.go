// Package services implements the client for the Lucida conversion API.
//
// A download is three steps driven by [Client]:
//   - [Client.Submit] posts the track's source URL and receives a [models.JobHandle]
//   - [Client.WaitForCompletion] polls the job's status endpoint until it completes or fails
//   - [Client.Fetch] streams the finished file to "<dir>/<handoff>.<ext>"
//
// # Endpoints
//
// Submissions go to "<api_url>/api/load?url=/api/fetch/stream/v2".
// Status and download requests go to the server named in the submission response:
// "<job_url>/api/fetch/request/<handoff>" and ".../download", where job_url contains a "{server}" placeholder.
//
// # Polling
//
// The first status query is sent immediately and later queries are paced by a [rate.Limiter] at the poll interval.
// Any status other than "completed" or "error" counts as pending.
// MaxWait bounds the whole wait and yields a [Timeout] error when it elapses.
//
// # Errors
//
// Failures are returned as [*DownloadError] whose Kind is one of [TransportError], [MalformedResponse],
// [SubmissionRejected], [JobFailed], [IOError], [Timeout], or [Cancelled].
// Each kind also matches its sentinel in the shared package through errors.Is, e.g. [shared.ErrJobFailed].
//
// # Progress
//
// Operations report synchronously through a [ProgressFunc]: one [EventPending] per pending poll and one
// [EventChunk] per chunk written.
package services
