package services

// EventKind distinguishes progress events.
type EventKind int

const (
	// EventPending fires once per status poll that found the job still running.
	EventPending EventKind = iota
	// EventChunk fires once per chunk written to disk.
	EventChunk
)

// ProgressEvent is delivered synchronously to a [ProgressFunc].
type ProgressEvent struct {
	Kind         EventKind
	Attempt      int   // poll number, for EventPending
	BytesWritten int64 // running total, for EventChunk
	TotalBytes   int64 // Content-Length, 0 when unknown
}

// ProgressFunc observes a running operation. A nil ProgressFunc is allowed.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}
