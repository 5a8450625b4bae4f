// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The [Model] downloads a list of tracks one after another and renders each request's phase:
// a spinner while the job is submitted and converting, then a progress bar while the file streams.
// Finished downloads stay listed with their path, size and elapsed time, or with the failure.
//
// Progress updates flow through a channel from the download engine, received one at a time by a tea.Cmd.
// Pressing q cancels the in-flight download through its context. Once every request has run, r retries
// the failed ones.
//
// Logs go to a file while the TUI owns the terminal.
package ui
