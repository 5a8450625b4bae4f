package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgDownloadComplete
)

type downloadOutcome struct {
	index  int
	result *models.DownloadResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// downloadCompleteMsg is the constructor for [MsgDownloadComplete]
func downloadCompleteMsg(index int, result *models.DownloadResult, err error) Msg {
	return Msg{kind: MsgDownloadComplete, data: downloadOutcome{index: index, result: result, err: err}}
}
