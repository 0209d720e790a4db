package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/tasks"
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
	MsgRepositoriesFetched MsgKind = iota
	MsgProgressUpdate
	MsgImportComplete
)

type repositoriesFetched struct {
	entries []models.IndexEntry
	err     error
}

// repositoriesFetchedMsg is the constructor for [MsgRepositoriesFetched]
func repositoriesFetchedMsg(entries []models.IndexEntry, err error) Msg {
	return Msg{kind: MsgRepositoriesFetched, data: repositoriesFetched{entries, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(result *tasks.ImportResult) Msg {
	return Msg{kind: MsgImportComplete, data: result}
}
