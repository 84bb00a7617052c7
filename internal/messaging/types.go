// Package messaging carries request/response messages between the surfaces
// and the coordinator. A request resolves exactly once; an unknown type is
// rejected immediately rather than left hanging.
package messaging

import (
	"encoding/json"
	"errors"
)

// Type names a request kind.
type Type string

const (
	TypePing     Type = "PING"
	TypeSaveLink Type = "SAVE_LINK"
	TypeSaveNote Type = "SAVE_NOTE"
	TypeGetStats Type = "GET_STATS"

	TypeAddTask    Type = "ADD_TASK"
	TypeToggleTask Type = "TOGGLE_TASK"
	TypeDeleteLink Type = "DELETE_LINK"
	TypeDeleteNote Type = "DELETE_NOTE"
	TypeDeleteTask Type = "DELETE_TASK"
	TypeSetSetting Type = "SET_SETTING"
	TypeImportData Type = "IMPORT_DATA"
	TypeClearData  Type = "CLEAR_DATA"
)

var (
	// ErrUnrecognizedRequest is returned when no handler matches a request type.
	ErrUnrecognizedRequest = errors.New("unrecognized message type")
	// ErrChannelClosed is returned when no response arrives in time.
	ErrChannelClosed = errors.New("channel closed: no response received")
)

// Request is the message envelope.
type Request struct {
	ID   string          `json:"id,omitempty"`
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Pong answers PING.
type Pong struct {
	OK      bool   `json:"ok"`
	Time    string `json:"time"`
	Version string `json:"version"`
}

// Result answers every mutating request.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ID      int64  `json:"id,omitempty"`
}

// ErrorResponse is returned for failed reads and unknown types.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stats answers GET_STATS.
type Stats struct {
	LinksCount       int   `json:"linksCount"`
	NotesCount       int   `json:"notesCount"`
	TasksCount       int   `json:"tasksCount"`
	InstallTime      int64 `json:"installTime"`
	DaysSinceInstall int   `json:"daysSinceInstall"`
}

// LinkData is the SAVE_LINK payload.
// Source defaults to content_script when empty.
type LinkData struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// NoteData is the SAVE_NOTE payload.
type NoteData struct {
	Text      string `json:"text"`
	URL       string `json:"url,omitempty"`
	PageTitle string `json:"pageTitle,omitempty"`
	Source    string `json:"source,omitempty"`
}

// TaskData is the ADD_TASK payload.
type TaskData struct {
	Text string `json:"text"`
}

// IDData targets one record for deletion or toggling.
type IDData struct {
	ID int64 `json:"id"`
}

// SettingData is the SET_SETTING payload.
type SettingData struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// Failed builds an unsuccessful Result from err.
func Failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
