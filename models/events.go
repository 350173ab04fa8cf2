package models

type EventType string

const (
	EventNoteChanged     EventType = "note_changed"
	EventExportCompleted EventType = "export_completed"
)

type ChangeKind string

const (
	NoteCreated ChangeKind = "created"
	NoteUpdated ChangeKind = "updated"
	NoteDeleted ChangeKind = "deleted"
)

// NoteEvent is published on the owner's notes channel and forwarded to
// their websocket connections as is.
type NoteEvent struct {
	Type     EventType    `json:"type"`
	UserId   string       `json:"userId"`
	NoteId   string       `json:"noteId,omitempty"`
	Change   ChangeKind   `json:"change,omitempty"`
	ExportId string       `json:"exportId,omitempty"`
	Status   ExportStatus `json:"status,omitempty"`
}

type UserDeletedEvent struct {
	UserId string `json:"userId"`
}
