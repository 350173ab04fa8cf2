package models

import "time"

const UntitledNote = "Untitled Note"

// ProviderPassword marks accounts created with email and password. Their
// ProviderId is the normalized email.
const ProviderPassword = "password"

type User struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Provider     string `json:"provider"`
	ProviderId   string `json:"-"`
	Created      int64  `json:"created"`
	NoteCount    int    `json:"noteCount"`
}

type Note struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Snippet     string    `json:"snippet"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Session is the proof of authentication handed out after a successful
// sign-in or sign-up.
type Session struct {
	Token     string    `json:"token"`
	UserId    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportReady   ExportStatus = "ready"
	ExportFailed  ExportStatus = "failed"
)

type ExportJob struct {
	Id          string       `json:"id"`
	NoteId      string       `json:"noteId"`
	UserId      string       `json:"userId"`
	Status      ExportStatus `json:"status"`
	Title       string       `json:"title,omitempty"`
	ContentType string       `json:"contentType,omitempty"`
	Document    []byte       `json:"document,omitempty"`
	Error       string       `json:"error,omitempty"`
}
