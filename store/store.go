package store

import (
	"context"
	"errors"

	"github.com/educloud/notes/models"
)

// NoteStore persists accounts and their notes. Users are addressed by
// provider and provider id, notes by owner and note id.
type NoteStore interface {
	// CreateUser inserts the user unless one already exists for the same
	// provider identity. created reports which happened; the returned user
	// is the stored one either way.
	CreateUser(ctx context.Context, user models.User) (models.User, bool, error)
	GetUser(ctx context.Context, provider string, providerId string) (models.User, error)
	DeleteUser(ctx context.Context, provider string, providerId string) error
	IncrementUserNoteCount(ctx context.Context, provider string, providerId string, count int) error

	CreateNote(ctx context.Context, userId string, note models.Note) error
	GetNote(ctx context.Context, userId string, noteId string) (models.Note, error)
	ListNotes(ctx context.Context, userId string) ([]models.Note, error)
	UpdateNote(ctx context.Context, userId string, note models.Note) (models.Note, error)
	DeleteNote(ctx context.Context, userId string, noteId string) error
	DeleteUserNotes(ctx context.Context, userId string) (int, error)
}

var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)
