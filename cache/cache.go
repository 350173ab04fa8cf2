package cache

import (
	"context"
	"errors"
	"time"

	"github.com/educloud/notes/models"
)

var ErrExportNotFound = errors.New("export not found")

type NotesCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	// Note counts back the per-user quota. GetUserNoteCount returns -1 on a
	// cache miss.
	IncrementUserNoteCount(ctx context.Context, userId string) (int64, error)
	DecrementUserNoteCount(ctx context.Context, userId string) error
	SeedUserNoteCount(ctx context.Context, userId string, count int) error
	GetUserNoteCount(ctx context.Context, userId string) (int, error)
	ClearUserNoteCount(ctx context.Context, userId string) error

	RevokeToken(ctx context.Context, tokenId string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenId string) (bool, error)

	SetExport(ctx context.Context, job models.ExportJob, ttl time.Duration) error
	GetExport(ctx context.Context, exportId string) (models.ExportJob, error)
}

// NotesChannel is the pub/sub channel carrying a user's note events.
func NotesChannel(userId string) string {
	return "notes:" + userId
}

const UserDeletedChannel = "user-deleted"
