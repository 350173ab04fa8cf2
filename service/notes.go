package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/notes"
	"github.com/educloud/notes/store"
	"github.com/educloud/notes/validation"
	"github.com/educloud/notes/worker"
)

const maxUserNotes = 10000

func (s *Service) enforceNoteQuota(ctx context.Context, user models.User) error {
	count, err := s.Cache.GetUserNoteCount(ctx, user.Id)
	if err != nil {
		return err
	}
	if count == -1 {
		// Cache miss: the profile count is authoritative.
		stored, err := s.Store.GetUser(ctx, user.Provider, user.ProviderId)
		if err != nil {
			return err
		}
		if err := s.Cache.SeedUserNoteCount(ctx, user.Id, stored.NoteCount); err != nil {
			log.Warn().Err(err).Str("userId", user.Id).Msg("failed to seed note count")
		}
		count = stored.NoteCount
	}
	if count >= maxUserNotes {
		log.Info().Str("userId", user.Id).Int("count", count).Msg("note quota exceeded")
		return ErrNoteQuotaExceeded
	}
	return nil
}

func (s *Service) publishNoteChanged(userId, noteId string, change models.ChangeKind) {
	event := models.NoteEvent{
		Type:   models.EventNoteChanged,
		UserId: userId,
		NoteId: noteId,
		Change: change,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.Cache.Publish(context.Background(), cache.NotesChannel(userId), data); err != nil {
		log.Warn().Err(err).Str("userId", userId).Str("noteId", noteId).Msg("failed to publish note_changed")
	}
}

func (s *Service) countNote(user models.User, delta int) {
	ctx := context.Background()
	var err error
	if delta > 0 {
		_, err = s.Cache.IncrementUserNoteCount(ctx, user.Id)
	} else {
		err = s.Cache.DecrementUserNoteCount(ctx, user.Id)
	}
	if err != nil {
		log.Warn().Err(err).Str("userId", user.Id).Msg("failed to update cached note count")
	}

	s.NoteCountBatcher.Add(worker.NoteCountUpdate{
		UserId:         user.Id,
		UserProvider:   user.Provider,
		UserProviderId: user.ProviderId,
		Delta:          delta,
	})
}

func (s *Service) ListNotes(ctx context.Context, user models.User) ([]models.Note, error) {
	return s.Store.ListNotes(ctx, user.Id)
}

func (s *Service) GetNote(ctx context.Context, user models.User, noteId string) (models.Note, error) {
	if err := ValidateNoteId(noteId); err != nil {
		return models.Note{}, err
	}
	return s.Store.GetNote(ctx, user.Id, noteId)
}

func (s *Service) CreateNote(ctx context.Context, user models.User, title, content string) (models.Note, error) {
	if err := ValidateNote(title, content); err != nil {
		return models.Note{}, err
	}
	if err := s.enforceNoteQuota(ctx, user); err != nil {
		return models.Note{}, err
	}

	noteId, err := uuid.NewV7()
	if err != nil {
		return models.Note{}, err
	}
	note := models.Note{
		Id:          noteId.String(),
		Title:       validation.NoteTitle(title),
		Content:     content,
		Snippet:     notes.Snippet(content),
		LastUpdated: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.Store.CreateNote(ctx, user.Id, note); err != nil {
		return models.Note{}, err
	}

	go func() {
		s.countNote(user, 1)
		s.publishNoteChanged(user.Id, note.Id, models.NoteCreated)
	}()

	return note, nil
}

func (s *Service) UpdateNote(ctx context.Context, user models.User, noteId, title, content string) (models.Note, error) {
	if err := ValidateNoteId(noteId); err != nil {
		return models.Note{}, err
	}
	if err := ValidateNote(title, content); err != nil {
		return models.Note{}, err
	}

	note, err := s.Store.UpdateNote(ctx, user.Id, models.Note{
		Id:          noteId,
		Title:       validation.NoteTitle(title),
		Content:     content,
		Snippet:     notes.Snippet(content),
		LastUpdated: time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return models.Note{}, err
	}

	go s.publishNoteChanged(user.Id, note.Id, models.NoteUpdated)

	return note, nil
}

// DeleteNote succeeds for notes that are already gone.
func (s *Service) DeleteNote(ctx context.Context, user models.User, noteId string) error {
	if ValidateNoteId(noteId) != nil {
		return nil
	}

	err := s.Store.DeleteNote(ctx, user.Id, noteId)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	go func() {
		s.countNote(user, -1)
		s.publishNoteChanged(user.Id, noteId, models.NoteDeleted)
	}()

	return nil
}
