package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/mq"
	"github.com/educloud/notes/store"
)

type MQConsumer struct {
	jobQueue   mq.MessageQueue
	noteStore  store.NoteStore
	notesCache cache.NotesCache
	renderer   Renderer
}

func NewMQConsumer(jobQueue mq.MessageQueue, noteStore store.NoteStore, notesCache cache.NotesCache, renderer Renderer) *MQConsumer {
	return &MQConsumer{
		jobQueue:   jobQueue,
		noteStore:  noteStore,
		notesCache: notesCache,
		renderer:   renderer,
	}
}

// Allow up to 5 minutes for the throttled deletion of all of a user's notes
const visibilityTimeout = 300

// ExportTTL is how long a finished export stays downloadable.
const ExportTTL = time.Hour

func (c *MQConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := c.jobQueue.Receive(shutdownCtx, visibilityTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Error().Err(err).Msg("job queue receive failed")
			continue
		}
		if msg == nil {
			continue
		}

		if err := c.handle(msg); err != nil {
			// Left on the queue; it becomes visible again after the timeout.
			log.Error().Err(err).Str("messageId", msg.Id).Msg("job failed")
			continue
		}

		if err := c.jobQueue.Delete(context.Background(), msg); err != nil {
			log.Error().Err(err).Str("messageId", msg.Id).Msg("job queue delete failed")
		}
	}
}

// handle processes one message. A nil return means the message is done
// with, including malformed messages that can never succeed.
func (c *MQConsumer) handle(msg *mq.Message) error {
	job, err := mq.DecodeJob(msg)
	if err != nil {
		log.Warn().Err(err).Str("messageId", msg.Id).Msg("dropping malformed job")
		return nil
	}

	// a little less than the visibility timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)
	defer cancel()

	switch job.Type {
	case mq.JobExport:
		return c.export(ctx, job)
	case mq.JobPurgeNotes:
		return c.purgeNotes(ctx, job)
	}
	return nil
}

func (c *MQConsumer) export(ctx context.Context, job mq.Job) error {
	result := models.ExportJob{
		Id:     job.ExportId,
		NoteId: job.NoteId,
		UserId: job.UserId,
	}

	note, err := c.noteStore.GetNote(ctx, job.UserId, job.NoteId)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		result.Status = models.ExportFailed
		result.Error = "note not found"
	case err != nil:
		return err
	default:
		doc, renderErr := c.renderer.Render(note)
		if renderErr != nil {
			result.Status = models.ExportFailed
			result.Error = renderErr.Error()
		} else {
			result.Status = models.ExportReady
			result.Title = note.Title
			result.ContentType = c.renderer.ContentType()
			result.Document = doc
		}
	}

	if err := c.notesCache.SetExport(ctx, result, ExportTTL); err != nil {
		return err
	}

	event := models.NoteEvent{
		Type:     models.EventExportCompleted,
		UserId:   job.UserId,
		NoteId:   job.NoteId,
		ExportId: job.ExportId,
		Status:   result.Status,
	}
	if data, err := json.Marshal(event); err == nil {
		if err := c.notesCache.Publish(ctx, cache.NotesChannel(job.UserId), data); err != nil {
			log.Warn().Err(err).Str("userId", job.UserId).Msg("failed to publish export_completed")
		}
	}

	log.Info().Str("userId", job.UserId).Str("exportId", job.ExportId).Str("status", string(result.Status)).Msg("export finished")
	return nil
}

func (c *MQConsumer) purgeNotes(ctx context.Context, job mq.Job) error {
	deleted, err := c.noteStore.DeleteUserNotes(ctx, job.UserId)
	if err != nil {
		return err
	}
	if err := c.notesCache.ClearUserNoteCount(ctx, job.UserId); err != nil {
		log.Warn().Err(err).Str("userId", job.UserId).Msg("failed to clear cached note count")
	}
	log.Info().Str("userId", job.UserId).Int("deleted", deleted).Msg("purged notes")
	return nil
}
