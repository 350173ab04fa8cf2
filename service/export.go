package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/mq"
	"github.com/educloud/notes/worker"
)

// RequestExport queues a render of the stored note. The caller learns of
// completion through an export_completed event or by polling GetExport.
func (s *Service) RequestExport(ctx context.Context, user models.User, noteId string) (models.ExportJob, error) {
	if _, err := s.GetNote(ctx, user, noteId); err != nil {
		return models.ExportJob{}, err
	}

	exportId, err := uuid.NewV7()
	if err != nil {
		return models.ExportJob{}, err
	}
	job := models.ExportJob{
		Id:     exportId.String(),
		NoteId: noteId,
		UserId: user.Id,
		Status: models.ExportPending,
	}
	if err := s.Cache.SetExport(ctx, job, worker.ExportTTL); err != nil {
		return models.ExportJob{}, fmt.Errorf("record export: %w", err)
	}

	err = mq.SendJob(ctx, s.MQ, mq.Job{
		Type:           mq.JobExport,
		UserId:         user.Id,
		UserProvider:   user.Provider,
		UserProviderId: user.ProviderId,
		NoteId:         noteId,
		ExportId:       job.Id,
	})
	if err != nil {
		return models.ExportJob{}, fmt.Errorf("enqueue export: %w", err)
	}
	return job, nil
}

func (s *Service) GetExport(ctx context.Context, user models.User, exportId string) (models.ExportJob, error) {
	job, err := s.Cache.GetExport(ctx, exportId)
	if err != nil {
		return models.ExportJob{}, err
	}
	if job.UserId != user.Id {
		return models.ExportJob{}, cache.ErrExportNotFound
	}
	return job, nil
}
