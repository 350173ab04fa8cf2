package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/editor"
	"github.com/educloud/notes/models"
)

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (c *Client) ListNotes(ctx context.Context) ([]models.Note, error) {
	var list []models.Note
	if err := c.call(ctx, http.MethodGet, "/notes", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetNote(ctx context.Context, id string) (models.Note, error) {
	var note models.Note
	if err := c.call(ctx, http.MethodGet, notePath(id), nil, &note); err != nil {
		return models.Note{}, asNotFound(err, id)
	}
	return note, nil
}

func (c *Client) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	var note models.Note
	err := c.call(ctx, http.MethodPost, "/notes", noteRequest{Title: title, Content: content}, &note)
	return note, err
}

func (c *Client) UpdateNote(ctx context.Context, id, title, content string) (models.Note, error) {
	var note models.Note
	if err := c.call(ctx, http.MethodPut, notePath(id), noteRequest{Title: title, Content: content}, &note); err != nil {
		return models.Note{}, asNotFound(err, id)
	}
	return note, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return asNotFound(c.call(ctx, http.MethodDelete, notePath(id), nil, nil), id)
}

type shareResponse struct {
	URL string `json:"url"`
}

// ShareLink asks the server for a signed read-only link to the note.
func (c *Client) ShareLink(ctx context.Context, noteId string) (string, error) {
	var resp shareResponse
	if err := c.call(ctx, http.MethodPost, notePath(noteId)+"/share", nil, &resp); err != nil {
		return "", asNotFound(err, noteId)
	}
	return resp.URL, nil
}

// Shared fetches a note through a share link token.
func (c *Client) Shared(ctx context.Context, token string) (models.Note, error) {
	var note models.Note
	err := c.call(ctx, http.MethodGet, "/shared/"+url.PathEscape(token), nil, &note)
	return note, err
}

func (c *Client) RequestExport(ctx context.Context, noteId string) (models.ExportJob, error) {
	var job models.ExportJob
	if err := c.call(ctx, http.MethodPost, notePath(noteId)+"/export", nil, &job); err != nil {
		return models.ExportJob{}, asNotFound(err, noteId)
	}
	return job, nil
}

func (c *Client) GetExport(ctx context.Context, exportId string) (models.ExportJob, error) {
	var job models.ExportJob
	err := c.call(ctx, http.MethodGet, "/exports/"+url.PathEscape(exportId), nil, &job)
	return job, err
}

// Export requests the export in the background and returns at once. The
// outcome goes to the OnExport handler.
func (c *Client) Export(req editor.ExportRequest) {
	c.mu.RLock()
	onExport := c.onExport
	c.mu.RUnlock()

	go func() {
		var job models.ExportJob
		err := ErrExportUnsaved
		if req.NoteId != "" {
			ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()
			job, err = c.RequestExport(ctx, req.NoteId)
		}
		if err != nil {
			log.Warn().Err(err).Str("noteId", req.NoteId).Msg("export request failed")
		}
		if onExport != nil {
			onExport(job, err)
		}
	}()
}

// WaitExport polls until the export leaves the pending state.
func (c *Client) WaitExport(ctx context.Context, exportId string, interval time.Duration) (models.ExportJob, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetExport(ctx, exportId)
		if err != nil {
			return models.ExportJob{}, err
		}
		if job.Status != models.ExportPending {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return models.ExportJob{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
