// Package editor binds one note's draft to the note store.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/notes"
	"github.com/educloud/notes/signals"
)

// Toolbar is the fixed capability set offered by the rich-text editor.
var Toolbar = []string{
	"header:1", "header:2", "header:3",
	"bold", "italic", "underline", "strike",
	"list:ordered", "list:bullet",
	"color", "background",
	"link", "image",
	"clean",
}

// RichText is the editing surface. Its rendering is not our concern; we
// only move markup in and out of it.
type RichText interface {
	Content() string
	SetContent(markup string)
	OnChange(fn func(markup string))
}

type Sharer interface {
	ShareLink(ctx context.Context, noteId string) (string, error)
}

type ExportRequest struct {
	NoteId  string
	Title   string
	Content string
}

// Exporter accepts an export and returns at once; completion and failure
// are reported elsewhere.
type Exporter interface {
	Export(req ExportRequest)
}

// LinkSharer builds share links locally.
type LinkSharer struct {
	BaseURL string
}

func (s LinkSharer) ShareLink(_ context.Context, noteId string) (string, error) {
	return strings.TrimRight(s.BaseURL, "/") + "/shared/" + noteId, nil
}

var ErrNoDraft = errors.New("no draft loaded")

type Draft struct {
	Id      string
	Title   string
	Content string
	Dirty   bool
}

type Controller struct {
	mu     sync.Mutex
	draft  Draft
	loaded bool

	store     *notes.Store
	sharer    Sharer
	exporter  Exporter
	notifier  signals.Notifier
	navigator signals.Navigator
}

func NewController(store *notes.Store, sharer Sharer, exporter Exporter, notifier signals.Notifier, navigator signals.Navigator) *Controller {
	if notifier == nil {
		notifier = signals.Discard
	}
	if navigator == nil {
		navigator = signals.Discard
	}
	return &Controller{
		store:     store,
		sharer:    sharer,
		exporter:  exporter,
		notifier:  notifier,
		navigator: navigator,
	}
}

func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) LoadForNew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{Title: models.UntitledNote}
	c.loaded = true
}

func (c *Controller) LoadForEdit(id string) error {
	note, err := c.store.Get(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{Id: note.Id, Title: note.Title, Content: note.Content}
	c.loaded = true
	return nil
}

// Load dispatches on the editor destination: an empty id is a new note.
func (c *Controller) Load(d signals.Destination) error {
	if d.NoteId == "" {
		c.LoadForNew()
		return nil
	}
	return c.LoadForEdit(d.NoteId)
}

func (c *Controller) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Title = title
	c.draft.Dirty = true
}

func (c *Controller) SetContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Content = content
	c.draft.Dirty = true
}

// Bind pushes the draft into rt and follows its edits.
func (c *Controller) Bind(rt RichText) {
	rt.SetContent(c.Draft().Content)
	rt.OnChange(c.SetContent)
}

// Save commits the draft. On failure the draft, including Dirty, is left
// untouched so the save can be retried.
func (c *Controller) Save(ctx context.Context) (models.Note, error) {
	note, err := c.commit(ctx)
	if err != nil {
		return models.Note{}, err
	}
	c.notifier.Notify(signals.Notification{
		Title:       "Note saved",
		Description: "Your note has been saved successfully.",
	})
	return note, nil
}

func (c *Controller) commit(ctx context.Context) (models.Note, error) {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return models.Note{}, ErrNoDraft
	}
	draft := c.draft
	c.mu.Unlock()

	var note models.Note
	var err error
	if draft.Id == "" {
		note, err = c.store.Create(ctx, notes.Input{Title: draft.Title, Content: draft.Content})
	} else {
		note, err = c.store.Update(ctx, draft.Id, draft.Title, draft.Content)
	}
	if err != nil {
		return models.Note{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Id = note.Id
	// Edits made while the save was in flight stay dirty.
	if c.draft.Title == draft.Title && c.draft.Content == draft.Content {
		c.draft.Title = note.Title
		c.draft.Dirty = false
	}
	return note, nil
}

// Share saves first when the draft has never been saved or has pending
// edits, then asks for a link to the stored note.
func (c *Controller) Share(ctx context.Context) (string, error) {
	d := c.Draft()
	if d.Id == "" || d.Dirty {
		if _, err := c.commit(ctx); err != nil {
			return "", err
		}
	}

	link, err := c.sharer.ShareLink(ctx, c.Draft().Id)
	if err != nil {
		return "", err
	}
	c.notifier.Notify(signals.Notification{
		Title:       "Share link copied",
		Description: "The share link has been copied to your clipboard.",
	})
	return link, nil
}

// Export saves the draft when it has never been saved or has pending
// edits, then emits the "started" notification and hands the stored note to
// the exporter. A failed save exports nothing.
func (c *Controller) Export(ctx context.Context) error {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return ErrNoDraft
	}
	d := c.draft
	c.mu.Unlock()

	if d.Id == "" || d.Dirty {
		note, err := c.commit(ctx)
		if err != nil {
			return err
		}
		d = Draft{Id: note.Id, Title: note.Title, Content: note.Content}
	}

	c.notifier.Notify(signals.Notification{
		Title:       "Exporting...",
		Description: "Your note is being exported to PDF.",
	})
	c.exporter.Export(ExportRequest{NoteId: d.Id, Title: d.Title, Content: d.Content})
	return nil
}

// Back leaves the editor. Unsaved edits are discarded.
func (c *Controller) Back() {
	c.mu.Lock()
	c.draft = Draft{}
	c.loaded = false
	c.mu.Unlock()
	c.navigator.Navigate(signals.Dashboard())
}
