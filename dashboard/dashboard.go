// Package dashboard is the list view over the note store.
package dashboard

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/educloud/notes/editor"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/notes"
	"github.com/educloud/notes/signals"
)

const EmptyMessage = "No notes yet. Create your first note!"

type Card struct {
	Id      string
	Title   string
	Snippet string
	Updated string
}

// Session is the part of the session controller the dashboard needs.
type Session interface {
	Logout()
}

type Dashboard struct {
	store     *notes.Store
	sharer    editor.Sharer
	session   Session
	notifier  signals.Notifier
	navigator signals.Navigator
}

func New(store *notes.Store, sharer editor.Sharer, session Session, notifier signals.Notifier, navigator signals.Navigator) *Dashboard {
	if notifier == nil {
		notifier = signals.Discard
	}
	if navigator == nil {
		navigator = signals.Discard
	}
	return &Dashboard{
		store:     store,
		sharer:    sharer,
		session:   session,
		notifier:  notifier,
		navigator: navigator,
	}
}

// Cards renders the store in list order with update times relative to now.
func (d *Dashboard) Cards(now time.Time) ([]Card, error) {
	list, err := d.store.List()
	if err != nil {
		return nil, err
	}
	cards := make([]Card, 0, len(list))
	for _, note := range list {
		cards = append(cards, Card{
			Id:      note.Id,
			Title:   note.Title,
			Snippet: note.Snippet,
			Updated: humanize.RelTime(note.LastUpdated, now, "ago", "from now"),
		})
	}
	return cards, nil
}

func (d *Dashboard) Empty() bool {
	return d.store.Len() == 0
}

func (d *Dashboard) NewNote() {
	d.navigator.Navigate(signals.Editor(""))
}

func (d *Dashboard) Edit(id string) {
	d.navigator.Navigate(signals.Editor(id))
}

func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.store.Delete(ctx, id); err != nil {
		return err
	}
	d.notifier.Notify(signals.Notification{
		Title:       "Note deleted",
		Description: "Your note has been successfully deleted.",
	})
	return nil
}

func (d *Dashboard) Share(ctx context.Context, id string) (string, error) {
	if _, err := d.store.Get(id); err != nil {
		return "", err
	}
	link, err := d.sharer.ShareLink(ctx, id)
	if err != nil {
		return "", err
	}
	d.notifier.Notify(signals.Notification{
		Title:       "Share link copied",
		Description: "The share link has been copied to your clipboard.",
	})
	return link, nil
}

func (d *Dashboard) Logout() {
	d.store.Clear()
	d.session.Logout()
}

// SeedNotes loads the example notes shown before any backend is attached.
// Timestamps are relative to now.
func (d *Dashboard) SeedNotes(now time.Time) {
	d.store.Seed(
		models.Note{
			Id:          "1",
			Title:       "Introduction to Cloud Computing",
			Snippet:     "Cloud computing is the delivery of computing services over the internet...",
			LastUpdated: now.Add(-2 * time.Hour),
		},
		models.Note{
			Id:          "2",
			Title:       "Database Management Systems",
			Snippet:     "DBMS is software that handles the storage, retrieval, and updating of data...",
			LastUpdated: now.Add(-24 * time.Hour),
		},
		models.Note{
			Id:          "3",
			Title:       "Web Development Notes",
			Snippet:     "HTML, CSS, and JavaScript are the core technologies for building web pages...",
			LastUpdated: now.Add(-3 * 24 * time.Hour),
		},
	)
}
