package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educloud/notes/dashboard"
	"github.com/educloud/notes/editor"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/notes"
	"github.com/educloud/notes/signals"
)

type fakeSession struct {
	loggedOut int
}

func (f *fakeSession) Logout() { f.loggedOut++ }

type failingSharer struct{}

func (failingSharer) ShareLink(context.Context, string) (string, error) {
	return "", errors.New("share service down")
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func setupDashboard() (*dashboard.Dashboard, *notes.Store, *fakeSession, *signals.Recorder) {
	store := notes.NewStore()
	sess := &fakeSession{}
	rec := &signals.Recorder{}
	d := dashboard.New(store, editor.LinkSharer{BaseURL: "https://notes.example"}, sess, rec, rec)
	return d, store, sess, rec
}

func TestCards_SeededNotes(t *testing.T) {
	d, _, _, _ := setupDashboard()
	d.SeedNotes(now)

	cards, err := d.Cards(now)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	assert.Equal(t, "1", cards[0].Id)
	assert.Equal(t, "Introduction to Cloud Computing", cards[0].Title)
	assert.Equal(t, "2 hours ago", cards[0].Updated)
	assert.Equal(t, "Database Management Systems", cards[1].Title)
	assert.Equal(t, "1 day ago", cards[1].Updated)
	assert.Equal(t, "Web Development Notes", cards[2].Title)
	assert.Equal(t, "3 days ago", cards[2].Updated)
	assert.False(t, d.Empty())
}

func TestDelete_ScenarioKeepsOrder(t *testing.T) {
	d, _, _, rec := setupDashboard()
	d.SeedNotes(now)

	require.NoError(t, d.Delete(context.Background(), "2"))
	cards, err := d.Cards(now)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "1", cards[0].Id)
	assert.Equal(t, "3", cards[1].Id)

	last, _ := rec.Last()
	assert.Equal(t, "Note deleted", last.Title)
	assert.Equal(t, "Your note has been successfully deleted.", last.Description)
}

func TestDelete_AbsentIdSucceeds(t *testing.T) {
	d, _, _, _ := setupDashboard()
	d.SeedNotes(now)

	assert.NoError(t, d.Delete(context.Background(), "missing"))
	cards, _ := d.Cards(now)
	assert.Len(t, cards, 3)
}

func TestEmpty(t *testing.T) {
	d, _, _, _ := setupDashboard()
	assert.True(t, d.Empty())
	cards, err := d.Cards(now)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Equal(t, "No notes yet. Create your first note!", dashboard.EmptyMessage)
}

func TestNavigation(t *testing.T) {
	d, _, _, rec := setupDashboard()

	d.NewNote()
	d.Edit("3")
	assert.Equal(t, []signals.Destination{signals.Editor(""), signals.Editor("3")}, rec.Destinations())
}

func TestShare(t *testing.T) {
	d, store, sess, rec := setupDashboard()
	store.Seed(models.Note{Id: "1", Title: "Cloud"})

	link, err := d.Share(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example/shared/1", link)
	last, _ := rec.Last()
	assert.Equal(t, "Share link copied", last.Title)

	_, err = d.Share(context.Background(), "missing")
	assert.ErrorIs(t, err, notes.ErrNotFound)

	failing := dashboard.New(store, failingSharer{}, sess, nil, nil)
	_, err = failing.Share(context.Background(), "1")
	assert.EqualError(t, err, "share service down")
}

func TestLogout_ClearsStoreAndDelegates(t *testing.T) {
	d, store, sess, _ := setupDashboard()
	d.SeedNotes(now)

	d.Logout()
	assert.Equal(t, 1, sess.loggedOut)
	assert.Equal(t, 0, store.Len())
}

func TestCards_FollowEditorSaves(t *testing.T) {
	d, store, _, _ := setupDashboard()
	ed := editor.NewController(store, editor.LinkSharer{}, nil, nil, nil)

	ed.LoadForNew()
	ed.SetTitle("My Note")
	ed.SetContent("<h1>Heading</h1><p>Body text</p>")
	_, err := ed.Save(context.Background())
	require.NoError(t, err)

	cards, err := d.Cards(time.Now())
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "My Note", cards[0].Title)
	assert.Equal(t, "Heading Body text", cards[0].Snippet)
}
