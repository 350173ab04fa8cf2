package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/service"
	"github.com/educloud/notes/store"
)

func shareToken(t *testing.T, link string) string {
	t.Helper()
	prefix := publicURL + "/shared/"
	require.True(t, strings.HasPrefix(link, prefix), link)
	return strings.TrimPrefix(link, prefix)
}

func TestShareNote_RoundTrip(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	id := newNoteId()
	note := models.Note{Id: id, Title: "Shared"}
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(note, nil)
	mockStore.On("GetUser", ctx, testUser.Provider, testUser.ProviderId).Return(testUser, nil)

	link, err := svc.ShareNote(ctx, testUser, id)
	require.NoError(t, err)

	got, err := svc.ResolveShare(ctx, shareToken(t, link))
	require.NoError(t, err)
	assert.Equal(t, note, got)
}

func TestShareNote_MissingNote(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	id := newNoteId()
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(models.Note{}, store.ErrItemNotFound)

	_, err := svc.ShareNote(ctx, testUser, id)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestResolveShare_NoteDeletedAfterSharing(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	id := newNoteId()
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(models.Note{Id: id}, nil).Once()
	link, err := svc.ShareNote(ctx, testUser, id)
	require.NoError(t, err)

	mockStore.On("GetUser", ctx, testUser.Provider, testUser.ProviderId).Return(testUser, nil)
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(models.Note{}, store.ErrItemNotFound)

	_, err = svc.ResolveShare(ctx, shareToken(t, link))
	assert.ErrorIs(t, err, service.ErrInvalidShareLink)
}

func TestResolveShare_OwnerReplaced(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	id := newNoteId()
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(models.Note{Id: id}, nil)
	link, err := svc.ShareNote(ctx, testUser, id)
	require.NoError(t, err)

	mockStore.On("GetUser", ctx, testUser.Provider, testUser.ProviderId).Return(models.User{Id: "someone-else"}, nil)

	_, err = svc.ResolveShare(ctx, shareToken(t, link))
	assert.ErrorIs(t, err, service.ErrInvalidShareLink)
}

func TestResolveShare_RejectsOtherTokens(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	sessionToken, _, err := svc.CreateJWT(testUser.Id, testUser.Provider, testUser.ProviderId)
	require.NoError(t, err)

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"typ": "share", "id": testUser.Id, "provider": testUser.Provider,
		"providerId": testUser.ProviderId, "noteId": newNoteId(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))

	for _, token := range []string{sessionToken, expired, "garbage"} {
		_, err := svc.ResolveShare(ctx, token)
		assert.ErrorIs(t, err, service.ErrInvalidShareLink)
	}
	mockStore.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestExport(t *testing.T) {
	svc, mockStore, mockCache, mockMQ, _ := setupService(t)
	ctx := context.Background()

	id := newNoteId()
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(models.Note{Id: id}, nil)
	mockCache.On("SetExport", ctx, mock.MatchedBy(func(job models.ExportJob) bool {
		return job.Status == models.ExportPending && job.NoteId == id && job.UserId == testUser.Id
	}), time.Hour).Return(nil)
	mockMQ.On("Send", ctx, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, `"type":"export"`) && strings.Contains(body, `"noteId":"`+id+`"`)
	})).Return(nil)

	job, err := svc.RequestExport(ctx, testUser, id)
	require.NoError(t, err)
	assert.Equal(t, models.ExportPending, job.Status)
	assert.NotEmpty(t, job.Id)
	mockMQ.AssertExpectations(t)
}

func TestRequestExport_QueueFails(t *testing.T) {
	svc, mockStore, mockCache, mockMQ, _ := setupService(t)
	ctx := context.Background()

	id := newNoteId()
	mockStore.On("GetNote", ctx, testUser.Id, id).Return(models.Note{Id: id}, nil)
	mockCache.On("SetExport", ctx, mock.Anything, mock.Anything).Return(nil)
	mockMQ.On("Send", ctx, mock.Anything).Return(assert.AnError)

	_, err := svc.RequestExport(ctx, testUser, id)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGetExport_OwnerOnly(t *testing.T) {
	svc, _, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	mine := models.ExportJob{Id: "e1", UserId: testUser.Id, Status: models.ExportReady}
	theirs := models.ExportJob{Id: "e2", UserId: "user2", Status: models.ExportReady}
	mockCache.On("GetExport", ctx, "e1").Return(mine, nil)
	mockCache.On("GetExport", ctx, "e2").Return(theirs, nil)

	got, err := svc.GetExport(ctx, testUser, "e1")
	require.NoError(t, err)
	assert.Equal(t, mine, got)

	_, err = svc.GetExport(ctx, testUser, "e2")
	assert.ErrorIs(t, err, cache.ErrExportNotFound)
}
