package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/educloud/notes/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user models.User) (models.User, bool, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Bool(1), args.Error(2)
}

func (m *MockStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	args := m.Called(ctx, provider, providerId)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	args := m.Called(ctx, provider, providerId)
	return args.Error(0)
}

func (m *MockStore) IncrementUserNoteCount(ctx context.Context, provider string, providerId string, count int) error {
	args := m.Called(ctx, provider, providerId, count)
	return args.Error(0)
}

func (m *MockStore) CreateNote(ctx context.Context, userId string, note models.Note) error {
	args := m.Called(ctx, userId, note)
	return args.Error(0)
}

func (m *MockStore) GetNote(ctx context.Context, userId string, noteId string) (models.Note, error) {
	args := m.Called(ctx, userId, noteId)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockStore) ListNotes(ctx context.Context, userId string) ([]models.Note, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]models.Note), args.Error(1)
}

func (m *MockStore) UpdateNote(ctx context.Context, userId string, note models.Note) (models.Note, error) {
	args := m.Called(ctx, userId, note)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockStore) DeleteNote(ctx context.Context, userId string, noteId string) error {
	args := m.Called(ctx, userId, noteId)
	return args.Error(0)
}

func (m *MockStore) DeleteUserNotes(ctx context.Context, userId string) (int, error) {
	args := m.Called(ctx, userId)
	return args.Int(0), args.Error(1)
}
