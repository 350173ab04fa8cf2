package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/educloud/notes/models"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) IncrementUserNoteCount(ctx context.Context, userId string) (int64, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) DecrementUserNoteCount(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockCache) SeedUserNoteCount(ctx context.Context, userId string, count int) error {
	args := m.Called(ctx, userId, count)
	return args.Error(0)
}

func (m *MockCache) GetUserNoteCount(ctx context.Context, userId string) (int, error) {
	args := m.Called(ctx, userId)
	return args.Int(0), args.Error(1)
}

func (m *MockCache) ClearUserNoteCount(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockCache) RevokeToken(ctx context.Context, tokenId string, ttl time.Duration) error {
	args := m.Called(ctx, tokenId, ttl)
	return args.Error(0)
}

func (m *MockCache) IsTokenRevoked(ctx context.Context, tokenId string) (bool, error) {
	args := m.Called(ctx, tokenId)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) SetExport(ctx context.Context, job models.ExportJob, ttl time.Duration) error {
	args := m.Called(ctx, job, ttl)
	return args.Error(0)
}

func (m *MockCache) GetExport(ctx context.Context, exportId string) (models.ExportJob, error) {
	args := m.Called(ctx, exportId)
	return args.Get(0).(models.ExportJob), args.Error(1)
}
