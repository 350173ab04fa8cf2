package service_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cachemocks "github.com/educloud/notes/cache/mocks"
	mqmocks "github.com/educloud/notes/mq/mocks"
	"github.com/educloud/notes/service"
	storemocks "github.com/educloud/notes/store/mocks"
	"github.com/educloud/notes/worker"
)

const publicURL = "https://notes.example"

// Helper to setup the service with mocks
func setupService(t *testing.T) (*service.Service, *storemocks.MockStore, *cachemocks.MockCache, *mqmocks.MockMQ, *worker.NoteCountBatcher) {
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)

	// The batcher is real but never run; tests read its channel directly
	batcher := worker.NewNoteCountBatcher(mockStore, time.Second)

	svc, err := service.NewService(
		mockStore,
		mockCache,
		mockMQ,
		batcher,
		nil,
		[]byte("secret"),
		publicURL+"/",
	)
	assert.NoError(t, err)

	return svc, mockStore, mockCache, mockMQ, batcher
}

// Helper that creates a channel and wraps a mock call to signal when it's called
func wrapMockWithSignal(call *mock.Call) chan struct{} {
	done := make(chan struct{})
	call.Run(func(args mock.Arguments) {
		close(done)
	})
	return done
}

func waitFor(t *testing.T, done chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		assert.Fail(t, "timed out waiting for "+what)
	}
}

func newNoteId() string {
	return uuid.Must(uuid.NewV7()).String()
}
