package mq_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/educloud/notes/mq"
	"github.com/educloud/notes/mq/mocks"
)

func TestSendJob(t *testing.T) {
	q := new(mocks.MockMQ)
	ctx := context.Background()
	q.On("Send", ctx, mock.MatchedBy(func(body string) bool {
		return assert.JSONEq(t, `{"type":"export","userId":"u1","userProvider":"password","userProviderId":"a@b.co","noteId":"n1","exportId":"e1"}`, body)
	})).Return(nil)

	err := mq.SendJob(ctx, q, mq.Job{
		Type:           mq.JobExport,
		UserId:         "u1",
		UserProvider:   "password",
		UserProviderId: "a@b.co",
		NoteId:         "n1",
		ExportId:       "e1",
	})
	require.NoError(t, err)
	q.AssertExpectations(t)
}

func TestDecodeJob(t *testing.T) {
	job, err := mq.DecodeJob(&mq.Message{Id: "r1", Body: `{"type":"purge_notes","userId":"u1"}`})
	require.NoError(t, err)
	assert.Equal(t, mq.JobPurgeNotes, job.Type)
	assert.Equal(t, "u1", job.UserId)

	_, err = mq.DecodeJob(&mq.Message{Id: "r2", Body: `{"type":"reindex"}`})
	assert.ErrorContains(t, err, `unknown job type "reindex"`)

	_, err = mq.DecodeJob(&mq.Message{Id: "r3", Body: `not json`})
	assert.Error(t, err)
}
