package mq

import (
	"context"
	"encoding/json"
	"fmt"
)

type MessageQueue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

type Message struct {
	Id   string
	Body string
}

type JobType string

const (
	JobExport     JobType = "export"
	JobPurgeNotes JobType = "purge_notes"
)

// Job is the body of every queued message.
type Job struct {
	Type           JobType `json:"type"`
	UserId         string  `json:"userId"`
	UserProvider   string  `json:"userProvider"`
	UserProviderId string  `json:"userProviderId"`
	NoteId         string  `json:"noteId,omitempty"`
	ExportId       string  `json:"exportId,omitempty"`
}

func SendJob(ctx context.Context, q MessageQueue, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", job.Type, err)
	}
	return q.Send(ctx, string(body))
}

func DecodeJob(msg *Message) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", msg.Id, err)
	}
	switch job.Type {
	case JobExport, JobPurgeNotes:
		return job, nil
	default:
		return Job{}, fmt.Errorf("unknown job type %q", job.Type)
	}
}
