package sqsmq

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/educloud/notes/mq"
)

// sqsAPI is the subset of the SQS client the queue uses.
type sqsAPI interface {
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSJobQueue struct {
	client   sqsAPI
	queueURL string
}

func NewSQSJobQueue(ctx context.Context, devMode bool, sqsEndpoint string, queueName string) (*SQSJobQueue, error) {
	client, err := newSQSClient(ctx, devMode, sqsEndpoint)
	if err != nil {
		return nil, err
	}
	return newQueue(ctx, client, queueName)
}

func newQueue(ctx context.Context, client sqsAPI, queueName string) (*SQSJobQueue, error) {
	queues, err := getQueues(client, ctx)
	if err != nil {
		return nil, err
	}

	for _, q := range queues {
		if strings.HasSuffix(q, "/"+queueName) {
			return &SQSJobQueue{client: client, queueURL: q}, nil
		}
	}
	return nil, fmt.Errorf("given queue name '%s' not found in SQS", queueName)
}

func (q *SQSJobQueue) Send(ctx context.Context, body string) error {
	return sendMessage(q, ctx, body)
}

func (q *SQSJobQueue) Receive(ctx context.Context, visibilityTimeout int32) (*mq.Message, error) {
	return receiveMessage(q, ctx, visibilityTimeout)
}

func (q *SQSJobQueue) Delete(ctx context.Context, msg *mq.Message) error {
	return deleteMessage(q, ctx, msg)
}
