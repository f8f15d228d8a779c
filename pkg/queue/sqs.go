// Package queue provides the SQS consumer loop and producer the workers
// are built on. Delivery is at-least-once: a message is deleted only after
// its handler succeeds, so handlers must be idempotent.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	waitTimeSeconds   = 20
	maxMessages       = 10
	receiveErrorDelay = 5 * time.Second
)

// Handler processes one message body. Returning an error leaves the message
// on the queue for redelivery after the visibility timeout.
type Handler func(ctx context.Context, body string) error

// NewClient builds an SQS client, honoring an endpoint override for
// LocalStack.
func NewClient(ctx context.Context, region, endpoint string) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, nil
}

// Consumer long-polls a queue and dispatches messages to a handler.
type Consumer struct {
	client            *sqs.Client
	queueURL          string
	visibilityTimeout int32
	logger            *slog.Logger
}

func NewConsumer(client *sqs.Client, queueURL string, visibilityTimeout time.Duration, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		client:            client,
		queueURL:          queueURL,
		visibilityTimeout: int32(visibilityTimeout.Seconds()),
		logger:            logger,
	}
}

// Run polls until ctx is cancelled. Each message is handled sequentially; a
// worker's unit of parallelism is the process, not the message.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("Queue consumer started", "queue", c.queueURL)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("Queue consumer stopping", "queue", c.queueURL)
			return nil
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: maxMessages,
			WaitTimeSeconds:     waitTimeSeconds,
			VisibilityTimeout:   c.visibilityTimeout,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to receive messages", "error", err)
			select {
			case <-time.After(receiveErrorDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, msg := range out.Messages {
			c.handleMessage(ctx, msg, handler)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg types.Message, handler Handler) {
	body := aws.ToString(msg.Body)

	if err := handler(ctx, body); err != nil {
		// Leave the message for redelivery.
		c.logger.Error("Message handling failed, leaving for redelivery", "error", err)
		return
	}

	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("Failed to delete message", "error", err)
	}
}

// Producer sends messages to a queue.
type Producer struct {
	client   *sqs.Client
	queueURL string
}

func NewProducer(client *sqs.Client, queueURL string) *Producer {
	return &Producer{client: client, queueURL: queueURL}
}

// Send enqueues a message. Group and dedup ids apply to FIFO queues and may
// be empty for standard queues.
func (p *Producer) Send(ctx context.Context, body, groupID, dedupID string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(body),
	}
	if groupID != "" {
		input.MessageGroupId = aws.String(groupID)
	}
	if dedupID != "" {
		input.MessageDeduplicationId = aws.String(dedupID)
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
