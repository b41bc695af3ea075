// Package events publishes parameter change notifications to SQS for
// downstream audit consumers. Events identify the change and carry a
// fingerprint of the new value; the value itself never leaves the process.
package events

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Action identifies the kind of parameter change an event describes.
type Action string

const (
	ActionPut    Action = "put"
	ActionDelete Action = "delete"
)

// ChangeEvent is the message body published for every parameter change.
// ValueFingerprint lets consumers detect value rotation without access to
// the plaintext; it is empty for deletions.
type ChangeEvent struct {
	EventID          string    `json:"event_id"`
	Name             string    `json:"name"`
	Action           Action    `json:"action"`
	ValueFingerprint string    `json:"value_fingerprint,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends ChangeEvents to a single SQS queue.
type Publisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewPublisher creates a Publisher for the given queue URL.
func NewPublisher(client SQSSender, queueURL string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Fingerprint returns the hex BLAKE3 digest of a parameter value.
func Fingerprint(value string) string {
	h := blake3.New()
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// PublishPut emits a change event for a written parameter. The value is
// reduced to its fingerprint before the event is built.
func (p *Publisher) PublishPut(ctx context.Context, name, value string) error {
	return p.send(ctx, ChangeEvent{
		EventID:          uuid.New().String(),
		Name:             name,
		Action:           ActionPut,
		ValueFingerprint: Fingerprint(value),
		OccurredAt:       time.Now().UTC(),
	})
}

// PublishDelete emits a change event for a deleted parameter.
func (p *Publisher) PublishDelete(ctx context.Context, name string) error {
	return p.send(ctx, ChangeEvent{
		EventID:    uuid.New().String(),
		Name:       name,
		Action:     ActionDelete,
		OccurredAt: time.Now().UTC(),
	})
}

// send serializes the event to JSON and dispatches it to the queue.
func (p *Publisher) send(ctx context.Context, event ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal ChangeEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"action": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Action)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("events: failed to send ChangeEvent to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "change event published",
		"queue_url", p.queueURL,
		"event_id", event.EventID,
		"name", event.Name,
		"action", string(event.Action),
	)

	return nil
}
