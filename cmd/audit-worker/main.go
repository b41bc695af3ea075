// Package main is the entrypoint for the audit worker Lambda function.
//
// The audit worker consumes parameter change events from the events SQS
// queue and turns them into an audit trail: one structured log line per
// change (value fingerprints only, never parameter values) plus a CloudWatch
// metric per action.
//
// Lambda SQS integration uses partial batch responses: malformed messages
// are acknowledged and skipped so a bad producer cannot wedge the queue,
// while genuine processing failures are returned in batchItemFailures so
// SQS retries only those messages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	pkevents "paramkit/internal/events"
	"paramkit/internal/metrics"
)

// AuditSink records one change event in the audit trail.
type AuditSink interface {
	Record(ctx context.Context, evt pkevents.ChangeEvent) error
}

// logSink writes audit entries as structured log lines; CloudWatch Logs
// retention provides the durable trail.
type logSink struct {
	logger *slog.Logger
}

func (s *logSink) Record(_ context.Context, evt pkevents.ChangeEvent) error {
	s.logger.Info("parameter change",
		"event_id", evt.EventID,
		"name", evt.Name,
		"action", string(evt.Action),
		"value_fingerprint", evt.ValueFingerprint,
		"occurred_at", evt.OccurredAt.Format(time.RFC3339),
	)
	return nil
}

// Handler holds the dependencies for the audit worker Lambda handler.
type Handler struct {
	sink    AuditSink
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Handle processes an SQS event containing one or more change events. Each
// message is processed independently; messages that fail are reported in
// batchItemFailures so SQS retries only them.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process SQS message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			// Report partial failure so SQS retries only this message.
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processRecord handles a single SQS message.
func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) error {
	var evt pkevents.ChangeEvent
	if err := json.Unmarshal([]byte(record.Body), &evt); err != nil {
		h.logger.Error("failed to unmarshal change event",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		// Permanent parse failure - do not retry (return nil to ACK).
		return nil
	}

	if evt.Name == "" || evt.Action == "" {
		h.logger.Error("change event missing required fields",
			"message_id", record.MessageId,
			"event_id", evt.EventID,
		)
		return nil
	}

	if err := h.sink.Record(ctx, evt); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	if h.metrics != nil {
		h.metrics.RecordParameterChange(ctx, string(evt.Action))
	}

	return nil
}

func main() {
	// Initialize structured logger at startup (Cold Start).
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("audit worker Lambda initializing (cold start)")

	// Load AWS SDK configuration.
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		sink:    &logSink{logger: logger},
		metrics: metrics.NewRecorder(cloudwatch.NewFromConfig(awsCfg), logger),
		logger:  logger,
	}

	lambda.Start(handler.Handle)
}
