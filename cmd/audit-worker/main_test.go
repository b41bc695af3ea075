package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	pkevents "paramkit/internal/events"
	"paramkit/internal/metrics"
)

// --- Mock Types ---

// mockSink implements AuditSink for tests.
type mockSink struct {
	recorded []pkevents.ChangeEvent
	err      error
}

func (m *mockSink) Record(_ context.Context, evt pkevents.ChangeEvent) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, evt)
	return nil
}

// mockCloudWatch implements metrics.CloudWatchClient for tests.
type mockCloudWatch struct {
	calls []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(_ context.Context, input *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, input)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// --- Helpers ---

func newTestHandler(sink AuditSink, cw *mockCloudWatch, buf *strings.Builder) *Handler {
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	h := &Handler{
		sink:   sink,
		logger: logger,
	}
	if cw != nil {
		h.metrics = metrics.NewRecorder(cw, logger)
	}
	return h
}

func changeEventBody(t *testing.T, evt pkevents.ChangeEvent) string {
	t.Helper()

	body, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return string(body)
}

// --- Handler Tests ---

func TestHandle_RecordsAuditEntry(t *testing.T) {
	sink := &mockSink{}
	cw := &mockCloudWatch{}
	buf := &strings.Builder{}
	h := newTestHandler(sink, cw, buf)

	evt := pkevents.ChangeEvent{
		EventID:          "evt-1",
		Name:             "/app/db/url",
		Action:           pkevents.ActionPut,
		ValueFingerprint: "abc123",
		OccurredAt:       time.Now().UTC(),
	}

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "msg-1", Body: changeEventBody(t, evt)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("expected no batch failures, got %d", len(resp.BatchItemFailures))
	}
	if len(sink.recorded) != 1 {
		t.Fatalf("sink recorded %d events, want 1", len(sink.recorded))
	}
	if sink.recorded[0].EventID != "evt-1" {
		t.Errorf("recorded event ID = %q, want %q", sink.recorded[0].EventID, "evt-1")
	}
	if len(cw.calls) != 1 {
		t.Errorf("expected 1 metric publish, got %d", len(cw.calls))
	}
}

func TestHandle_MalformedBodyIsAcknowledged(t *testing.T) {
	sink := &mockSink{}
	buf := &strings.Builder{}
	h := newTestHandler(sink, nil, buf)

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "msg-bad", Body: "this is not json"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Malformed bodies must not be retried: a bad producer would otherwise
	// cycle the message forever.
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("expected no batch failures for malformed body, got %d", len(resp.BatchItemFailures))
	}
	if len(sink.recorded) != 0 {
		t.Errorf("malformed body should not reach the sink")
	}
	if !strings.Contains(buf.String(), "failed to unmarshal change event") {
		t.Errorf("expected parse failure log, got: %s", buf.String())
	}
}

func TestHandle_MissingFieldsAcknowledged(t *testing.T) {
	sink := &mockSink{}
	h := newTestHandler(sink, nil, &strings.Builder{})

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "msg-empty", Body: "{}"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("expected no batch failures for empty event, got %d", len(resp.BatchItemFailures))
	}
	if len(sink.recorded) != 0 {
		t.Errorf("empty event should not reach the sink")
	}
}

func TestHandle_SinkFailureReportsBatchItemFailure(t *testing.T) {
	sink := &mockSink{err: fmt.Errorf("audit store unavailable")}
	h := newTestHandler(sink, nil, &strings.Builder{})

	evt := pkevents.ChangeEvent{
		EventID:    "evt-1",
		Name:       "/app/db/url",
		Action:     pkevents.ActionDelete,
		OccurredAt: time.Now().UTC(),
	}

	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "msg-fail", Body: changeEventBody(t, evt)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.BatchItemFailures) != 1 {
		t.Fatalf("expected 1 batch failure, got %d", len(resp.BatchItemFailures))
	}
	if resp.BatchItemFailures[0].ItemIdentifier != "msg-fail" {
		t.Errorf("failure identifier = %q, want %q", resp.BatchItemFailures[0].ItemIdentifier, "msg-fail")
	}
}

func TestHandle_MixedBatchOnlyFailsBrokenMessages(t *testing.T) {
	sink := &mockSink{}
	h := newTestHandler(sink, nil, &strings.Builder{})

	good := pkevents.ChangeEvent{
		EventID:          "evt-good",
		Name:             "/app/api/key",
		Action:           pkevents.ActionPut,
		ValueFingerprint: "fp",
		OccurredAt:       time.Now().UTC(),
	}

	// The middle record is malformed and gets acknowledged; the rest of the
	// batch still processes.
	resp, err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "msg-1", Body: changeEventBody(t, good)},
			{MessageId: "msg-2", Body: "{broken"},
			{MessageId: "msg-3", Body: changeEventBody(t, good)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("expected no batch failures, got %d", len(resp.BatchItemFailures))
	}
	if len(sink.recorded) != 2 {
		t.Errorf("sink recorded %d events, want 2", len(sink.recorded))
	}
}

// --- Log Sink Tests ---

func TestLogSink_WritesFingerprintNotValue(t *testing.T) {
	buf := &strings.Builder{}
	sink := &logSink{logger: slog.New(slog.NewJSONHandler(buf, nil))}

	evt := pkevents.ChangeEvent{
		EventID:          "evt-1",
		Name:             "/app/db/password",
		Action:           pkevents.ActionPut,
		ValueFingerprint: "0011aabb",
		OccurredAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := sink.Record(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logOutput := buf.String()
	for _, want := range []string{"parameter change", "evt-1", "/app/db/password", "put", "0011aabb", "2026-03-01T12:00:00Z"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log should contain %q, got: %s", want, logOutput)
		}
	}
}
