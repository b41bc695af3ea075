// Package metrics emits operation telemetry to CloudWatch. Emission is
// best-effort: a failed publish is logged and never propagated, so metrics
// can never fail a parameter operation.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Namespace is the CloudWatch namespace all Paramkit metrics publish under.
const Namespace = "Paramkit"

// Metric names.
const (
	MetricOperationLatency = "OperationLatency"
	MetricBatchSize        = "BatchSize"
	MetricRefreshFailure   = "RefreshFailure"
	MetricParameterChange  = "ParameterChange"
)

// Dimension names.
const (
	DimOperation = "Operation"
	DimOutcome   = "Outcome"
	DimAction    = "Action"
)

// Outcome labels an operation result for the Outcome dimension.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Recorder publishes Paramkit metrics to CloudWatch.
type Recorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewRecorder creates a Recorder publishing to the Paramkit namespace.
func NewRecorder(client CloudWatchClient, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		client:    client,
		namespace: Namespace,
		logger:    logger,
	}
}

// RecordOperation emits OperationLatency in milliseconds with Operation and
// Outcome dimensions.
func (r *Recorder) RecordOperation(ctx context.Context, operation string, outcome Outcome, duration time.Duration) {
	r.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricOperationLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String(DimOperation),
				Value: aws.String(operation),
			},
			{
				Name:  aws.String(DimOutcome),
				Value: aws.String(string(outcome)),
			},
		},
	})
}

// RecordBatchSize emits the number of requests carried by one batch
// operation.
func (r *Recorder) RecordBatchSize(ctx context.Context, operation string, size int) {
	r.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricBatchSize),
		Value:      aws.Float64(float64(size)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String(DimOperation),
				Value: aws.String(operation),
			},
		},
	})
}

// RecordRefreshFailure counts failed sidecar refresh cycles.
func (r *Recorder) RecordRefreshFailure(ctx context.Context) {
	r.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricRefreshFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordParameterChange counts audited change events by action.
func (r *Recorder) RecordParameterChange(ctx context.Context, action string) {
	r.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricParameterChange),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String(DimAction),
				Value: aws.String(action),
			},
		},
	})
}

func (r *Recorder) put(ctx context.Context, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}

	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		r.logger.Error("failed to publish metric",
			"error", err.Error(),
			"metric", aws.ToString(datum.MetricName),
		)
	}
}
