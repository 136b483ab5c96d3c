// Package observability emits operational metrics to CloudWatch: assessment
// outcomes, alert lifecycle activity, and poller ingestion counts. Metrics
// emission is best-effort and never affects request outcomes.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"floodwatch/internal/types"
)

// CloudWatchClient abstracts the PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metric and dimension names.
const (
	MetricAssessment      = "AssessmentCompleted"
	MetricAssessmentTime  = "AssessmentLatency"
	MetricAlertLifecycle  = "AlertLifecycle"
	MetricReadingIngested = "ReadingIngested"

	DimBackend = "Backend"
	DimBand    = "Band"
	DimKind    = "Kind"
	DimHazard  = "HazardType"
)

// Metrics publishes engine metrics to one CloudWatch namespace. A nil
// *Metrics is a valid no-op recorder, so callers never nil-check.
type Metrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewMetrics creates a Metrics publisher for the namespace.
func NewMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Metrics{client: client, namespace: namespace, logger: logger}
}

// RecordAssessment emits one completed assessment with its backend and band
// dimensions, plus the scoring latency.
func (m *Metrics) RecordAssessment(ctx context.Context, backend, band string, duration time.Duration) {
	if m == nil {
		return
	}
	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricAssessment),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(DimBackend), Value: aws.String(backend)},
				{Name: aws.String(DimBand), Value: aws.String(band)},
			},
		},
		{
			MetricName: aws.String(MetricAssessmentTime),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(DimBackend), Value: aws.String(backend)},
			},
		},
	})
}

// RecordAlertEvent emits one alert creation or escalation.
func (m *Metrics) RecordAlertEvent(ctx context.Context, kind string, hazard types.Parameter) {
	if m == nil {
		return
	}
	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricAlertLifecycle),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(DimKind), Value: aws.String(kind)},
				{Name: aws.String(DimHazard), Value: aws.String(string(hazard))},
			},
		},
	})
}

// RecordIngestion emits the number of readings a poller cycle stored.
func (m *Metrics) RecordIngestion(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricReadingIngested),
			Value:      aws.Float64(float64(count)),
			Unit:       cwtypes.StandardUnitCount,
		},
	})
}

func (m *Metrics) put(ctx context.Context, data []cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish metrics",
			"namespace", m.namespace,
			"error", err,
		)
	}
}
