// Package queue provides the SQS producer that fans alert lifecycle events
// out to downstream notification workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"floodwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertPublisher serializes AlertEvents and sends them to the alert queue.
// Notification delivery itself (SMS, email) is a downstream worker's concern.
type AlertPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewAlertPublisher creates an AlertPublisher for the given queue URL.
func NewAlertPublisher(client SQSSender, queueURL string, logger *slog.Logger) *AlertPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertPublisher{client: client, queueURL: queueURL, logger: logger}
}

// PublishAlertEvent sends one lifecycle event to the alert queue. The hazard
// type rides along as a message attribute so workers can filter without
// deserializing the body.
func (p *AlertPublisher) PublishAlertEvent(ctx context.Context, event types.AlertEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal AlertEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"hazard_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.HazardType)),
			},
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Kind),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send AlertEvent to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "alert event published",
		"queue_url", p.queueURL,
		"event_id", event.EventID,
		"kind", event.Kind,
		"alert_id", event.AlertID,
		"hazard_type", string(event.HazardType),
		"severity", event.Severity.String(),
	)
	return nil
}
