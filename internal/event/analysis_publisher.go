package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const AnalysisQueue = "analysis_completed_events"

// AnalysisCompletedEvent is published after a diagnosis finishes so the
// notification consumer can alert the farmer.
type AnalysisCompletedEvent struct {
	AnalysisID      string    `json:"analysis_id"`
	CropID          string    `json:"crop_id"`
	FarmerID        string    `json:"farmer_id"`
	CropName        string    `json:"crop_name"`
	DiseaseName     string    `json:"disease_name"`
	IsHealthy       bool      `json:"is_healthy"`
	ConfidenceLevel float64   `json:"confidence_level"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

type AnalysisPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

// NewAnalysisPublisher creates a new analysis event publisher. A nil connection
// yields a publisher that drops events, so messaging stays optional at startup.
func NewAnalysisPublisher(conn *RabbitMQConnection) *AnalysisPublisher {
	return &AnalysisPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// PublishAnalysisCompleted publishes an event to the analysis_completed_events queue
func (p *AnalysisPublisher) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompletedEvent) error {
	if p.conn == nil {
		return nil
	}

	_, err := p.conn.Channel.QueueDeclare(
		AnalysisQueue, // queue name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal analysis event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",            // exchange
		AnalysisQueue, // routing key (queue name)
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish analysis event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Analysis event published",
		"queue", AnalysisQueue,
		"crop_id", event.CropID,
	)

	return nil
}
