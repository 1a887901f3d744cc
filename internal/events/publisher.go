// README: Post-commit publisher for delivery-job status-change events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobStatusEvent is the wire payload emitted after a delivery-job transition
// commits. Consumers (ops dashboards, alerting) bind on
// "delivery_job.<new_status>" routing keys.
type JobStatusEvent struct {
	JobID      string    `json:"job_id"`
	OrderID    string    `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	AgencyID   *string   `json:"agency_id,omitempty"`
	ActorType  string    `json:"actor_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	JobStatusChanged(ctx context.Context, e JobStatusEvent) error
}

type amqpPublisher struct {
	conn     *amqp.Connection
	exchange string
}

func NewAMQPPublisher(conn *amqp.Connection, exchange string) Publisher {
	return &amqpPublisher{conn: conn, exchange: exchange}
}

func (p *amqpPublisher) JobStatusChanged(ctx context.Context, e JobStatusEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	routingKey := fmt.Sprintf("delivery_job.%s", e.ToStatus)
	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Noop is used when no broker is configured; transitions still commit.
type Noop struct{}

func (Noop) JobStatusChanged(context.Context, JobStatusEvent) error { return nil }
