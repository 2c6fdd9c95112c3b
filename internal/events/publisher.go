// AngelaMos | 2026
// publisher.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carterperez-dev/uznavaykin/internal/subscription"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(
		name string,
		durable, autoDelete, exclusive, noWait bool,
		args amqp.Table,
	) (amqp.Queue, error)
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
}

// PurchasePublisher sends purchase events to a durable queue as persistent
// JSON messages.
type PurchasePublisher struct {
	mu        sync.Mutex
	ch        Channel
	queue     string
	published atomic.Int64
	failed    atomic.Int64
}

func NewPurchasePublisher(ch Channel, queue string) (*PurchasePublisher, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &PurchasePublisher{ch: ch, queue: queue}, nil
}

func (p *PurchasePublisher) PublishPurchase(
	ctx context.Context,
	event subscription.PurchaseEvent,
) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("marshal purchase event: %w", err)
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.EventID,
		Type:         "subscription." + string(event.Kind),
		Timestamp:    event.OccurredAt.UTC().Truncate(time.Second),
		Body:         body,
	})
	p.mu.Unlock()

	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("publish purchase event: %w", err)
	}

	p.published.Add(1)
	return nil
}

// Rebind declares the queue on a fresh channel and publishes through it
// from then on.
func (p *PurchasePublisher) Rebind(ch Channel) error {
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.mu.Lock()
	p.ch = ch
	p.mu.Unlock()
	return nil
}

type Stats struct {
	Queue     string `json:"queue"`
	Published int64  `json:"published"`
	Failed    int64  `json:"failed"`
}

func (p *PurchasePublisher) Stats() Stats {
	return Stats{
		Queue:     p.queue,
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}

var _ subscription.Publisher = (*PurchasePublisher)(nil)
