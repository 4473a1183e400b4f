package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// AMQPActivityQueue публикует события активности в RabbitMQ.
// Очередь объявляется durable, сообщения — persistent.
type AMQPActivityQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewAMQPActivityQueue подключается к брокеру и объявляет очередь.
func NewAMQPActivityQueue(amqpURL, queue string) (*AMQPActivityQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPActivityQueue{conn: conn, channel: channel, queue: queue}, nil
}

// Publish отправляет событие в очередь.
func (q *AMQPActivityQueue) Publish(ctx context.Context, event domain.ActivityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Consume возвращает канал входящих событий. Сообщения с битым JSON отбрасываются с nack.
func (q *AMQPActivityQueue) Consume(ctx context.Context) (<-chan domain.ActivityEvent, error) {
	deliveries, err := q.channel.ConsumeWithContext(ctx, q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume queue: %w", err)
	}
	out := make(chan domain.ActivityEvent)
	go func() {
		defer close(out)
		for d := range deliveries {
			var event domain.ActivityEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			select {
			case out <- event:
				_ = d.Ack(false)
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
		}
	}()
	return out, nil
}

// Close закрывает канал и соединение.
func (q *AMQPActivityQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	return q.conn.Close()
}
