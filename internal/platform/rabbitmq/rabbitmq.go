package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// New dials the broker and makes sure the given durable queues exist, which
// doubles as the reachability check.
func New(ctx context.Context, url string, queues ...string) (*amqp.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(3 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	for _, queue := range queues {
		if err := dialCtx.Err(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq setup timeout: %w", err)
		}
		if _, err := DeclareQueue(ch, queue); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// DeclareQueue declares the durable, non-exclusive queue shared by the
// publisher and the persist worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	queue, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return queue, nil
}
