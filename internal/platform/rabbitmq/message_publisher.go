package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"ragchat-api/internal/model"
)

type MessagePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewMessagePublisher(conn *amqp.Connection, queueName string) *MessagePublisher {
	return &MessagePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// EncodeMessage builds the persistent delivery for a chat message.
func EncodeMessage(msg model.Message) (amqp.Publishing, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message payload failed: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         "chat.message",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	}, nil
}

func (p *MessagePublisher) Publish(ctx context.Context, msg model.Message) error {
	publishing, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, publishing); err != nil {
		return fmt.Errorf("publish message failed: %w", err)
	}
	return nil
}
