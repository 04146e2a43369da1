package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ragchat-api/internal/model"
	"ragchat-api/internal/platform/rabbitmq"
)

// ErrMalformedMessage marks deliveries that can never be stored. They are
// dropped; anything else goes back on the queue.
var ErrMalformedMessage = errors.New("malformed queued message")

type MessageWriter interface {
	Create(ctx context.Context, message *model.Message) error
}

// HistoryInvalidator is told when a conversation gained a persisted message.
type HistoryInvalidator interface {
	ClearDirty(ctx context.Context, conversationID uint) error
}

type MessagePersistWorker struct {
	conn      *amqp.Connection
	repo      MessageWriter
	history   HistoryInvalidator
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(conn *amqp.Connection, repo MessageWriter, history HistoryInvalidator, queueName string, logger *slog.Logger) *MessagePersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessagePersistWorker{
		conn:      conn,
		repo:      repo,
		history:   history,
		queueName: queueName,
		logger:    logger.With(slog.String("component", "message_worker"), slog.String("queue", queueName)),
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		w.logger.Info("message worker started")
		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					retry := shouldRequeue(err)
					w.logger.Error("persist message failed",
						slog.String("message_id", d.MessageId),
						slog.Bool("requeue", retry),
						slog.Any("error", err),
					)
					_ = d.Nack(false, retry)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle decodes and stores one queued message.
func (w *MessagePersistWorker) Handle(ctx context.Context, body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: decode failed: %v", ErrMalformedMessage, err)
	}
	if msg.ConversationID == 0 || msg.UserID == 0 {
		return fmt.Errorf("%w: missing conversation or user id", ErrMalformedMessage)
	}
	msg.ID = 0

	if err := w.repo.Create(ctx, &msg); err != nil {
		return err
	}
	if w.history != nil {
		if err := w.history.ClearDirty(ctx, msg.ConversationID); err != nil {
			w.logger.Warn("clear history marker failed", slog.Uint64("conversation_id", uint64(msg.ConversationID)), slog.Any("error", err))
		}
	}
	return nil
}

func shouldRequeue(err error) bool {
	return !errors.Is(err, ErrMalformedMessage)
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
