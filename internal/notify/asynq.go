package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeOrderEvent тип задачи asynq с событием заявки.
	TypeOrderEvent = "notify:order-event"
	// QueueName очередь уведомлений в Redis.
	QueueName = "notifications"
)

// NewOrderEventTask упаковывает событие в задачу asynq.
func NewOrderEventTask(e Event) (*asynq.Task, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderEvent, data), nil
}

// AsynqForwarder передаёт события в очередь Redis вместо прямой отправки.
type AsynqForwarder struct {
	client   *asynq.Client
	maxRetry int
}

// NewAsynqForwarder создаёт клиента очереди по адресу Redis.
func NewAsynqForwarder(redisAddr string, maxRetry int) *AsynqForwarder {
	return &AsynqForwarder{
		client:   asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		maxRetry: maxRetry,
	}
}

// Send ставит событие в очередь.
func (f *AsynqForwarder) Send(ctx context.Context, e Event) error {
	task, err := NewOrderEventTask(e)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if _, err := f.client.EnqueueContext(ctx, task, asynq.Queue(QueueName), asynq.MaxRetry(f.maxRetry)); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (f *AsynqForwarder) Close() error {
	return f.client.Close()
}

// HandleOrderEventTask возвращает обработчик задач, доставляющий события через sender.
func HandleOrderEventTask(sender Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var e Event
		if err := json.Unmarshal(t.Payload(), &e); err != nil {
			return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
		}

		if err := sender.Send(ctx, e); err != nil {
			if errors.Is(err, ErrRejected) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// NewTaskServer создаёт сервер asynq, обрабатывающий очередь уведомлений.
func NewTaskServer(redisAddr string, sender Sender, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 2,
			Queues:      map[string]int{QueueName: 1},
			Logger:      logger.Sugar().Named("asynq"),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderEvent, HandleOrderEventTask(sender))

	return srv, mux
}
