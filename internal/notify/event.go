// Package notify реализует доставку уведомлений о заявках во внешний мессенджер.
//
// Сервис публикует события в Dispatcher, не дожидаясь доставки. Фоновый
// обработчик передаёт события в Sender; ошибки доставки только логируются.
package notify

import (
	"context"

	"github.com/mmeshcher/virtmarket/internal/model"
)

// EventKind тип события жизненного цикла заявки.
type EventKind string

const (
	EventOrderCreated  EventKind = "created"
	EventOrderApproved EventKind = "approved"
	EventOrderRejected EventKind = "rejected"
)

// Event событие, о котором нужно уведомить.
type Event struct {
	Kind  EventKind   `json:"kind"`
	Order model.Order `json:"order"`
}

// Sender доставляет одно событие получателю.
type Sender interface {
	Send(ctx context.Context, e Event) error
}

// NopSender молча отбрасывает события. Используется, когда реквизиты бота не заданы.
type NopSender struct{}

// Send ничего не делает.
func (NopSender) Send(context.Context, Event) error { return nil }
