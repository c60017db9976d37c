package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher буферизует события и доставляет их в фоне.
type Dispatcher struct {
	events  chan Event
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher создаёт диспетчер с очередью размера size.
// timeout ограничивает доставку одного события.
func NewDispatcher(sender Sender, size int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		events:  make(chan Event, size),
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

// Publish ставит событие в очередь и никогда не блокирует вызывающего.
// При переполненной очереди событие теряется.
func (d *Dispatcher) Publish(e Event) {
	select {
	case d.events <- e:
	default:
		d.logger.Warn("notification queue is full, event dropped",
			zap.String("kind", string(e.Kind)),
			zap.String("order_id", e.Order.ID),
		)
	}
}

// Run доставляет события до отмены ctx, затем дожидается доставки уже поставленных в очередь.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case e := <-d.events:
			d.deliver(e)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.events:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.sender.Send(ctx, e); err != nil {
		d.logger.Warn("notification delivery failed",
			zap.String("kind", string(e.Kind)),
			zap.String("order_id", e.Order.ID),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("notification delivered",
		zap.String("kind", string(e.Kind)),
		zap.String("order_id", e.Order.ID),
	)
}
