package notify

import (
	"go.uber.org/zap"

	"teleshop/models"
)

// Notifier accepts an event for asynchronous delivery.
type Notifier interface {
	Dispatch(ev Event) error
}

// Trigger sits on the order write path. It decides whether a save is worth a
// notification and hands it off; it never reports an error back to the caller.
type Trigger struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewTrigger(notifier Notifier, logger *zap.Logger) *Trigger {
	return &Trigger{notifier: notifier, logger: logger}
}

// NotifyWorthy reports whether a save of an order with status current, whose status
// was previous right before the write, should notify anyone.
func NotifyWorthy(previous, current models.OrderStatus, created bool) bool {
	return created || previous != current
}

// OrderSaved must be called after order has been durably written. previous is the
// status captured before the write; it is ignored when created is true.
func (t *Trigger) OrderSaved(order models.Order, previous models.OrderStatus, created bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("order notification trigger panicked", zap.Int64("order_id", order.ID), zap.Any("panic", r))
		}
	}()

	if !NotifyWorthy(previous, order.Status, created) {
		return
	}
	ev := NewEvent(order, previous, created)
	if err := t.notifier.Dispatch(ev); err != nil {
		t.logger.Error("order notification not scheduled",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.Error(err),
		)
	}
}
