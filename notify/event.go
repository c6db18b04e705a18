package notify

import (
	"slices"

	"teleshop/models"
)

// Event is the value built once per notify-worthy save. It is never re-read
// from the store, so later mutations of the order do not leak into a fan-out
// that is already running.
type Event struct {
	Order    models.Order
	Previous models.OrderStatus // empty when there was no prior row
	Current  models.OrderStatus
	IsNew    bool
}

// NewEvent snapshots order. The items slice is copied.
func NewEvent(order models.Order, previous models.OrderStatus, created bool) Event {
	order.Items = slices.Clone(order.Items)
	if order.DeliveryTime != nil {
		dt := *order.DeliveryTime
		order.DeliveryTime = &dt
	}
	ev := Event{
		Order:   order,
		Current: order.Status,
		IsNew:   created,
	}
	if !created {
		ev.Previous = previous
	}
	return ev
}

// StatusChanged reports whether the event carries an old status different from the new one.
func (e Event) StatusChanged() bool {
	return e.Previous != "" && e.Previous != e.Current
}
