package notify

import "errors"

var (
	// ErrNoItemsOrZeroTotal is returned by the formatter for an order that has no
	// items or sums to zero. The notification is suppressed instead of sent.
	ErrNoItemsOrZeroTotal = errors.New("notify: order has no items or zero total")
	// ErrSuppressedNotification is the policy no-op raised for ErrNoItemsOrZeroTotal.
	ErrSuppressedNotification = ErrNoItemsOrZeroTotal

	ErrNoRecipients       = errors.New("notify: no recipients")
	ErrChannelUnavailable = errors.New("notify: channel unavailable")
	ErrMediaUnavailable   = errors.New("notify: media unavailable")
	ErrRuntimeScheduling  = errors.New("notify: cannot schedule fan-out")
)
