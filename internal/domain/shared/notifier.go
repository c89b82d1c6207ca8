package shared

import "context"

// Notification is an outbound message to a tenant contact (budget alerts,
// payment confirmations, subscription status changes).
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers notifications on a best-effort basis. Implementations must
// not be relied on for correctness: lifecycle transitions commit regardless of
// whether the notification could be sent.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
