package interfaces

import "context"

// Notification severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notifier is a best-effort outward message channel. Delivery failures are
// swallowed by implementations; the controller never sees them.
type Notifier interface {
	Notify(ctx context.Context, message, severity string)
}
