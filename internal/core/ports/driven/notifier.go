package driven

import (
	"context"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Notifier delivers alert events to the operator channel.
// Delivery is fire-and-forget: implementations must not block the caller
// beyond the context deadline, and errors are logged, never propagated
// into scheduling decisions.
type Notifier interface {
	Notify(ctx context.Context, event domain.AlertEvent) error
}
