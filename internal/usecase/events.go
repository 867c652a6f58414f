package usecase

import (
	"context"

	"cipherid/internal/domain"
)

// announce fans a committed event out to the optional publisher. The store
// already holds the event, so a publish failure is absorbed rather than
// failing the operation that committed it.
func announce(ctx context.Context, publisher EventPublisher, event domain.Event) {
	if publisher == nil {
		return
	}
	_ = publisher.Publish(ctx, event)
}
