package messaging

import (
	"context"
	"sync"
	"time"
)

// guard holds the closed flag shared by every driver and the checks each
// Publish runs before touching the network.
type guard struct {
	mu     sync.Mutex
	closed bool
}

// shut marks the driver closed. It reports false when it was already closed,
// so Close stays idempotent.
func (g *guard) shut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	g.closed = true
	return true
}

func (g *guard) admit(ctx context.Context, destination string, msg OutgoingMessage, delays bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if msg.Delay > 0 && !delays {
		return ErrUnsupported
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	return nil
}

func sent(destination, id string) PublishResult {
	return PublishResult{MessageID: id, Topic: destination, Timestamp: time.Now()}
}
