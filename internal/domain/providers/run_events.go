package providers

import (
	"context"
	"time"
)

// RunEvent is published on RunEventChannel after a summary is stored.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Scope     string    `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
}

// RunEventBus delivers run announcements to in-process listeners.
type RunEventBus interface {
	// Subscribe returns a channel of run events. The channel is closed when
	// ctx is done or the bus is closed.
	Subscribe(ctx context.Context) (<-chan *RunEvent, error)

	// SubscriberCount returns the number of active listeners.
	SubscriberCount() int

	// Close stops delivery and closes every subscriber channel.
	Close() error
}
