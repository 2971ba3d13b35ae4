// Package queue holds heartbeats that could not be delivered. Entries
// enter on failed delivery and leave only after their batch is
// acknowledged; ordering follows enqueue order.
package queue

import (
	"context"

	"github.com/codepulse/codepulse/internal/model"
)

type Queue interface {
	// Enqueue appends a heartbeat and persists it before returning.
	Enqueue(ctx context.Context, hb model.Heartbeat) error

	// NextBatch returns up to limit heartbeats from the front without
	// removing them. A failed delivery therefore leaves the queue intact.
	NextBatch(ctx context.Context, limit int) ([]model.Heartbeat, error)

	// Remove deletes the heartbeats with the given IDs after a delivery
	// attempt for their batch succeeded.
	Remove(ctx context.Context, ids []string) error

	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]model.Heartbeat, error)
	Close() error
}
