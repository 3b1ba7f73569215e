package schedule

import (
	"context"
	"time"
)

// Store persists schedules keyed by username. Each username has a single
// slot: Put replaces whatever occupies it (the engine guarantees the slot
// never holds an active schedule when Put is called).
type Store interface {
	Put(ctx context.Context, s *Schedule) error
	Get(ctx context.Context, username string) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	ListDue(ctx context.Context, now time.Time) ([]*Schedule, error)
}
