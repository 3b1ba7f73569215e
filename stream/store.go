package stream

import "context"

// Store persists streams keyed by username. Each username has a single
// slot: Put replaces whatever occupies it (the engine guarantees the slot
// never holds an active stream when Put is called).
type Store interface {
	Put(ctx context.Context, s *Stream) error
	Get(ctx context.Context, username string) (*Stream, error)
	Update(ctx context.Context, s *Stream) error
	ListActive(ctx context.Context) ([]*Stream, error)
}
