package directory

import "context"

// Store persists directory entries keyed by username.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, username string) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	List(ctx context.Context) ([]*Entry, error)
}
