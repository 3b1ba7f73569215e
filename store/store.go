// Package store defines the unified storage interface for Payflow.
package store

import (
	"context"
	"time"

	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/stream"
)

// Store is the unified storage interface for all Payflow entities.
// Instead of embedding the per-domain interfaces, all methods are declared
// explicitly to avoid naming conflicts.
//
// Implementations persist three username-keyed tables (directory,
// schedules, streams) plus an append-only receipt log. No cross-table
// transactions are required: the engine serializes all writes per
// username, so each method only needs to be individually atomic.
type Store interface {
	// Directory methods
	CreateEntry(ctx context.Context, e *directory.Entry) error
	GetEntry(ctx context.Context, username string) (*directory.Entry, error)
	UpdateEntry(ctx context.Context, e *directory.Entry) error
	ListEntries(ctx context.Context) ([]*directory.Entry, error)

	// Schedule methods
	PutSchedule(ctx context.Context, s *schedule.Schedule) error
	GetSchedule(ctx context.Context, username string) (*schedule.Schedule, error)
	UpdateSchedule(ctx context.Context, s *schedule.Schedule) error
	ListDueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error)

	// Stream methods
	PutStream(ctx context.Context, s *stream.Stream) error
	GetStream(ctx context.Context, username string) (*stream.Stream, error)
	UpdateStream(ctx context.Context, s *stream.Stream) error
	ListActiveStreams(ctx context.Context) ([]*stream.Stream, error)

	// Receipt methods
	CreateReceipt(ctx context.Context, r *receipt.Receipt) error
	ListReceipts(ctx context.Context, username string, opts receipt.ListOpts) ([]*receipt.Receipt, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
