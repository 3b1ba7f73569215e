// Package memory provides an in-memory Store for tests and demos.
//
// All reads return copies of stored state: a caller can mutate what it
// got back without committing anything, and only Update/Put calls write
// through. The engine's atomic-commit discipline depends on this.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	payflowstore "github.com/xraph/payflow/store"
	"github.com/xraph/payflow/stream"
)

// compile-time interface check
var _ payflowstore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	entries   map[string]directory.Entry
	schedules map[string]schedule.Schedule
	streams   map[string]stream.Stream
	receipts  []receipt.Receipt
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		entries:   make(map[string]directory.Entry),
		schedules: make(map[string]schedule.Schedule),
		streams:   make(map[string]stream.Stream),
		receipts:  make([]receipt.Receipt, 0),
	}
}

// Directory Store implementation

func (s *Store) CreateEntry(_ context.Context, e *directory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.Username]; exists {
		return payflow.ErrAlreadyExists
	}
	s.entries[e.Username] = *e
	return nil
}

func (s *Store) GetEntry(_ context.Context, username string) (*directory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[username]; ok {
		cp := e
		return &cp, nil
	}
	return nil, payflow.ErrUserNotFound
}

func (s *Store) UpdateEntry(_ context.Context, e *directory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.Username]; !exists {
		return payflow.ErrUserNotFound
	}
	s.entries[e.Username] = *e
	return nil
}

func (s *Store) ListEntries(_ context.Context) ([]*directory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*directory.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// Schedule Store implementation

func (s *Store) PutSchedule(_ context.Context, sch *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[sch.Username] = *sch
	return nil
}

func (s *Store) GetSchedule(_ context.Context, username string) (*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sch, ok := s.schedules[username]; ok {
		cp := sch
		return &cp, nil
	}
	return nil, payflow.ErrScheduleNotFound
}

func (s *Store) UpdateSchedule(_ context.Context, sch *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[sch.Username]; !exists {
		return payflow.ErrScheduleNotFound
	}
	s.schedules[sch.Username] = *sch
	return nil
}

func (s *Store) ListDueSchedules(_ context.Context, now time.Time) ([]*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*schedule.Schedule, 0)
	for _, sch := range s.schedules {
		if sch.Due(now) {
			cp := sch
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// Stream Store implementation

func (s *Store) PutStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streams[st.Username] = *st
	return nil
}

func (s *Store) GetStream(_ context.Context, username string) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.streams[username]; ok {
		cp := st
		return &cp, nil
	}
	return nil, payflow.ErrStreamNotFound
}

func (s *Store) UpdateStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.streams[st.Username]; !exists {
		return payflow.ErrStreamNotFound
	}
	s.streams[st.Username] = *st
	return nil
}

func (s *Store) ListActiveStreams(_ context.Context) ([]*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*stream.Stream, 0)
	for _, st := range s.streams {
		if st.Active {
			cp := st
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// Receipt Store implementation

func (s *Store) CreateReceipt(_ context.Context, r *receipt.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.receipts = append(s.receipts, *r)
	return nil
}

func (s *Store) ListReceipts(_ context.Context, username string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*receipt.Receipt, 0)
	for i := range s.receipts {
		r := s.receipts[i]
		if r.Username != username {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		cp := r
		result = append(result, &cp)
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
