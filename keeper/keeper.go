// Package keeper drives payment execution from outside the engine.
//
// The engine is purely reactive: schedules and streams only pay out when
// some authorized caller invokes the execute operations. Keeper is that
// caller — a ticker loop that, on each tick, executes every due schedule
// and every active stream under a fixed caller identity. Per-username
// failures are logged and skipped; the loop never stops on them.
package keeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/stream"
	"github.com/xraph/payflow/types"
)

// Engine is the subset of the payflow engine the keeper drives.
type Engine interface {
	DueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error)
	ActiveStreams(ctx context.Context) ([]*stream.Stream, error)
	ExecutePayment(ctx context.Context, caller types.Address, username string, now time.Time) (*receipt.Receipt, error)
	ExecuteStream(ctx context.Context, caller types.Address, username string, now time.Time) (*receipt.Receipt, error)
}

// Keeper periodically executes due payments.
type Keeper struct {
	engine   Engine
	caller   types.Address
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a keeper that executes payments as caller.
func New(e Engine, caller types.Address, opts ...Option) *Keeper {
	k := &Keeper{
		engine:   e,
		caller:   caller,
		interval: time.Minute,
		logger:   slog.Default(),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// Option configures a Keeper instance.
type Option func(*Keeper)

// WithInterval sets the tick interval. The default is one minute.
func WithInterval(d time.Duration) Option {
	return func(k *Keeper) {
		if d > 0 {
			k.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Keeper) {
		k.logger = logger
	}
}

// WithClock overrides the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) {
		k.now = now
	}
}

// Start begins the tick loop in the background.
func (k *Keeper) Start(ctx context.Context) {
	k.wg.Add(1)
	go k.run(ctx)

	k.logger.Info("keeper started",
		"interval", k.interval,
		"caller", k.caller,
	)
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (k *Keeper) Stop() {
	close(k.stopChan)
	k.wg.Wait()
}

func (k *Keeper) run(ctx context.Context) {
	defer k.wg.Done()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Tick(ctx)
		}
	}
}

// Tick runs one execution pass: every due schedule, then every active
// stream. Exported so callers can drive the keeper from their own
// scheduler (or tests) instead of the internal ticker.
func (k *Keeper) Tick(ctx context.Context) {
	now := k.now()

	due, err := k.engine.DueSchedules(ctx, now)
	if err != nil {
		k.logger.Error("keeper: list due schedules", "error", err)
	} else {
		for _, s := range due {
			if _, err := k.engine.ExecutePayment(ctx, k.caller, s.Username, now); err != nil {
				k.logger.Warn("keeper: execute payment",
					"username", s.Username,
					"error", err,
				)
			}
		}
	}

	active, err := k.engine.ActiveStreams(ctx)
	if err != nil {
		k.logger.Error("keeper: list active streams", "error", err)
		return
	}
	for _, s := range active {
		if _, err := k.engine.ExecuteStream(ctx, k.caller, s.Username, now); err != nil {
			k.logger.Warn("keeper: execute stream",
				"username", s.Username,
				"error", err,
			)
		}
	}
}
