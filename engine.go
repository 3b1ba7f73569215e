package payflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/plugin"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/store"
	"github.com/xraph/payflow/stream"
	"github.com/xraph/payflow/types"
)

// Engine is the payment state machine. It owns the username directory,
// the schedule and stream tables, performs the accrual math, and issues
// transfer instructions to the external Ledger collaborator.
//
// The engine is purely reactive: it never reads a wall clock and never
// triggers its own execution. Time-sensitive operations take an explicit
// now parameter, and liveness depends on an external caller (see the
// keeper package) invoking the execute operations at some cadence.
//
// Operations against the same username serialize; operations against
// different usernames proceed in parallel.
type Engine struct {
	store   store.Store
	ledger  Ledger
	authz   Authorizer
	plugins *plugin.Registry
	logger  *slog.Logger

	rearmInterval time.Duration

	started atomic.Bool
	locks   sync.Map // username -> *sync.Mutex
}

// New creates a new Engine instance. A Ledger must be configured via
// WithLedger before Start; the Authorizer defaults to AllowAll.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		authz:         AllowAll{},
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		rearmInterval: schedule.DefaultInterval,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithLedger sets the external value-transfer collaborator.
func WithLedger(l Ledger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// WithAuthorizer sets the external permission framework collaborator.
func WithAuthorizer(a Authorizer) Option {
	return func(e *Engine) {
		e.authz = a
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRearmInterval overrides the recurring-schedule interval. The
// default is 30 days.
func WithRearmInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.rearmInterval = d
		}
	}
}

// Start initializes the engine: migrates the store and emits plugin init.
// It must be called exactly once before any other operation; a second
// call fails with ErrAlreadyInitialized.
func (e *Engine) Start(ctx context.Context) error {
	if e.ledger == nil {
		return ErrNoLedger
	}
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	if err := e.store.Migrate(ctx); err != nil {
		e.started.Store(false)
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("payflow engine started",
		"rearm_interval", e.rearmInterval,
	)

	return nil
}

// Stop shuts down the engine and closes the store.
func (e *Engine) Stop() error {
	if !e.started.CompareAndSwap(true, false) {
		return ErrNotInitialized
	}

	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// ready guards every operation against use before Start.
func (e *Engine) ready() error {
	if !e.started.Load() {
		return ErrNotInitialized
	}
	return nil
}

// lock serializes operations on one username. Returns the unlock func.
func (e *Engine) lock(username string) func() {
	v, _ := e.locks.LoadOrStore(username, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// authorize runs the capability guard.
func (e *Engine) authorize(ctx context.Context, cap Capability, caller types.Address) error {
	if !allows(ctx, e.authz, cap, caller) {
		return ErrNotAuthorized
	}
	return nil
}

// ──────────────────────────────────────────────────
// Username Directory
// ──────────────────────────────────────────────────

// ClaimUsername binds username to the caller's address, first-claim-wins.
// No capability is required: anyone may claim a free username, and only
// the resulting owner may redirect it afterwards.
func (e *Engine) ClaimUsername(ctx context.Context, username string, caller types.Address) (*directory.Entry, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if caller.IsZero() {
		return nil, ErrInvalidInput
	}

	unlock := e.lock(username)
	defer unlock()

	existing, err := e.store.GetEntry(ctx, username)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyClaimed
	}

	entry := directory.New(username, caller)
	if err := e.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitUsernameClaimed(ctx, entry)
	e.logger.Debug("username claimed",
		"username", username,
		"address", caller,
	)

	return entry, nil
}

// UpdateUserAddress redirects the username's payout destination. Only the
// current owner may redirect; redirecting to the zero address retires the
// username for payment purposes while keeping the slot. Redirecting to
// the current address is legal and still signals a change event.
func (e *Engine) UpdateUserAddress(ctx context.Context, username string, caller, newAddr types.Address) (*directory.Entry, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, ErrEmptyUsername
	}

	unlock := e.lock(username)
	defer unlock()

	entry, err := e.store.GetEntry(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !entry.OwnedBy(caller) {
		return nil, ErrNotAuthorized
	}

	cp := *entry
	cp.Redirect(newAddr)
	if err := e.store.UpdateEntry(ctx, &cp); err != nil {
		return nil, err
	}

	e.plugins.EmitAddressUpdated(ctx, &cp)
	e.logger.Debug("address updated",
		"username", username,
		"address", newAddr,
	)

	return &cp, nil
}

// ResolveUsername returns the address bound to username, or
// ErrUserNotFound if the username was never claimed.
func (e *Engine) ResolveUsername(ctx context.Context, username string) (types.Address, error) {
	if err := e.ready(); err != nil {
		return types.ZeroAddress, err
	}

	entry, err := e.store.GetEntry(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return types.ZeroAddress, ErrUserNotFound
		}
		return types.ZeroAddress, err
	}

	return entry.Address, nil
}

// GetUserAddress is the total variant of ResolveUsername: an unclaimed
// username returns the zero address rather than an error.
func (e *Engine) GetUserAddress(ctx context.Context, username string) (types.Address, error) {
	addr, err := e.ResolveUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return types.ZeroAddress, nil
	}
	return addr, err
}

// ──────────────────────────────────────────────────
// Schedules
// ──────────────────────────────────────────────────

// CreateSchedule creates a one-time or recurring schedule for username.
// A payout date strictly after now selects a one-time schedule due at
// that date; the zero time or any date at/before now selects a recurring
// schedule first due one interval from now.
func (e *Engine) CreateSchedule(ctx context.Context, caller types.Address, username string, amount uint64, token types.Token, oneTimePayoutDate, now time.Time) (*schedule.Schedule, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, CapabilityCreatePayment, caller); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	unlock := e.lock(username)
	defer unlock()

	if err := e.requireOwner(ctx, username); err != nil {
		return nil, err
	}

	existing, err := e.store.GetSchedule(ctx, username)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.Active {
		return nil, ErrActivePayment
	}

	s := schedule.New(username, amount, token, oneTimePayoutDate, now, e.rearmInterval)
	if err := e.store.PutSchedule(ctx, s); err != nil {
		return nil, err
	}

	e.plugins.EmitScheduleCreated(ctx, s)
	e.logger.Debug("schedule created",
		"username", username,
		"amount", amount,
		"token", token,
		"one_time", s.OneTime,
		"next_payout", s.NextPayout,
	)

	return s, nil
}

// ExecutePayment executes the username's schedule if it is due at now.
// A missing, inactive, or not-yet-due schedule is a silent skip — the
// call returns (nil, nil) with no state change, so keepers may invoke it
// at any cadence. On a due schedule exactly one transfer is issued; the
// state mutation commits only after the transfer succeeds.
func (e *Engine) ExecutePayment(ctx context.Context, caller types.Address, username string, now time.Time) (*receipt.Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, CapabilityExecutePayment, caller); err != nil {
		return nil, err
	}

	unlock := e.lock(username)
	defer unlock()

	s, err := e.store.GetSchedule(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !s.Due(now) {
		return nil, nil
	}

	to, err := e.recipient(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := e.transfer(ctx, username, s.Token, to, s.Amount); err != nil {
		return nil, err
	}

	cp := *s
	cp.Advance(now, e.rearmInterval)
	if err := e.store.UpdateSchedule(ctx, &cp); err != nil {
		return nil, err
	}

	rcpt := receipt.New(username, s.Token, to, s.Amount, receipt.KindSchedule, now)
	if err := e.store.CreateReceipt(ctx, rcpt); err != nil {
		return nil, err
	}

	e.plugins.EmitPaymentExecuted(ctx, rcpt)
	e.logger.Info("payment executed",
		"username", username,
		"amount", s.Amount,
		"token", s.Token,
		"to", to,
		"one_time", s.OneTime,
	)

	return rcpt, nil
}

// CancelSchedule administratively deactivates the username's schedule.
func (e *Engine) CancelSchedule(ctx context.Context, caller types.Address, username string, now time.Time) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(ctx, CapabilityCreatePayment, caller); err != nil {
		return err
	}

	unlock := e.lock(username)
	defer unlock()

	s, err := e.store.GetSchedule(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return ErrNoActivePayment
		}
		return err
	}
	if !s.Active {
		return ErrNoActivePayment
	}

	cp := *s
	cp.Deactivate(now)
	if err := e.store.UpdateSchedule(ctx, &cp); err != nil {
		return err
	}

	e.plugins.EmitScheduleCanceled(ctx, &cp)
	return nil
}

// GetSchedule returns the username's schedule, or nil if none exists.
// It never fails on missing state.
func (e *Engine) GetSchedule(ctx context.Context, username string) (*schedule.Schedule, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	s, err := e.store.GetSchedule(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// DueSchedules lists every schedule due at now, for external keepers.
func (e *Engine) DueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.store.ListDueSchedules(ctx, now)
}

// ──────────────────────────────────────────────────
// Streams
// ──────────────────────────────────────────────────

// CreateStream creates a linear payment stream of amount over
// [now, endDate] for username.
func (e *Engine) CreateStream(ctx context.Context, caller types.Address, username string, amount uint64, token types.Token, endDate, now time.Time) (*stream.Stream, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, CapabilityCreatePayment, caller); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !endDate.After(now) {
		return nil, ErrInvalidEndDate
	}

	unlock := e.lock(username)
	defer unlock()

	if err := e.requireOwner(ctx, username); err != nil {
		return nil, err
	}

	existing, err := e.store.GetStream(ctx, username)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.Active {
		return nil, ErrActivePayment
	}

	s := stream.New(username, amount, token, endDate, now)
	if err := e.store.PutStream(ctx, s); err != nil {
		return nil, err
	}

	e.plugins.EmitStreamCreated(ctx, s)
	e.logger.Debug("stream created",
		"username", username,
		"amount", amount,
		"token", token,
		"end_date", endDate,
	)

	return s, nil
}

// ExecuteStream pays out the stream increment accrued since the last
// checkpoint. Past the end date the stream deactivates with no transfer;
// any residual between the last checkpoint and the end date is forfeited
// by policy. A zero accrual (rapid repeated execution) transfers nothing
// and does not advance the checkpoint, so no accrual is lost. The state
// mutation commits only after the transfer succeeds.
func (e *Engine) ExecuteStream(ctx context.Context, caller types.Address, username string, now time.Time) (*receipt.Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, CapabilityExecutePayment, caller); err != nil {
		return nil, err
	}

	unlock := e.lock(username)
	defer unlock()

	s, err := e.store.GetStream(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNoActivePayment
		}
		return nil, err
	}
	if !s.Active {
		return nil, ErrNoActivePayment
	}

	if s.Ended(now) {
		cp := *s
		cp.Deactivate(now)
		if err := e.store.UpdateStream(ctx, &cp); err != nil {
			return nil, err
		}
		e.plugins.EmitStreamEnded(ctx, &cp)
		e.logger.Info("stream ended",
			"username", username,
			"end_date", s.EndDate,
		)
		return nil, nil
	}

	payout, err := s.Accrued(now)
	if err != nil {
		return nil, err
	}
	if payout == 0 {
		return nil, nil
	}

	to, err := e.recipient(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := e.transfer(ctx, username, s.Token, to, payout); err != nil {
		return nil, err
	}

	cp := *s
	cp.Checkpoint(now)
	if err := e.store.UpdateStream(ctx, &cp); err != nil {
		return nil, err
	}

	rcpt := receipt.New(username, s.Token, to, payout, receipt.KindStream, now)
	if err := e.store.CreateReceipt(ctx, rcpt); err != nil {
		return nil, err
	}

	e.plugins.EmitStreamAccrued(ctx, rcpt)
	e.logger.Info("stream accrued",
		"username", username,
		"amount", payout,
		"token", s.Token,
		"to", to,
	)

	return rcpt, nil
}

// CancelStream administratively deactivates the username's stream.
func (e *Engine) CancelStream(ctx context.Context, caller types.Address, username string, now time.Time) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(ctx, CapabilityCreatePayment, caller); err != nil {
		return err
	}

	unlock := e.lock(username)
	defer unlock()

	s, err := e.store.GetStream(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return ErrNoActivePayment
		}
		return err
	}
	if !s.Active {
		return ErrNoActivePayment
	}

	cp := *s
	cp.Deactivate(now)
	if err := e.store.UpdateStream(ctx, &cp); err != nil {
		return err
	}

	e.plugins.EmitStreamCanceled(ctx, &cp)
	return nil
}

// GetStream returns the username's stream, or nil if none exists. It
// never fails on missing state.
func (e *Engine) GetStream(ctx context.Context, username string) (*stream.Stream, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	s, err := e.store.GetStream(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ActiveStreams lists every active stream, for external keepers.
func (e *Engine) ActiveStreams(ctx context.Context) ([]*stream.Stream, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.store.ListActiveStreams(ctx)
}

// ──────────────────────────────────────────────────
// Receipts
// ──────────────────────────────────────────────────

// Receipts lists the transfer receipts recorded for username.
func (e *Engine) Receipts(ctx context.Context, username string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.store.ListReceipts(ctx, username, opts)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// requireOwner fails with ErrUserNotFound unless username resolves to a
// payable address.
func (e *Engine) requireOwner(ctx context.Context, username string) error {
	entry, err := e.store.GetEntry(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if !entry.Payable() {
		return ErrUserNotFound
	}
	return nil
}

// recipient resolves the payout destination for username.
func (e *Engine) recipient(ctx context.Context, username string) (types.Address, error) {
	entry, err := e.store.GetEntry(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return types.ZeroAddress, ErrUserNotFound
		}
		return types.ZeroAddress, err
	}
	if !entry.Payable() {
		return types.ZeroAddress, ErrUserNotFound
	}
	return entry.Address, nil
}

// transfer calls the ledger and maps any failure to ErrTransferFailed,
// emitting the failure event. No state has been written when it fails.
func (e *Engine) transfer(ctx context.Context, username string, token types.Token, to types.Address, amount uint64) error {
	if err := e.ledger.Transfer(ctx, token, to, amount); err != nil {
		e.plugins.EmitTransferFailed(ctx, username, err)
		e.logger.Warn("transfer failed",
			"username", username,
			"amount", amount,
			"token", token,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
