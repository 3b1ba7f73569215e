// Package plugin provides an extensible plugin system for Payflow.
// Plugins can hook into payment lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Directory hooks
// ──────────────────────────────────────────────────

// OnUsernameClaimed is called when a username is first claimed.
type OnUsernameClaimed interface {
	Plugin
	OnUsernameClaimed(ctx context.Context, entry interface{}) error
}

// OnAddressUpdated is called when a username's bound address changes.
// A redirect to the same address still fires — a redirect is always
// signaled.
type OnAddressUpdated interface {
	Plugin
	OnAddressUpdated(ctx context.Context, entry interface{}) error
}

// ──────────────────────────────────────────────────
// Schedule hooks
// ──────────────────────────────────────────────────

// OnScheduleCreated is called when a schedule is created.
type OnScheduleCreated interface {
	Plugin
	OnScheduleCreated(ctx context.Context, sched interface{}) error
}

// OnScheduleCanceled is called when a schedule is administratively
// deactivated.
type OnScheduleCanceled interface {
	Plugin
	OnScheduleCanceled(ctx context.Context, sched interface{}) error
}

// OnPaymentExecuted is called after a scheduled payout transfers.
type OnPaymentExecuted interface {
	Plugin
	OnPaymentExecuted(ctx context.Context, rcpt interface{}) error
}

// ──────────────────────────────────────────────────
// Stream hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called when a stream is created.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, strm interface{}) error
}

// OnStreamAccrued is called after a stream accrual transfers.
type OnStreamAccrued interface {
	Plugin
	OnStreamAccrued(ctx context.Context, rcpt interface{}) error
}

// OnStreamEnded is called when a stream deactivates past its end date.
type OnStreamEnded interface {
	Plugin
	OnStreamEnded(ctx context.Context, strm interface{}) error
}

// OnStreamCanceled is called when a stream is administratively
// deactivated.
type OnStreamCanceled interface {
	Plugin
	OnStreamCanceled(ctx context.Context, strm interface{}) error
}

// ──────────────────────────────────────────────────
// Execution hooks
// ──────────────────────────────────────────────────

// OnTransferFailed is called when the ledger collaborator rejects a
// transfer. The execute call has already failed atomically by the time
// this fires.
type OnTransferFailed interface {
	Plugin
	OnTransferFailed(ctx context.Context, username string, err error) error
}
