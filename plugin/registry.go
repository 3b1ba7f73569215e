package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onUsernameClaimed  []OnUsernameClaimed
	onAddressUpdated   []OnAddressUpdated
	onScheduleCreated  []OnScheduleCreated
	onScheduleCanceled []OnScheduleCanceled
	onPaymentExecuted  []OnPaymentExecuted
	onStreamCreated    []OnStreamCreated
	onStreamAccrued    []OnStreamAccrued
	onStreamEnded      []OnStreamEnded
	onStreamCanceled   []OnStreamCanceled
	onTransferFailed   []OnTransferFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnUsernameClaimed); ok {
		r.onUsernameClaimed = append(r.onUsernameClaimed, v)
	}
	if v, ok := p.(OnAddressUpdated); ok {
		r.onAddressUpdated = append(r.onAddressUpdated, v)
	}
	if v, ok := p.(OnScheduleCreated); ok {
		r.onScheduleCreated = append(r.onScheduleCreated, v)
	}
	if v, ok := p.(OnScheduleCanceled); ok {
		r.onScheduleCanceled = append(r.onScheduleCanceled, v)
	}
	if v, ok := p.(OnPaymentExecuted); ok {
		r.onPaymentExecuted = append(r.onPaymentExecuted, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnStreamAccrued); ok {
		r.onStreamAccrued = append(r.onStreamAccrued, v)
	}
	if v, ok := p.(OnStreamEnded); ok {
		r.onStreamEnded = append(r.onStreamEnded, v)
	}
	if v, ok := p.(OnStreamCanceled); ok {
		r.onStreamCanceled = append(r.onStreamCanceled, v)
	}
	if v, ok := p.(OnTransferFailed); ok {
		r.onTransferFailed = append(r.onTransferFailed, v)
	}

	return nil
}

// Plugins returns the names of all registered plugins.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUsernameClaimed emits a username claimed event.
func (r *Registry) EmitUsernameClaimed(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onUsernameClaimed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUsernameClaimed(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnUsernameClaimed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAddressUpdated emits an address updated event.
func (r *Registry) EmitAddressUpdated(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onAddressUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAddressUpdated(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnAddressUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitScheduleCreated emits a schedule created event.
func (r *Registry) EmitScheduleCreated(ctx context.Context, sched interface{}) {
	r.mu.RLock()
	plugins := r.onScheduleCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnScheduleCreated(ctx, sched)
		}); err != nil {
			r.logger.Warn("plugin OnScheduleCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitScheduleCanceled emits a schedule canceled event.
func (r *Registry) EmitScheduleCanceled(ctx context.Context, sched interface{}) {
	r.mu.RLock()
	plugins := r.onScheduleCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnScheduleCanceled(ctx, sched)
		}); err != nil {
			r.logger.Warn("plugin OnScheduleCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentExecuted emits a payment executed event.
func (r *Registry) EmitPaymentExecuted(ctx context.Context, rcpt interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentExecuted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentExecuted(ctx, rcpt)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentExecuted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCreated emits a stream created event.
func (r *Registry) EmitStreamCreated(ctx context.Context, strm interface{}) {
	r.mu.RLock()
	plugins := r.onStreamCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCreated(ctx, strm)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamAccrued emits a stream accrued event.
func (r *Registry) EmitStreamAccrued(ctx context.Context, rcpt interface{}) {
	r.mu.RLock()
	plugins := r.onStreamAccrued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamAccrued(ctx, rcpt)
		}); err != nil {
			r.logger.Warn("plugin OnStreamAccrued failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamEnded emits a stream ended event.
func (r *Registry) EmitStreamEnded(ctx context.Context, strm interface{}) {
	r.mu.RLock()
	plugins := r.onStreamEnded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamEnded(ctx, strm)
		}); err != nil {
			r.logger.Warn("plugin OnStreamEnded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCanceled emits a stream canceled event.
func (r *Registry) EmitStreamCanceled(ctx context.Context, strm interface{}) {
	r.mu.RLock()
	plugins := r.onStreamCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCanceled(ctx, strm)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransferFailed emits a transfer failed event.
func (r *Registry) EmitTransferFailed(ctx context.Context, username string, cause error) {
	r.mu.RLock()
	plugins := r.onTransferFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferFailed(ctx, username, cause)
		}); err != nil {
			r.logger.Warn("plugin OnTransferFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout invokes fn with a hard timeout so a stuck plugin cannot
// wedge the engine.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
