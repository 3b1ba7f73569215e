package payflow

import (
	"context"

	"github.com/xraph/payflow/types"
)

// Capability is a tagged privilege checked at each operation boundary.
// Directory ownership (who may redirect a username's payouts) is separate
// from these organizational capabilities (who may configure and execute
// payments) — that dual-authority split is the core access-control idea.
type Capability uint8

const (
	// CapabilityCreatePayment guards schedule/stream creation and
	// cancellation.
	CapabilityCreatePayment Capability = iota + 1
	// CapabilityExecutePayment guards schedule/stream execution.
	CapabilityExecutePayment
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapabilityCreatePayment:
		return "create_payment"
	case CapabilityExecutePayment:
		return "execute_payment"
	default:
		return "unknown"
	}
}

// Authorizer is the external permission framework collaborator. The
// engine calls it as a pure guard before each privileged operation; a
// false result surfaces as ErrNotAuthorized. Inject a fake for
// deterministic tests.
type Authorizer interface {
	CanCreatePayment(ctx context.Context, caller types.Address) bool
	CanExecutePayment(ctx context.Context, caller types.Address) bool
}

// AuthorizerFunc adapts a single decision function into an Authorizer.
type AuthorizerFunc func(ctx context.Context, cap Capability, caller types.Address) bool

// CanCreatePayment implements Authorizer.
func (f AuthorizerFunc) CanCreatePayment(ctx context.Context, caller types.Address) bool {
	return f(ctx, CapabilityCreatePayment, caller)
}

// CanExecutePayment implements Authorizer.
func (f AuthorizerFunc) CanExecutePayment(ctx context.Context, caller types.Address) bool {
	return f(ctx, CapabilityExecutePayment, caller)
}

// AllowAll grants every capability to every caller. It is the default
// when no Authorizer is injected; production deployments should always
// supply their own.
type AllowAll struct{}

// CanCreatePayment implements Authorizer.
func (AllowAll) CanCreatePayment(context.Context, types.Address) bool { return true }

// CanExecutePayment implements Authorizer.
func (AllowAll) CanExecutePayment(context.Context, types.Address) bool { return true }

// allows dispatches a capability to the matching Authorizer method.
func allows(ctx context.Context, a Authorizer, cap Capability, caller types.Address) bool {
	switch cap {
	case CapabilityCreatePayment:
		return a.CanCreatePayment(ctx, caller)
	case CapabilityExecutePayment:
		return a.CanExecutePayment(ctx, caller)
	default:
		return false
	}
}
