package payflow

import "github.com/xraph/payflow/types"

// Re-export common types for convenience so users don't have to import
// the types package.

// Token is re-exported from types package.
type Token = types.Token

// Address is re-exported from types package.
type Address = types.Address

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export common constants and constructors
const (
	Native      = types.Native
	ZeroAddress = types.ZeroAddress
)

var (
	NewEntity = types.NewEntity
	MulDiv    = types.MulDiv
)
