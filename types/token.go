// Package types provides common types used across Payflow.
package types

import "strings"

// Token identifies the asset a payment is denominated in.
// The zero-decimal native asset of the host ledger uses the Native
// sentinel; fungible tokens use their own identifier (symbol, contract
// address, mint — whatever the ledger collaborator resolves).
//
// Amounts are always expressed as unsigned integers in the token's
// smallest unit. No floating point anywhere.
type Token string

// Native is the sentinel for the host ledger's native asset.
const Native Token = "native"

// IsNative reports whether the token is the native-asset sentinel.
func (t Token) IsNative() bool { return t == Native }

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool { return t == "" }

// String returns the token identifier.
func (t Token) String() string { return string(t) }

// Address is a payable destination on the external ledger.
type Address string

// ZeroAddress is the null destination. Binding a username to it retires
// the username for payment purposes while keeping the directory slot.
const ZeroAddress Address = ""

// IsZero reports whether the address is the null sentinel.
func (a Address) IsZero() bool { return a == ZeroAddress }

// String returns the address string.
func (a Address) String() string { return string(a) }

// Equal compares two addresses case-insensitively.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}
