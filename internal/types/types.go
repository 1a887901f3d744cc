// README: Common identifier and money value objects used across modules.
package types

// ID is an opaque entity identifier (UUID string in storage).
type ID string

// Money is an amount in minor units of a currency (XAF has no minor unit,
// so Amount is whole francs).
type Money struct {
	Amount   int64
	Currency string
}
