// Package domain holds the typed identifiers and scalar primitives shared
// by every other package in the clearing house: account/order/position ids,
// the millisecond time/duration scalars, and the half-open trigger window.
package domain

import "fmt"

// AccountId identifies a ledger account, unique within the process.
type AccountId string

// OrderId identifies an Order within its orderbook.
type OrderId string

// PositionId identifies a Position. It is always deterministically derived
// from (AccountId, OrderId) via PositionIdFor so that repeated fills by the
// same taker against the same order aggregate into one position.
type PositionId string

// OrderbookId identifies an EphemeralOrderbook.
type OrderbookId string

// ProductTypeId identifies a registered product runtime.
type ProductTypeId string

// EventId identifies a single published event envelope.
type EventId string

// PositionIdFor computes the deterministic position id for a (taker, order)
// pair: "pos_{accountId}_{orderId}".
func PositionIdFor(taker AccountId, order OrderId) PositionId {
	return PositionId(fmt.Sprintf("pos_%s_%s", taker, order))
}

// Timestamp is integer milliseconds since epoch.
type Timestamp int64

// Duration is integer milliseconds, expected strictly positive wherever used
// as a window width.
type Duration int64

// TimeWindow is the half-open interval [Start, End).
type TimeWindow struct {
	Start Timestamp
	End   Timestamp
}

// Valid reports whether the window is well-formed: End strictly after Start.
func (w TimeWindow) Valid() bool {
	return w.End > w.Start
}

// Duration returns End-Start as a Duration.
func (w TimeWindow) Duration() Duration {
	return Duration(w.End - w.Start)
}

// Contains reports whether the half-open window covers instant t:
// Start <= t < End.
func (w TimeWindow) Contains(t Timestamp) bool {
	return t >= w.Start && t < w.End
}

// OrdersBounds are the admission bounds checked against an orderbook
// operation. Only placement checks them; update/cancel bounds are stored
// in the orderbook config as given and are not checked by any operation.
type OrdersBounds struct {
	PricePlusBound  float64
	PriceMinusBound float64
	TimeBuffer      Duration
	// TimeLimit, if > 0, bounds how far in the future windowStart may sit.
	// A zero value means unbounded.
	TimeLimit Duration
}
