// Package orderbook implements the ephemeral orderbook described in
// spec.md §4.4: a time-column x price-bucket index whose priority
// ordering is product-defined, supporting placement, fills, and the
// price/time advancement engine that expires, verifies, and settles.
//
// Grounded structurally on the teacher's bbook/engine.go (a single struct
// owning maps of accounts/positions/orders behind one mutex, with pure
// "compute, then mutate, then log" methods) and on the "arena + index"
// guidance in spec.md §9: columns are held in a slice ordered by
// WindowStart instead of a hand-rolled doubly-linked list, with a parallel
// map for O(1) lookup by WindowStart — the idiomatic Go analogue of the
// vector-of-nodes-plus-indices representation the spec recommends to
// avoid cyclic ownership.
package orderbook

import (
	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/product"
)

// PriceBucket groups orders whose order price falls in
// [Key, Key+PriceStep). Orders are kept in product-comparator priority
// order, ties broken FIFO by insertion order.
type PriceBucket struct {
	Key    float64
	Orders []*domain.Order
}

// TimeColumn groups price buckets sharing a WindowStart.
type TimeColumn struct {
	WindowStart domain.Timestamp
	WindowEnd   domain.Timestamp
	Buckets     map[float64]*PriceBucket
}

// Config is the immutable-after-creation orderbook configuration
// (spec.md §3).
type Config struct {
	Id                 domain.OrderbookId
	ProductTypeId      domain.ProductTypeId
	Timeframe          domain.Duration
	PriceStep          float64
	PlaceOrdersBounds  domain.OrdersBounds
	UpdateOrdersBounds domain.OrdersBounds
	CancelOrdersBounds domain.OrdersBounds
	Symbol             string
}

// location is the O(1) lookup record for OrderId -> (column, bucket).
type location struct {
	windowStart domain.Timestamp
	bucketKey   float64
}

// EphemeralOrderbook is the core data structure of §4.4. It is exclusively
// owned by the clearing-house dispatcher; the ledger it needs for fill
// collateral locks, solvency checks and settlement is passed in as a borrowed
// handle on each call (spec.md §9's "borrow handles for the orderbook
// during a command"), never stored as a field, so the orderbook itself
// never aliases the ledger between calls.
type EphemeralOrderbook struct {
	Config  Config
	runtime product.Runtime

	columns     []*TimeColumn             // ascending WindowStart, arena-style
	columnIndex map[domain.Timestamp]*TimeColumn
	orderIndex  map[domain.OrderId]location
	orders      map[domain.OrderId]*domain.Order
	positions   map[domain.PositionId]*domain.Position
	cancelOnly  map[domain.OrderId]struct{}

	time  domain.Timestamp
	price float64
}

// New constructs an empty orderbook bound to runtime, with the given
// initial observed time and price (spec.md §4.5 createOrderbook: "current
// time and last known price for the symbol, or 0 if none").
func New(cfg Config, runtime product.Runtime, initialTime domain.Timestamp, initialPrice float64) *EphemeralOrderbook {
	return &EphemeralOrderbook{
		Config:      cfg,
		runtime:     runtime,
		columnIndex: make(map[domain.Timestamp]*TimeColumn),
		orderIndex:  make(map[domain.OrderId]location),
		orders:      make(map[domain.OrderId]*domain.Order),
		positions:   make(map[domain.PositionId]*domain.Position),
		cancelOnly:  make(map[domain.OrderId]struct{}),
		time:        initialTime,
		price:       initialPrice,
	}
}

// Time returns the latest observed time.
func (b *EphemeralOrderbook) Time() domain.Timestamp { return b.time }

// Price returns the latest observed price.
func (b *EphemeralOrderbook) Price() float64 { return b.price }

// Order returns the authoritative order state by id, if it still exists.
func (b *EphemeralOrderbook) Order(id domain.OrderId) (*domain.Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// Position returns the authoritative position state by id, if it still
// exists.
func (b *EphemeralOrderbook) Position(id domain.PositionId) (*domain.Position, bool) {
	p, ok := b.positions[id]
	return p, ok
}

func bucketKeyFor(price, step float64) float64 {
	return floorDiv(price, step) * step
}

func floorDiv(price, step float64) float64 {
	q := price / step
	fq := float64(int64(q))
	if q < 0 && fq != q {
		fq -= 1
	}
	return fq
}
