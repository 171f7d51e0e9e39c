// Package product implements the pluggable contract-semantics capability
// bundle described in spec.md §4.2: a ProductRuntime supplies the
// comparator, pricing function, position-update rule, hit predicate and
// payout calculation for one product type, keyed by ProductTypeId.
//
// Grounded on the teacher's SymbolSpec (bbook/symbols.go) for the idea of a
// per-instrument specification record, and on abook/sor.go's LPHealth/
// AggregatedQuote style of small, independent data+behavior records — here
// generalized from "one struct per forex symbol" to "one capability record
// per product type, registered at startup" as spec.md §9 asks for (a
// function-pointer table rather than a class hierarchy).
package product

import (
	"github.com/epic1st/clearinghouse/domain"
)

// Runtime is the capability bundle a product registers under its
// ProductTypeId. All methods are pure functions of their inputs; no
// Runtime implementation may hold mutable state shared across calls.
type Runtime interface {
	// Comparator defines a strict weak order over orders within a price
	// bucket. A tie must be broken FIFO by the caller (insertion order),
	// not by the comparator itself.
	Comparator(a, b *domain.Order) int

	// GetOrderPrice returns the single deterministic price used for
	// bucket placement and admission-bound checks.
	GetOrderPrice(order *domain.Order) float64

	// UpdatePosition computes the new/updated position and the taker-side
	// collateral locks to apply for a fill of size units against order at
	// (now, price) by accountId. existing is nil if no position exists
	// yet for this (taker, order) pair. Must be idempotent: calling it
	// again with the same existing position and the same effective fill
	// must reproduce the same resulting position size.
	UpdatePosition(order *domain.Order, existing *domain.Position, size float64, now domain.Timestamp, price float64, accountId domain.AccountId) (position *domain.Position, locks []domain.BalanceChange)

	// VerifyHit evaluates the hit predicate. Called only when
	// triggerWindow.Start <= now < triggerWindow.End.
	VerifyHit(order *domain.Order, position *domain.Position, price float64, now domain.Timestamp, triggerWindow domain.TimeWindow) bool

	// Payout produces the settlement ledger changes for a position that
	// hit at priceAtHit.
	Payout(order *domain.Order, position *domain.Position, priceAtHit float64) domain.BalanceChanges

	// CollateralAsset names the asset a taker's collateral for this order
	// is locked/unlocked in, used by the orderbook when unwinding an
	// order for maker insolvency (spec.md §4.4.3 Phase C.1) without the
	// orderbook needing to understand product-specific OrderData.
	CollateralAsset(order *domain.Order) string
}

// Registry holds the registered product runtimes, keyed by ProductTypeId.
// Products register themselves at dispatcher initialization (spec.md §4.2)
// and are never unregistered.
type Registry struct {
	runtimes map[domain.ProductTypeId]Runtime
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[domain.ProductTypeId]Runtime)}
}

// Register inserts rt under id, overwriting any prior registration for the
// same id. Never fails, matching spec.md §6's "registerProduct ... never".
func (r *Registry) Register(id domain.ProductTypeId, rt Runtime) {
	r.runtimes[id] = rt
}

// Lookup returns the runtime registered for id, if any.
func (r *Registry) Lookup(id domain.ProductTypeId) (Runtime, bool) {
	rt, ok := r.runtimes[id]
	return rt, ok
}
