package orderbook

import "github.com/epic1st/clearinghouse/domain"

// Trade carries the execution details of a single fill (spec.md §4.4.2).
type Trade struct {
	OrderId       domain.OrderId
	MakerId       domain.AccountId
	TakerId       domain.AccountId
	FillSize      float64
	FillPrice     float64
	SizeRemaining float64
}

// FillReport is returned by FillOrder. Locks are the taker collateral
// locks FillOrder has already committed through the borrowed ledger
// handle, and Balances holds the resulting post-change snapshot of every
// impacted (account, asset) pair, from which the dispatcher publishes
// balance_updated events.
type FillReport struct {
	Position *domain.Position
	Trade    Trade
	Locks    []domain.BalanceChange
	Balances []BalanceSnapshot
}

// ExpirationReport is emitted once per pending position whose containing
// time column has expired without being settled (spec.md §4.4.3 Phase A).
type ExpirationReport struct {
	OrderId    domain.OrderId
	PositionId domain.PositionId
	MakerId    domain.AccountId
	TakerId    domain.AccountId
	Size       float64
}

// VerificationReport records that a pending position's hit predicate
// evaluated true (spec.md §4.4.3 Phase C).
type VerificationReport struct {
	OrderId    domain.OrderId
	PositionId domain.PositionId
	MakerId    domain.AccountId
	TakerId    domain.AccountId
	Price      float64
}

// SettlementReport is emitted for each solvent settlement (spec.md §4.4.3
// Phase C).
type SettlementReport struct {
	OrderId     domain.OrderId
	PositionId  domain.PositionId
	MakerId     domain.AccountId
	TakerId     domain.AccountId
	Price       float64
	TotalCredit float64
	Changes     domain.BalanceChanges
	Balances    []BalanceSnapshot
}

// UnwindReport is emitted for each position released when an order is
// unwound for maker insolvency (spec.md §4.4.3 Phase C.1).
type UnwindReport struct {
	OrderId    domain.OrderId
	PositionId domain.PositionId
	MakerId    domain.AccountId
	TakerId    domain.AccountId
	Unlocked   float64
	Balances   []BalanceSnapshot
}

// AdvanceResult is the aggregate return value of AdvancePriceAndTime.
// Ordering guarantee (spec.md §4.4.3): Expirations precede
// VerificationHits/Settlements; within Phase C, settlements for the same
// order follow pendingPositions order; orders are evaluated in bucket
// order.
type AdvanceResult struct {
	Expirations      []ExpirationReport
	VerificationHits []VerificationReport
	Settlements      []SettlementReport
	Unwinds          []UnwindReport
}
