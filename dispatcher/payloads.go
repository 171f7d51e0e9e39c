package dispatcher

import (
	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/orderbook"
)

// OrderPlacedPayload is the order_placed event payload (spec.md §4.6).
type OrderPlacedPayload struct {
	OrderId domain.OrderId
	MakerId domain.AccountId
}

// OrderRejectedPayload is the order_rejected event payload. It mirrors a
// CommandError so subscribers never need the Go error interface.
type OrderRejectedPayload struct {
	OrderId domain.OrderId
	Reason  RejectionKind
	Details map[string]any
}

// OrderFilledPayload is the order_filled event payload.
type OrderFilledPayload struct {
	Trade    orderbook.Trade
	Position *domain.Position
}

// BalanceUpdatedPayload is the balance_updated event payload, one per
// impacted (account, asset) pair (spec.md §4.6).
type BalanceUpdatedPayload struct {
	Account domain.AccountId
	Asset   string
	Balance float64
	Locked  float64
	Reason  string
}

// PriceUpdatePayload is the price_update event payload (oracle intake).
type PriceUpdatePayload struct {
	Symbol string
	Price  float64
}

// ClockTickPayload is the clock_tick event payload (oracle intake).
type ClockTickPayload struct {
	Symbol string
	Time   domain.Timestamp
	Reason string
}

// VerificationHitPayload is the verification_hit event payload.
type VerificationHitPayload struct {
	OrderId    domain.OrderId
	PositionId domain.PositionId
	MakerId    domain.AccountId
	TakerId    domain.AccountId
	Price      float64
}

// PayoutSettledPayload is the payout_settled event payload.
type PayoutSettledPayload struct {
	OrderId     domain.OrderId
	PositionId  domain.PositionId
	MakerId     domain.AccountId
	TakerId     domain.AccountId
	Price       float64
	TotalCredit float64
}

// PayoutExpiredPayload is the payout_expired event payload.
type PayoutExpiredPayload struct {
	OrderId    domain.OrderId
	PositionId domain.PositionId
	MakerId    domain.AccountId
	TakerId    domain.AccountId
	Size       float64
}
