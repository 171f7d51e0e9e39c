package dispatcher

import (
	"fmt"

	"github.com/epic1st/clearinghouse/orderbook"
)

// RejectionKind enumerates the dispatcher-layer rejection taxonomy of
// spec.md §7, on top of the kinds orderbook.PlacementError/FillError
// already carry.
type RejectionKind string

const (
	KindOrderbookNotFound    RejectionKind = "orderbook_not_found"
	KindProductNotRegistered RejectionKind = "product_not_registered"
	KindMakerNotAuthorized   RejectionKind = "maker_not_authorized"
	KindInvalidPriceStep     RejectionKind = "invalid_price_step"
	KindNonPositiveAmount    RejectionKind = "non_positive_amount"
	KindInsufficientBalance  RejectionKind = "insufficient_balance"
	KindIndexInconsistent    RejectionKind = "index_inconsistent"
)

// CommandError is returned by every dispatcher command that can be
// rejected (spec.md §7). For placement/fill failures, Kind and Details
// are copied out of the underlying orderbook.PlacementError/FillError so
// callers never need to type-switch into the orderbook package.
type CommandError struct {
	Kind    RejectionKind
	Details map[string]any
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command rejected: %s %v", e.Kind, e.Details)
}

func newCommandError(kind RejectionKind, details map[string]any) *CommandError {
	return &CommandError{Kind: kind, Details: details}
}

// fromPlacementError copies an orderbook placement rejection into a
// dispatcher-level CommandError, preserving Kind/Details for the
// order_rejected event payload.
func fromPlacementError(err *orderbook.PlacementError) *CommandError {
	return &CommandError{Kind: RejectionKind(err.Kind), Details: err.Details}
}

// fromFillError copies an orderbook fill rejection into a dispatcher-level
// CommandError.
func fromFillError(err *orderbook.FillError) *CommandError {
	return &CommandError{Kind: RejectionKind(err.Kind), Details: err.Details}
}
