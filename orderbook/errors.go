package orderbook

import "fmt"

// RejectionKind enumerates the structured rejection taxonomy of spec.md
// §7. Kinds are values, not Go error types, so dispatcher code and tests
// can switch on them directly.
type RejectionKind string

const (
	KindMissingOrderId     RejectionKind = "missing_order_id"
	KindDuplicateOrderId   RejectionKind = "duplicate_order_id"
	KindTimeBoundViolation RejectionKind = "time_bound_violation"
	KindPriceBoundViolation RejectionKind = "price_bound_violation"
	KindTimeWindowMisaligned RejectionKind = "time_window_misaligned"
	KindTimeWindowNonpositive RejectionKind = "time_window_nonpositive"

	KindOrderNotFound     RejectionKind = "order_not_found"
	KindOrderCancelOnly   RejectionKind = "order_cancel_only"
	KindNonPositiveFillSize RejectionKind = "non_positive_fill_size"
	KindNoRemainingSize   RejectionKind = "no_remaining_size"
)

// PlacementError is raised by PlaceOrder on any admission failure
// (spec.md §4.4.1, §7). Details carries the offending values for the
// caller to surface (and for order_rejected event payloads).
type PlacementError struct {
	Kind    RejectionKind
	Details map[string]any
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("order placement rejected: %s %v", e.Kind, e.Details)
}

func newPlacementError(kind RejectionKind, details map[string]any) *PlacementError {
	return &PlacementError{Kind: kind, Details: details}
}

// FillError is raised by FillOrder on any fill-admission failure
// (spec.md §4.4.2, §7).
type FillError struct {
	Kind    RejectionKind
	Details map[string]any
}

func (e *FillError) Error() string {
	return fmt.Sprintf("fill rejected: %s %v", e.Kind, e.Details)
}

func newFillError(kind RejectionKind, details map[string]any) *FillError {
	return &FillError{Kind: kind, Details: details}
}
