package orderbook

import (
	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/ledger"
)

// FillOrder binds size units of orderId to a new or existing Position for
// takerAccountId (spec.md §4.4.2). now/price are the dispatcher's current
// instant, passed by the caller rather than read from a stored clock.
// ledg is a handle borrowed for the duration of this call only (spec.md
// §9): FillOrder applies the taker's collateral locks through it and
// returns the resulting balance snapshots, but the orderbook never stores
// a reference to ledg between calls.
func (b *EphemeralOrderbook) FillOrder(ledg *ledger.Ledger, orderId domain.OrderId, size float64, takerAccountId domain.AccountId, now domain.Timestamp, price float64) (*FillReport, error) {
	order, ok := b.orders[orderId]
	if !ok {
		return nil, newFillError(KindOrderNotFound, map[string]any{"orderId": orderId})
	}
	if _, cancelOnly := b.cancelOnly[orderId]; cancelOnly {
		return nil, newFillError(KindOrderCancelOnly, map[string]any{"orderId": orderId})
	}
	if size <= 0 {
		return nil, newFillError(KindNonPositiveFillSize, map[string]any{"size": size})
	}
	if order.SizeRemaining <= 0 {
		return nil, newFillError(KindNoRemainingSize, map[string]any{"orderId": orderId})
	}

	b.time = now
	b.price = price

	effectiveSize := size
	if effectiveSize > order.SizeRemaining {
		effectiveSize = order.SizeRemaining
	}

	positionId := domain.PositionIdFor(takerAccountId, orderId)
	existing, hadPosition := b.positions[positionId]
	var existingSize float64
	if hadPosition {
		existingSize = existing.Size
	}

	position, locks := b.runtime.UpdatePosition(order, existing, effectiveSize, now, price, takerAccountId)
	b.positions[positionId] = position

	filledDelta := position.Size - existingSize
	if filledDelta < 0 {
		filledDelta = 0
	}
	order.SizeRemaining -= filledDelta
	if order.SizeRemaining < 0 {
		order.SizeRemaining = 0
	}

	if !order.HasPendingPosition(positionId) {
		order.PendingPositions = append(order.PendingPositions, positionId)
	}

	// Re-insert the order at its (possibly new) priority position.
	loc := b.orderIndex[orderId]
	if col, ok := b.columnIndex[loc.windowStart]; ok {
		if bucket, ok := col.Buckets[loc.bucketKey]; ok {
			removeOrderFromBucket(bucket, orderId)
			insertOrder(bucket, order, b.runtime.Comparator)
		}
	}

	if order.SizeRemaining == 0 {
		order.CancelOnly = true
		b.cancelOnly[orderId] = struct{}{}
	}

	var balances []BalanceSnapshot
	if len(locks) > 0 {
		balances = applyToLedger(ledg, domain.BalanceChanges{Locks: locks}, map[string]string{
			"reason": "fill_collateral_lock", "orderId": string(orderId),
		})
	}

	report := &FillReport{
		Position: position,
		Trade: Trade{
			OrderId:       orderId,
			MakerId:       order.MakerId,
			TakerId:       takerAccountId,
			FillSize:      effectiveSize,
			FillPrice:     price,
			SizeRemaining: order.SizeRemaining,
		},
		Locks:    locks,
		Balances: balances,
	}
	return report, nil
}
