package orderbook

import (
	"sort"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/ledger"
)

// AdvancePriceAndTime is the price/time advancement engine of spec.md
// §4.4.3: it expires past columns, evaluates the active column's hit
// predicates, applies payouts, and handles maker insolvency. ledg is
// borrowed for the duration of this call only, same contract as
// FillOrder.
func (b *EphemeralOrderbook) AdvancePriceAndTime(ledg *ledger.Ledger, newPrice float64, newTime domain.Timestamp) AdvanceResult {
	var result AdvanceResult

	// Phase A — expire past columns.
	for len(b.columns) > 0 && newTime >= b.columns[0].WindowEnd {
		col := b.columns[0]
		for _, key := range sortedBucketKeys(col) {
			bucket := col.Buckets[key]
			for _, order := range bucket.Orders {
				for _, posId := range order.PendingPositions {
					pos, ok := b.positions[posId]
					if !ok {
						continue
					}
					result.Expirations = append(result.Expirations, ExpirationReport{
						OrderId:    order.Id,
						PositionId: posId,
						MakerId:    order.MakerId,
						TakerId:    pos.UserId,
						Size:       pos.Size,
					})
					delete(b.positions, posId)
				}
				delete(b.orders, order.Id)
				delete(b.orderIndex, order.Id)
				delete(b.cancelOnly, order.Id)
			}
		}
		delete(b.columnIndex, col.WindowStart)
		b.columns = b.columns[1:]
	}

	// Phase B — set state.
	b.time = newTime
	b.price = newPrice

	// Phase C — evaluate the active column, if any.
	if len(b.columns) == 0 || newTime >= b.columns[0].WindowEnd {
		return result
	}
	head := b.columns[0]
	bucketKey := bucketKeyFor(newPrice, b.Config.PriceStep)
	bucket, ok := head.Buckets[bucketKey]
	if !ok {
		return result
	}

	// Snapshot: orders may be removed from the bucket mid-iteration.
	orders := append([]*domain.Order(nil), bucket.Orders...)
	for _, order := range orders {
		if _, cancelOnly := b.cancelOnly[order.Id]; cancelOnly {
			continue
		}
		if !order.TriggerWindow.Contains(newTime) {
			continue
		}

		candidates := b.collectCandidates(order, newPrice, newTime)
		if len(candidates) == 0 {
			continue
		}

		if b.isInsolvent(ledg, order, candidates) {
			b.unwindOrder(ledg, order, bucket, &result)
			continue
		}
		b.settleCandidates(ledg, order, candidates, newPrice, &result)
		if order.SizeRemaining <= 0 && len(order.PendingPositions) == 0 {
			b.removeOrder(order, bucket)
		}
	}

	return result
}

type candidateSettlement struct {
	positionId domain.PositionId
	position   *domain.Position
	changes    domain.BalanceChanges
}

// collectCandidates evaluates verifyHit for every pending position of
// order, in pendingPositions order, and returns the hit ones together
// with their payout (spec.md §4.4.3 Phase C).
func (b *EphemeralOrderbook) collectCandidates(order *domain.Order, price float64, now domain.Timestamp) []candidateSettlement {
	var out []candidateSettlement
	for _, posId := range order.PendingPositions {
		pos, ok := b.positions[posId]
		if !ok {
			continue
		}
		if b.runtime.VerifyHit(order, pos, price, now, order.TriggerWindow) {
			out = append(out, candidateSettlement{
				positionId: posId,
				position:   pos,
				changes:    b.runtime.Payout(order, pos, price),
			})
		}
	}
	return out
}

// isInsolvent implements Phase C.1: the maker's aggregate net outflow
// across all candidate settlements, per asset, must not exceed its
// current ledger balance.
func (b *EphemeralOrderbook) isInsolvent(ledg *ledger.Ledger, order *domain.Order, candidates []candidateSettlement) bool {
	netOutflow := make(map[string]float64)
	for _, c := range candidates {
		for _, x := range c.changes.Debits {
			if x.Account != order.MakerId {
				continue
			}
			netOutflow[x.Asset] += x.Amount
		}
		for _, x := range c.changes.Credits {
			if x.Account != order.MakerId {
				continue
			}
			netOutflow[x.Asset] -= x.Amount
		}
		for _, x := range c.changes.Locks {
			if x.Account != order.MakerId {
				continue
			}
			netOutflow[x.Asset] += x.Amount
		}
		for _, x := range c.changes.Unlocks {
			if x.Account != order.MakerId {
				continue
			}
			netOutflow[x.Asset] -= x.Amount
		}
	}
	for asset, outflow := range netOutflow {
		if outflow > ledg.GetBalance(order.MakerId, asset) {
			return true
		}
	}
	return false
}

// unwindOrder releases every pending position of an insolvent order back
// to its taker and removes the order entirely (spec.md §4.4.3 Phase C.1).
func (b *EphemeralOrderbook) unwindOrder(ledg *ledger.Ledger, order *domain.Order, bucket *PriceBucket, result *AdvanceResult) {
	asset := b.runtime.CollateralAsset(order)
	for _, posId := range append([]domain.PositionId(nil), order.PendingPositions...) {
		pos, ok := b.positions[posId]
		if !ok {
			continue
		}
		var balances []BalanceSnapshot
		if pos.CollateralLocked > 0 {
			balances = applyToLedger(ledg, domain.BalanceChanges{
				Unlocks: []domain.BalanceChange{{Account: pos.UserId, Asset: asset, Amount: pos.CollateralLocked}},
			}, map[string]string{"reason": "maker_insufficient_funds", "orderId": string(order.Id)})
		}
		result.Unwinds = append(result.Unwinds, UnwindReport{
			OrderId:    order.Id,
			PositionId: posId,
			MakerId:    order.MakerId,
			TakerId:    pos.UserId,
			Unlocked:   pos.CollateralLocked,
			Balances:   balances,
		})
		delete(b.positions, posId)
	}
	order.PendingPositions = nil
	order.SizeRemaining = 0
	b.removeOrder(order, bucket)
}

// settleCandidates applies every candidate's payout, recording a
// VerificationReport and SettlementReport for each, then drops the
// settled positions from the order's pending list.
func (b *EphemeralOrderbook) settleCandidates(ledg *ledger.Ledger, order *domain.Order, candidates []candidateSettlement, price float64, result *AdvanceResult) {
	for _, c := range candidates {
		result.VerificationHits = append(result.VerificationHits, VerificationReport{
			OrderId:    order.Id,
			PositionId: c.positionId,
			MakerId:    order.MakerId,
			TakerId:    c.position.UserId,
			Price:      price,
		})

		balances := applyToLedger(ledg, c.changes, map[string]string{"reason": "payout_settled", "orderId": string(order.Id)})
		var totalCredit float64
		for _, x := range c.changes.Credits {
			totalCredit += x.Amount
		}

		result.Settlements = append(result.Settlements, SettlementReport{
			OrderId:     order.Id,
			PositionId:  c.positionId,
			MakerId:     order.MakerId,
			TakerId:     c.position.UserId,
			Price:       price,
			TotalCredit: totalCredit,
			Changes:     c.changes,
			Balances:    balances,
		})

		delete(b.positions, c.positionId)
		order.RemovePendingPosition(c.positionId)
	}
}

// removeOrder deletes order from every index and from bucket.
func (b *EphemeralOrderbook) removeOrder(order *domain.Order, bucket *PriceBucket) {
	removeOrderFromBucket(bucket, order.Id)
	delete(b.orders, order.Id)
	delete(b.orderIndex, order.Id)
	delete(b.cancelOnly, order.Id)
}

// sortedBucketKeys returns col's bucket keys in ascending order, giving
// Phase A's expiration traversal a deterministic order (map iteration
// order in Go is not stable across runs).
func sortedBucketKeys(col *TimeColumn) []float64 {
	keys := make([]float64, 0, len(col.Buckets))
	for k := range col.Buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}
