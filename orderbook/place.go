package orderbook

import "github.com/epic1st/clearinghouse/domain"

// PlaceOrder admits order into the book (spec.md §4.4.1). The maker
// whitelist check happens one layer up, in the dispatcher; here we only
// guard against a missing/duplicate id and the bound/window checks that
// are intrinsic to the book itself.
func (b *EphemeralOrderbook) PlaceOrder(order *domain.Order) error {
	if order.Id == "" {
		return newPlacementError(KindMissingOrderId, nil)
	}
	if _, exists := b.orders[order.Id]; exists {
		return newPlacementError(KindDuplicateOrderId, map[string]any{"orderId": order.Id})
	}

	orderPrice := b.runtime.GetOrderPrice(order)
	bounds := b.Config.PlaceOrdersBounds

	if order.TriggerWindow.Start < b.time+domain.Timestamp(bounds.TimeBuffer) {
		return newPlacementError(KindTimeBoundViolation, map[string]any{
			"reason":      "start_too_early",
			"windowStart": order.TriggerWindow.Start,
			"earliest":    b.time + domain.Timestamp(bounds.TimeBuffer),
		})
	}
	if bounds.TimeLimit > 0 && order.TriggerWindow.Start > b.time+domain.Timestamp(bounds.TimeLimit) {
		return newPlacementError(KindTimeBoundViolation, map[string]any{
			"reason":      "start_too_late",
			"windowStart": order.TriggerWindow.Start,
			"latest":      b.time + domain.Timestamp(bounds.TimeLimit),
		})
	}
	if orderPrice > b.price+bounds.PricePlusBound {
		return newPlacementError(KindPriceBoundViolation, map[string]any{
			"reason": "above", "orderPrice": orderPrice, "max": b.price + bounds.PricePlusBound,
		})
	}
	if orderPrice < b.price-bounds.PriceMinusBound {
		return newPlacementError(KindPriceBoundViolation, map[string]any{
			"reason": "below", "orderPrice": orderPrice, "min": b.price - bounds.PriceMinusBound,
		})
	}

	duration := order.TriggerWindow.End - order.TriggerWindow.Start
	if duration <= 0 {
		return newPlacementError(KindTimeWindowNonpositive, map[string]any{"duration": duration})
	}
	if int64(duration)%int64(b.Config.Timeframe) != 0 {
		return newPlacementError(KindTimeWindowMisaligned, map[string]any{
			"duration": duration, "timeframe": b.Config.Timeframe,
		})
	}

	bucketKey := bucketKeyFor(orderPrice, b.Config.PriceStep)
	col := b.getOrCreateColumn(order.TriggerWindow.Start, order.TriggerWindow.End)
	bucket := getOrCreateBucket(col, bucketKey)
	insertOrder(bucket, order, b.runtime.Comparator)

	b.orders[order.Id] = order
	b.orderIndex[order.Id] = location{windowStart: order.TriggerWindow.Start, bucketKey: bucketKey}
	delete(b.cancelOnly, order.Id)

	return nil
}
