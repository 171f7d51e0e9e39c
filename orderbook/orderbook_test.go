package orderbook_test

import (
	"testing"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/ledger"
	"github.com/epic1st/clearinghouse/orderbook"
	"github.com/epic1st/clearinghouse/product"
)

func newBook(t *testing.T, initialTime domain.Timestamp, initialPrice float64) *orderbook.EphemeralOrderbook {
	t.Helper()
	cfg := orderbook.Config{
		Id:            "ob1",
		ProductTypeId: "range_payout",
		Timeframe:     1000,
		PriceStep:     5,
		PlaceOrdersBounds: domain.OrdersBounds{
			PricePlusBound:  100,
			PriceMinusBound: 100,
			TimeBuffer:      0,
		},
		Symbol: "XAUUSD",
	}
	return orderbook.New(cfg, product.RangePayout{}, initialTime, initialPrice)
}

func rangeOrder(id domain.OrderId, makerId domain.AccountId, size float64, window domain.TimeWindow, price, startRange, endRange, multiplier, collateralPerUnit float64) *domain.Order {
	return &domain.Order{
		Id:            id,
		MakerId:       makerId,
		SizeTotal:     size,
		SizeRemaining: size,
		TriggerWindow: window,
		Data: product.RangeOrderData{
			Price:             price,
			StartRange:        startRange,
			EndRange:          endRange,
			Multiplier:        multiplier,
			CollateralPerUnit: collateralPerUnit,
			Asset:             "USD",
		},
	}
}

func TestPlaceOrderRejectsMisalignedTriggerWindow(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 100_000, End: 100_750}, 100, 110, 130, 10, 1)

	err := book.PlaceOrder(order)
	pe, ok := err.(*orderbook.PlacementError)
	if !ok {
		t.Fatalf("expected *PlacementError, got %v", err)
	}
	if pe.Kind != orderbook.KindTimeWindowMisaligned {
		t.Fatalf("kind = %v, want %v", pe.Kind, orderbook.KindTimeWindowMisaligned)
	}
}

func TestPlaceOrderRejectsPriceBoundViolation(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 100_000, End: 102_000}, 250, 110, 130, 10, 1)

	err := book.PlaceOrder(order)
	pe, ok := err.(*orderbook.PlacementError)
	if !ok {
		t.Fatalf("expected *PlacementError, got %v", err)
	}
	if pe.Kind != orderbook.KindPriceBoundViolation {
		t.Fatalf("kind = %v, want %v", pe.Kind, orderbook.KindPriceBoundViolation)
	}
}

func TestPlaceOrderRejectsDuplicateId(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 100_000, End: 102_000}, 100, 110, 130, 10, 1)
	if err := book.PlaceOrder(order); err != nil {
		t.Fatalf("unexpected rejection on first placement: %v", err)
	}
	err := book.PlaceOrder(order)
	pe, ok := err.(*orderbook.PlacementError)
	if !ok || pe.Kind != orderbook.KindDuplicateOrderId {
		t.Fatalf("expected duplicate_order_id, got %v", err)
	}
}

func TestFillAggregatesRepeatedFillsIntoOnePosition(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 100, 110, 130, 10, 5)
	if err := book.PlaceOrder(order); err != nil {
		t.Fatalf("placement failed: %v", err)
	}

	ledg := ledger.New()
	ledg.Credit("taker1", "USD", 1000, nil)

	report1, err := book.FillOrder(ledg, "ord1", 2, "taker1", 2200, 100)
	if err != nil {
		t.Fatalf("fill1 failed: %v", err)
	}
	if report1.Position.Size != 2 {
		t.Fatalf("fill1 position size = %v, want 2", report1.Position.Size)
	}
	if report1.Trade.SizeRemaining != 2 {
		t.Fatalf("fill1 sizeRemaining = %v, want 2", report1.Trade.SizeRemaining)
	}

	report2, err := book.FillOrder(ledg, "ord1", 1, "taker1", 2300, 100)
	if err != nil {
		t.Fatalf("fill2 failed: %v", err)
	}
	if report2.Position.Id != report1.Position.Id {
		t.Fatalf("position id changed across fills by the same taker")
	}
	if report2.Position.Size != 3 {
		t.Fatalf("fill2 aggregated size = %v, want 3", report2.Position.Size)
	}
	if report2.Trade.SizeRemaining != 1 {
		t.Fatalf("fill2 sizeRemaining = %v, want 1", report2.Trade.SizeRemaining)
	}
}

func TestFillRejectsCancelOnlyOrder(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 2, domain.TimeWindow{Start: 2_000, End: 4_000}, 100, 110, 130, 10, 1)
	if err := book.PlaceOrder(order); err != nil {
		t.Fatalf("placement failed: %v", err)
	}
	ledg := ledger.New()
	ledg.Credit("taker1", "USD", 100, nil)

	if _, err := book.FillOrder(ledg, "ord1", 2, "taker1", 2200, 100); err != nil {
		t.Fatalf("fill failed: %v", err)
	}
	_, err := book.FillOrder(ledg, "ord1", 1, "taker2", 2300, 100)
	fe, ok := err.(*orderbook.FillError)
	if !ok || fe.Kind != orderbook.KindOrderCancelOnly {
		t.Fatalf("expected order_cancel_only, got %v", err)
	}
}

// TestAdvanceSettlesAHit mirrors spec.md §8 scenario 2: a hit within the
// trigger window pays the taker the multiplier and releases collateral.
func TestAdvanceSettlesAHit(t *testing.T) {
	book := newBook(t, 0, 100)
	// Price 112 lands the order in the same price bucket (110) that the
	// oracle tick below advances into, so Phase C evaluates it.
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 112, 110, 130, 10, 5)
	if err := book.PlaceOrder(order); err != nil {
		t.Fatalf("placement failed: %v", err)
	}

	ledg := ledger.New()
	ledg.Credit("maker1", "USD", 100, nil)

	if _, err := book.FillOrder(ledg, "ord1", 2, "taker1", 2200, 100); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	result := book.AdvancePriceAndTime(ledg, 110, 2400)

	if len(result.Settlements) != 1 {
		t.Fatalf("settlements = %d, want 1", len(result.Settlements))
	}
	if len(result.VerificationHits) != 1 {
		t.Fatalf("verificationHits = %d, want 1", len(result.VerificationHits))
	}
	if ledg.GetBalance("maker1", "USD") != 80 {
		t.Fatalf("maker balance = %v, want 80", ledg.GetBalance("maker1", "USD"))
	}
	// taker locked 10 (collateralPerUnit 5 * fillSize 2) on fill, then on
	// settlement is credited the 20 payout and has that same 10 unlocked.
	if ledg.GetBalance("taker1", "USD") != 20 {
		t.Fatalf("taker balance = %v, want 20", ledg.GetBalance("taker1", "USD"))
	}
}

// TestAdvanceUnwindsInsolventMaker mirrors spec.md §8 scenario 5: a maker
// lacking the funds to cover a hit has the position unwound instead of
// settled, with the taker's collateral fully returned.
func TestAdvanceUnwindsInsolventMaker(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 112, 110, 130, 10, 5)
	if err := book.PlaceOrder(order); err != nil {
		t.Fatalf("placement failed: %v", err)
	}

	ledg := ledger.New()
	ledg.Credit("maker1", "USD", 5, nil)
	ledg.Credit("taker1", "USD", 20, nil)

	if _, err := book.FillOrder(ledg, "ord1", 2, "taker1", 2200, 100); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	result := book.AdvancePriceAndTime(ledg, 110, 2400)

	if len(result.Settlements) != 0 {
		t.Fatalf("settlements = %d, want 0 (maker insolvent)", len(result.Settlements))
	}
	if len(result.VerificationHits) != 0 {
		t.Fatalf("verificationHits = %d, want 0", len(result.VerificationHits))
	}
	if len(result.Unwinds) != 1 {
		t.Fatalf("unwinds = %d, want 1", len(result.Unwinds))
	}
	if ledg.GetLocked("taker1", "USD") != 0 {
		t.Fatalf("taker locked = %v, want 0 (fully released)", ledg.GetLocked("taker1", "USD"))
	}
	if ledg.GetBalance("taker1", "USD") != 20 {
		t.Fatalf("taker balance = %v, want 20 (unchanged)", ledg.GetBalance("taker1", "USD"))
	}
	if _, ok := book.Order("ord1"); ok {
		t.Fatalf("insolvent order should be removed from all indices")
	}
}

// TestAdvanceExpiresUnhitPendingPositions mirrors spec.md §8 scenario 6: a
// column that expires without a hit drains its pending positions. No
// ledger change is made on expiry: the taker's collateral is not unlocked.
func TestAdvanceExpiresUnhitPendingPositions(t *testing.T) {
	book := newBook(t, 0, 100)
	order := rangeOrder("ord1", "maker1", 2, domain.TimeWindow{Start: 1_000, End: 2_000}, 100, 110, 130, 10, 1)
	if err := book.PlaceOrder(order); err != nil {
		t.Fatalf("placement failed: %v", err)
	}

	ledg := ledger.New()
	ledg.Credit("taker1", "USD", 100, nil)

	if _, err := book.FillOrder(ledg, "ord1", 2, "taker1", 1200, 100); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	result := book.AdvancePriceAndTime(ledg, 100, 2000)

	if len(result.Expirations) != 1 {
		t.Fatalf("expirations = %d, want 1", len(result.Expirations))
	}
	if _, ok := book.Order("ord1"); ok {
		t.Fatalf("expired order should be removed from all indices")
	}
	if _, ok := book.Position(domain.PositionIdFor("taker1", "ord1")); ok {
		t.Fatalf("expired position should be removed")
	}
}
