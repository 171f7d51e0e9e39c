package dispatcher

import (
	"testing"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/eventbus"
	"github.com/epic1st/clearinghouse/orderbook"
	"github.com/epic1st/clearinghouse/product"
)

func newHouse(t *testing.T) *ClearingHouse {
	t.Helper()
	house := New()
	house.RegisterProduct("range_payout", product.RangePayout{})
	return house
}

func createBook(t *testing.T, house *ClearingHouse, symbol string, initialPrice float64) domain.OrderbookId {
	t.Helper()
	if initialPrice != 0 {
		house.lastPrice[symbol] = initialPrice
	}
	id, err := house.CreateOrderbook(orderbook.Config{
		ProductTypeId: "range_payout",
		Timeframe:     1000,
		PriceStep:     5,
		Symbol:        symbol,
		PlaceOrdersBounds: domain.OrdersBounds{
			PricePlusBound:  100,
			PriceMinusBound: 100,
		},
	})
	if err != nil {
		t.Fatalf("CreateOrderbook failed: %v", err)
	}
	return id
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

// TestPlaceOrderRejectsUnwhitelistedMaker mirrors spec.md §8 scenario 1: a
// maker never whitelisted on the orderbook has its order rejected before
// the orderbook ever sees it, and an order_rejected event is published.
func TestPlaceOrderRejectsUnwhitelistedMaker(t *testing.T) {
	house := newHouse(t)
	obId := createBook(t, house, "XAUUSD", 100)

	stream := house.Bus().Subscribe()
	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 100, 110, 130, 10, 5)

	err := house.PlaceOrder(obId, order)
	cmdErr, ok := err.(*CommandError)
	if !ok || cmdErr.Kind != KindMakerNotAuthorized {
		t.Fatalf("expected maker_not_authorized, got %v", err)
	}

	ev, ok := stream.TryNext()
	if !ok || ev.Name != eventbus.OrderRejected {
		t.Fatalf("expected an order_rejected event, got %+v (ok=%v)", ev, ok)
	}
}

// TestPlaceAndFillSettlesRangePayout mirrors spec.md §8 scenario 2 end to
// end through the dispatcher: placement, a fill, and an oracle tick that
// lands in the payout range settle with the exact worked balances.
func TestPlaceAndFillSettlesRangePayout(t *testing.T) {
	house := newHouse(t)
	obId := createBook(t, house, "XAUUSD", 100)
	house.WhitelistMaker(obId, "maker1")
	house.Ledger().Credit("maker1", "USD", 100, nil)

	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 112, 110, 130, 10, 5)
	if err := house.PlaceOrder(obId, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if _, err := house.FillOrder(obId, "ord1", 2, "taker1", 2200, 100); err != nil {
		t.Fatalf("FillOrder failed: %v", err)
	}

	house.HandlePriceAndTimeUpdate("XAUUSD", 110, 2400)

	if got := house.Ledger().GetBalance("maker1", "USD"); got != 80 {
		t.Fatalf("maker balance = %v, want 80", got)
	}
	if got := house.Ledger().GetBalance("taker1", "USD"); got != 20 {
		t.Fatalf("taker balance = %v, want 20", got)
	}
}

// TestPlaceOrderRejectsMisalignedTriggerWindow mirrors spec.md §8 scenario
// 3: the orderbook's own admission check surfaces through the dispatcher
// unchanged.
func TestPlaceOrderRejectsMisalignedTriggerWindow(t *testing.T) {
	house := newHouse(t)
	obId := createBook(t, house, "XAUUSD", 100)
	house.WhitelistMaker(obId, "maker1")

	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 2_750}, 100, 110, 130, 10, 1)
	err := house.PlaceOrder(obId, order)
	cmdErr, ok := err.(*CommandError)
	if !ok || cmdErr.Kind != RejectionKind(orderbook.KindTimeWindowMisaligned) {
		t.Fatalf("expected time_window_misaligned, got %v", err)
	}
}

// TestFillAggregatesPositionAcrossDispatcherCalls mirrors spec.md §8
// scenario 4: repeated fills by the same taker through the dispatcher
// aggregate into one position.
func TestFillAggregatesPositionAcrossDispatcherCalls(t *testing.T) {
	house := newHouse(t)
	obId := createBook(t, house, "XAUUSD", 100)
	house.WhitelistMaker(obId, "maker1")

	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 100, 110, 130, 10, 1)
	if err := house.PlaceOrder(obId, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	report1, err := house.FillOrder(obId, "ord1", 2, "taker1", 2100, 100)
	if err != nil {
		t.Fatalf("fill1 failed: %v", err)
	}
	report2, err := house.FillOrder(obId, "ord1", 1, "taker1", 2200, 100)
	if err != nil {
		t.Fatalf("fill2 failed: %v", err)
	}
	if report2.Position.Id != report1.Position.Id {
		t.Fatalf("position id changed across dispatcher fills")
	}
	if report2.Position.Size != 3 {
		t.Fatalf("aggregated size = %v, want 3", report2.Position.Size)
	}
}

// TestOracleTickUnwindsInsolventMaker mirrors spec.md §8 scenario 5: a
// maker lacking the funds to cover a hit is unwound rather than settled,
// and the taker's collateral is fully released.
func TestOracleTickUnwindsInsolventMaker(t *testing.T) {
	house := newHouse(t)
	obId := createBook(t, house, "XAUUSD", 100)
	house.WhitelistMaker(obId, "maker1")
	house.Ledger().Credit("maker1", "USD", 5, nil)
	house.Ledger().Credit("taker1", "USD", 20, nil)

	order := rangeOrder("ord1", "maker1", 4, domain.TimeWindow{Start: 2_000, End: 4_000}, 112, 110, 130, 10, 5)
	if err := house.PlaceOrder(obId, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if _, err := house.FillOrder(obId, "ord1", 2, "taker1", 2200, 100); err != nil {
		t.Fatalf("FillOrder failed: %v", err)
	}

	house.HandlePriceAndTimeUpdate("XAUUSD", 110, 2400)

	if got := house.Ledger().GetLocked("taker1", "USD"); got != 0 {
		t.Fatalf("taker locked = %v, want 0", got)
	}
	if got := house.Ledger().GetBalance("taker1", "USD"); got != 20 {
		t.Fatalf("taker balance = %v, want 20 (unchanged)", got)
	}
}

// TestOracleTickExpiresUnhitPendingPosition mirrors spec.md §8 scenario 6:
// a column expiring without a hit drains its pending positions.
func TestOracleTickExpiresUnhitPendingPosition(t *testing.T) {
	house := newHouse(t)
	obId := createBook(t, house, "XAUUSD", 100)
	house.WhitelistMaker(obId, "maker1")
	house.Ledger().Credit("taker1", "USD", 100, nil)

	order := rangeOrder("ord1", "maker1", 2, domain.TimeWindow{Start: 1_000, End: 2_000}, 100, 110, 130, 10, 1)
	if err := house.PlaceOrder(obId, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if _, err := house.FillOrder(obId, "ord1", 2, "taker1", 1200, 100); err != nil {
		t.Fatalf("FillOrder failed: %v", err)
	}

	stream := house.Bus().Subscribe()
	house.HandlePriceAndTimeUpdate("XAUUSD", 100, 2000)

	var sawExpired bool
	for {
		ev, ok := stream.TryNext()
		if !ok {
			break
		}
		if ev.Name == eventbus.PayoutExpired {
			sawExpired = true
		}
	}
	if !sawExpired {
		t.Fatalf("expected a payout_expired event on the bus")
	}

	book, err := house.Orderbook(obId)
	if err != nil {
		t.Fatalf("Orderbook lookup failed: %v", err)
	}
	if _, ok := book.Order("ord1"); ok {
		t.Fatalf("expired order should be removed")
	}
}

func TestCreateOrderbookRejectsUnregisteredProduct(t *testing.T) {
	house := New()
	_, err := house.CreateOrderbook(orderbook.Config{ProductTypeId: "nope", PriceStep: 1, Symbol: "XAUUSD"})
	cmdErr, ok := err.(*CommandError)
	if !ok || cmdErr.Kind != KindProductNotRegistered {
		t.Fatalf("expected product_not_registered, got %v", err)
	}
}

func TestDebitAccountRejectsInsufficientBalance(t *testing.T) {
	house := newHouse(t)
	err := house.DebitAccount("acct1", "USD", 10)
	cmdErr, ok := err.(*CommandError)
	if !ok || cmdErr.Kind != KindInsufficientBalance {
		t.Fatalf("expected insufficient_balance, got %v", err)
	}
}
