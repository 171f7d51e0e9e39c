// Package dispatcher implements the clearing-house dispatcher of spec.md
// §4.5: the single command-processing surface that owns every orderbook
// and the ledger, enforces cross-cutting admission checks (maker
// whitelist, product registration, price-step validity) ahead of the
// orderbook's own checks, and publishes every event the catalogue in
// spec.md §4.6 names. Oracle price/time updates arrive through a
// separate entry point, HandlePriceAndTimeUpdate, rather than as a
// command.
//
// Grounded on the teacher's bbook/engine.go Engine: one struct holding
// every book plus the shared ledger behind a single mutex, with each
// public method doing validate-then-mutate-then-publish in that order.
package dispatcher

import (
	"fmt"
	"time"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/eventbus"
	"github.com/epic1st/clearinghouse/idgen"
	"github.com/epic1st/clearinghouse/ledger"
	"github.com/epic1st/clearinghouse/logging"
	"github.com/epic1st/clearinghouse/metrics"
	"github.com/epic1st/clearinghouse/orderbook"
	"github.com/epic1st/clearinghouse/product"

	"sync"
)

// ClearingHouse is the dispatcher. All mutating methods serialize through
// mu, matching spec.md §5's "single-threaded cooperative, all mutations
// serialized through dispatchCommand" model — here realized as a mutex
// rather than an actor mailbox, one of the two equivalent mappings spec.md
// §9 names for this model.
type ClearingHouse struct {
	mu sync.Mutex

	products   *product.Registry
	orderbooks map[domain.OrderbookId]*orderbook.EphemeralOrderbook
	bySymbol   map[string][]domain.OrderbookId
	whitelist  map[domain.OrderbookId]map[domain.AccountId]struct{}

	ledg *ledger.Ledger
	bus  *eventbus.Bus

	lastPrice map[string]float64
	lastTime  domain.Timestamp

	log *logging.Logger
}

// New constructs an empty clearing house.
func New() *ClearingHouse {
	return &ClearingHouse{
		products:   product.NewRegistry(),
		orderbooks: make(map[domain.OrderbookId]*orderbook.EphemeralOrderbook),
		bySymbol:   make(map[string][]domain.OrderbookId),
		whitelist:  make(map[domain.OrderbookId]map[domain.AccountId]struct{}),
		ledg:       ledger.New(),
		bus:        eventbus.New(),
		lastPrice:  make(map[string]float64),
		log:        logging.New("dispatcher"),
	}
}

// Bus returns the event bus, for subscribing listeners/streams.
func (c *ClearingHouse) Bus() *eventbus.Bus { return c.bus }

// Ledger returns the ledger, for read-only balance inspection by callers
// (e.g. a demo HTTP handler). Mutating it directly bypasses the
// dispatcher and is the caller's responsibility to avoid.
func (c *ClearingHouse) Ledger() *ledger.Ledger { return c.ledg }

// RegisterProduct inserts rt into the product registry under id. Never
// fails (spec.md §4.5).
func (c *ClearingHouse) RegisterProduct(id domain.ProductTypeId, rt product.Runtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products.Register(id, rt)
	c.bus.DispatchAll()
}

// CreateOrderbook allocates an OrderbookId and constructs an
// EphemeralOrderbook seeded with the dispatcher's current time and the
// last known price for cfg.Symbol (0 if none has ever been observed).
// Fails if cfg.ProductTypeId is not registered (spec.md §4.5).
func (c *ClearingHouse) CreateOrderbook(cfg orderbook.Config) (domain.OrderbookId, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bus.DispatchAll()

	rt, ok := c.products.Lookup(cfg.ProductTypeId)
	if !ok {
		return "", newCommandError(KindProductNotRegistered, map[string]any{"productTypeId": cfg.ProductTypeId})
	}

	if cfg.Id == "" {
		cfg.Id = domain.OrderbookId(idgen.New("ob"))
	}
	price := c.lastPrice[cfg.Symbol]
	book := orderbook.New(cfg, rt, c.lastTime, price)

	c.orderbooks[cfg.Id] = book
	c.bySymbol[cfg.Symbol] = append(c.bySymbol[cfg.Symbol], cfg.Id)
	c.whitelist[cfg.Id] = make(map[domain.AccountId]struct{})

	return cfg.Id, nil
}

// WhitelistMaker authorizes accountId to place orders on orderbookId.
// Never fails (spec.md §4.5): an orderbook created later than the
// whitelist call is not retroactively affected, but calling this before
// the orderbook exists is harmless bookkeeping, not an error.
func (c *ClearingHouse) WhitelistMaker(orderbookId domain.OrderbookId, accountId domain.AccountId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.whitelist[orderbookId] == nil {
		c.whitelist[orderbookId] = make(map[domain.AccountId]struct{})
	}
	c.whitelist[orderbookId][accountId] = struct{}{}
	c.bus.DispatchAll()
}

// RevokeMaker withdraws accountId's authorization on orderbookId. Never
// fails.
func (c *ClearingHouse) RevokeMaker(orderbookId domain.OrderbookId, accountId domain.AccountId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.whitelist[orderbookId], accountId)
	c.bus.DispatchAll()
}

func (c *ClearingHouse) isWhitelisted(orderbookId domain.OrderbookId, accountId domain.AccountId) bool {
	m, ok := c.whitelist[orderbookId]
	if !ok {
		return false
	}
	_, ok = m[accountId]
	return ok
}

// PlaceOrder enforces, in order, that the orderbook exists, its product
// is registered, the maker is whitelisted, and the orderbook's price
// step is positive, then delegates to the orderbook itself (spec.md
// §4.5). On success it publishes order_placed; on any rejection it
// publishes order_rejected and returns the same error to the caller.
func (c *ClearingHouse) PlaceOrder(orderbookId domain.OrderbookId, order *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bus.DispatchAll()

	book, ok := c.orderbooks[orderbookId]
	if !ok {
		return c.rejectPlacement(orderbookId, order, newCommandError(KindOrderbookNotFound, map[string]any{"orderbookId": orderbookId}))
	}
	if _, ok := c.products.Lookup(book.Config.ProductTypeId); !ok {
		return c.rejectPlacement(orderbookId, order, newCommandError(KindProductNotRegistered, map[string]any{"productTypeId": book.Config.ProductTypeId}))
	}
	if !c.isWhitelisted(orderbookId, order.MakerId) {
		return c.rejectPlacement(orderbookId, order, newCommandError(KindMakerNotAuthorized, map[string]any{"makerId": order.MakerId}))
	}
	if book.Config.PriceStep <= 0 {
		return c.rejectPlacement(orderbookId, order, newCommandError(KindInvalidPriceStep, map[string]any{"priceStep": book.Config.PriceStep}))
	}

	if err := book.PlaceOrder(order); err != nil {
		if pe, ok := err.(*orderbook.PlacementError); ok {
			return c.rejectPlacement(orderbookId, order, fromPlacementError(pe))
		}
		return c.rejectPlacement(orderbookId, order, newCommandError(KindIndexInconsistent, map[string]any{"error": err.Error()}))
	}

	metrics.RecordOrderPlaced()
	c.bus.Publish(eventbus.OrderPlaced, orderbookId, book.Time(), OrderPlacedPayload{
		OrderId: order.Id,
		MakerId: order.MakerId,
	})
	return nil
}

func (c *ClearingHouse) rejectPlacement(orderbookId domain.OrderbookId, order *domain.Order, cmdErr *CommandError) error {
	var ts domain.Timestamp
	if book, ok := c.orderbooks[orderbookId]; ok {
		ts = book.Time()
	}
	metrics.RecordOrderRejected(string(cmdErr.Kind))
	c.bus.Publish(eventbus.OrderRejected, orderbookId, ts, OrderRejectedPayload{
		OrderId: order.Id,
		Reason:  cmdErr.Kind,
		Details: cmdErr.Details,
	})
	return cmdErr
}

// FillOrder delegates to the orderbook's FillOrder and publishes
// order_filled plus one balance_updated per impacted (account, asset)
// pair (spec.md §4.5).
func (c *ClearingHouse) FillOrder(orderbookId domain.OrderbookId, orderId domain.OrderId, size float64, takerAccountId domain.AccountId, now domain.Timestamp, price float64) (*orderbook.FillReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bus.DispatchAll()

	book, ok := c.orderbooks[orderbookId]
	if !ok {
		return nil, newCommandError(KindOrderbookNotFound, map[string]any{"orderbookId": orderbookId})
	}

	report, err := book.FillOrder(c.ledg, orderId, size, takerAccountId, now, price)
	if err != nil {
		if fe, ok := err.(*orderbook.FillError); ok {
			return nil, fromFillError(fe)
		}
		return nil, newCommandError(KindIndexInconsistent, map[string]any{"error": err.Error()})
	}

	metrics.RecordFill()
	c.bus.Publish(eventbus.OrderFilled, orderbookId, book.Time(), OrderFilledPayload{
		Trade:    report.Trade,
		Position: report.Position,
	})
	c.publishBalances(orderbookId, book.Time(), report.Balances, "fill_collateral_lock")

	return report, nil
}

// CreditAccount credits amount units of asset to account. amount must be
// positive (spec.md §4.5).
func (c *ClearingHouse) CreditAccount(account domain.AccountId, asset string, amount float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bus.DispatchAll()

	if amount <= 0 {
		return newCommandError(KindNonPositiveAmount, map[string]any{"amount": amount})
	}
	c.ledg.Credit(account, asset, amount, map[string]string{"reason": "credit_account"})
	c.bus.Publish(eventbus.BalanceUpdated, "", c.lastTime, BalanceUpdatedPayload{
		Account: account,
		Asset:   asset,
		Balance: c.ledg.GetBalance(account, asset),
		Locked:  c.ledg.GetLocked(account, asset),
		Reason:  "credit_account",
	})
	return nil
}

// DebitAccount debits amount units of asset from account. amount must be
// positive and account must hold at least amount (spec.md §4.5).
func (c *ClearingHouse) DebitAccount(account domain.AccountId, asset string, amount float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bus.DispatchAll()

	if amount <= 0 {
		return newCommandError(KindNonPositiveAmount, map[string]any{"amount": amount})
	}
	if c.ledg.GetBalance(account, asset) < amount {
		return newCommandError(KindInsufficientBalance, map[string]any{"account": account, "asset": asset, "amount": amount})
	}
	c.ledg.Debit(account, asset, amount, map[string]string{"reason": "debit_account"})
	c.bus.Publish(eventbus.BalanceUpdated, "", c.lastTime, BalanceUpdatedPayload{
		Account: account,
		Asset:   asset,
		Balance: c.ledg.GetBalance(account, asset),
		Locked:  c.ledg.GetLocked(account, asset),
		Reason:  "debit_account",
	})
	return nil
}

// HandlePriceAndTimeUpdate is the oracle intake of spec.md §4.5/§6: not a
// command, never fails. It advances the dispatcher's clock, advances
// every orderbook whose symbol matches, and publishes one price_update,
// one clock_tick, then each orderbook's verification_hit/payout_settled/
// payout_expired events, in that order, before recording the new price.
func (c *ClearingHouse) HandlePriceAndTimeUpdate(symbol string, price float64, t domain.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.bus.DispatchAll()

	c.lastTime = t

	for _, obId := range c.bySymbol[symbol] {
		book, ok := c.orderbooks[obId]
		if !ok {
			continue
		}

		start := time.Now()
		result := book.AdvancePriceAndTime(c.ledg, price, t)
		metrics.ObserveAdvanceDuration(time.Since(start))

		c.bus.Publish(eventbus.PriceUpdate, obId, t, PriceUpdatePayload{Symbol: symbol, Price: price})
		c.bus.Publish(eventbus.ClockTick, obId, t, ClockTickPayload{Symbol: symbol, Time: t, Reason: "price_update"})

		for _, hit := range result.VerificationHits {
			c.bus.Publish(eventbus.VerificationHit, obId, t, VerificationHitPayload{
				OrderId:    hit.OrderId,
				PositionId: hit.PositionId,
				MakerId:    hit.MakerId,
				TakerId:    hit.TakerId,
				Price:      hit.Price,
			})
		}
		for _, settlement := range result.Settlements {
			metrics.RecordSettlement()
			c.bus.Publish(eventbus.PayoutSettled, obId, t, PayoutSettledPayload{
				OrderId:     settlement.OrderId,
				PositionId:  settlement.PositionId,
				MakerId:     settlement.MakerId,
				TakerId:     settlement.TakerId,
				Price:       settlement.Price,
				TotalCredit: settlement.TotalCredit,
			})
			c.publishBalances(obId, t, settlement.Balances, "payout_settled")
		}
		for _, unwind := range result.Unwinds {
			metrics.RecordUnwind()
			c.publishBalances(obId, t, unwind.Balances, "maker_insufficient_funds")
		}
		for _, exp := range result.Expirations {
			metrics.RecordExpiration()
			c.bus.Publish(eventbus.PayoutExpired, obId, t, PayoutExpiredPayload{
				OrderId:    exp.OrderId,
				PositionId: exp.PositionId,
				MakerId:    exp.MakerId,
				TakerId:    exp.TakerId,
				Size:       exp.Size,
			})
		}
	}

	c.lastPrice[symbol] = price
	metrics.SetClockSeq(c.bus.ClockSeq())
}

func (c *ClearingHouse) publishBalances(orderbookId domain.OrderbookId, t domain.Timestamp, balances []orderbook.BalanceSnapshot, reason string) {
	for _, bal := range balances {
		c.bus.Publish(eventbus.BalanceUpdated, orderbookId, t, BalanceUpdatedPayload{
			Account: bal.Account,
			Asset:   bal.Asset,
			Balance: bal.Balance,
			Locked:  bal.Locked,
			Reason:  reason,
		})
	}
}

// Orderbook returns the orderbook registered under id, for read-only
// inspection by callers (tests, a demo HTTP handler).
func (c *ClearingHouse) Orderbook(id domain.OrderbookId) (*orderbook.EphemeralOrderbook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	book, ok := c.orderbooks[id]
	if !ok {
		return nil, fmt.Errorf("orderbook %s not found", id)
	}
	return book, nil
}
