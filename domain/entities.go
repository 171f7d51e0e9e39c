package domain

// Order is a maker-posted conditional payout order, owned by the
// orderbook that holds it (spec.md §3). Data carries product-specific
// fields as an opaque payload — the "tagged capability record" style
// spec.md §9 calls for instead of a class hierarchy.
type Order struct {
	Id               OrderId
	MakerId          AccountId
	Data             any
	SizeTotal        float64
	SizeRemaining    float64
	TimePlaced       Timestamp
	TriggerWindow    TimeWindow
	PendingPositions []PositionId
	// CancelOnly mirrors membership in the orderbook's cancel-only set; it
	// is maintained by the orderbook, not read by product runtimes.
	CancelOnly bool
}

// HasPendingPosition reports whether id is already present in
// PendingPositions, used to enforce "append if not already present"
// (spec.md §4.4.2 step 7).
func (o *Order) HasPendingPosition(id PositionId) bool {
	for _, p := range o.PendingPositions {
		if p == id {
			return true
		}
	}
	return false
}

// RemovePendingPosition deletes id from PendingPositions, if present.
func (o *Order) RemovePendingPosition(id PositionId) {
	out := o.PendingPositions[:0]
	for _, p := range o.PendingPositions {
		if p != id {
			out = append(out, p)
		}
	}
	o.PendingPositions = out
}

// Position is a taker's claim against an Order, deterministically keyed by
// (taker, order) so repeated fills aggregate (spec.md §3, I6/I7).
type Position struct {
	Id               PositionId
	OrderId          OrderId
	UserId           AccountId // taker
	Size             float64
	CollateralLocked float64
	TimeCreated      Timestamp
	Data             any
}

// BalanceChange is a single (account, asset, amount) ledger movement, used
// by product runtimes so they stay decoupled from the ledger package's
// concrete journal-entry representation.
type BalanceChange struct {
	Account AccountId
	Asset   string
	Amount  float64
}

// BalanceChanges groups the ledger movements a product operation produces.
// Payout results must balance per asset (sum Credits == sum Debits) when
// Unlocks are ignored, per spec.md §4.2.
type BalanceChanges struct {
	Credits []BalanceChange
	Debits  []BalanceChange
	Locks   []BalanceChange
	Unlocks []BalanceChange
}
