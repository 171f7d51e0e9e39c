package orderbook

import (
	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/ledger"
)

// BalanceSnapshot is a post-change (account, asset) balance/lock pair,
// used to populate one balance_updated event per impacted pair (spec.md
// §4.4.2 step 9, §4.6).
type BalanceSnapshot struct {
	Account domain.AccountId
	Asset   string
	Balance float64
	Locked  float64
}

func toLedgerChange(c domain.BalanceChange) ledger.Change {
	return ledger.Change{Account: c.Account, Asset: c.Asset, Amount: c.Amount}
}

func toLedgerChanges(c domain.BalanceChanges) ledger.Changes {
	out := ledger.Changes{}
	for _, x := range c.Credits {
		out.Credits = append(out.Credits, toLedgerChange(x))
	}
	for _, x := range c.Debits {
		out.Debits = append(out.Debits, toLedgerChange(x))
	}
	for _, x := range c.Locks {
		out.Locks = append(out.Locks, toLedgerChange(x))
	}
	for _, x := range c.Unlocks {
		out.Unlocks = append(out.Unlocks, toLedgerChange(x))
	}
	return out
}

// applyToLedger commits changes to ledg and returns one BalanceSnapshot per
// distinct (account, asset) pair touched, in first-touched order.
func applyToLedger(ledg *ledger.Ledger, changes domain.BalanceChanges, metadata map[string]string) []BalanceSnapshot {
	ledg.ApplyChanges(toLedgerChanges(changes), metadata)

	type key struct {
		account domain.AccountId
		asset   string
	}
	seen := make(map[key]bool)
	var order []key
	touch := func(c domain.BalanceChange) {
		k := key{c.Account, c.Asset}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}
	for _, c := range changes.Credits {
		touch(c)
	}
	for _, c := range changes.Debits {
		touch(c)
	}
	for _, c := range changes.Locks {
		touch(c)
	}
	for _, c := range changes.Unlocks {
		touch(c)
	}

	snapshots := make([]BalanceSnapshot, 0, len(order))
	for _, k := range order {
		snapshots = append(snapshots, BalanceSnapshot{
			Account: k.account,
			Asset:   k.asset,
			Balance: ledg.GetBalance(k.account, k.asset),
			Locked:  ledg.GetLocked(k.account, k.asset),
		})
	}
	return snapshots
}
