// Package ledger implements the balance ledger: per-(account, asset)
// balances and locked amounts, derived from an append-only journal of
// LedgerEntry values, exactly as specified in spec.md §4.1.
//
// Grounded on internal/core/ledger.go (Deposit/Withdraw/Adjust/Record*,
// an in-memory map-backed store with its own mutex, append-then-return),
// generalized from the teacher's single fixed set of transaction kinds to
// the spec's uniform credit/debit/lock/unlock change set.
package ledger

import (
	"sync"
	"time"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/idgen"
	"github.com/epic1st/clearinghouse/logging"
)

// AccountAsset is the key every balance/lock is tracked under.
type AccountAsset struct {
	Account domain.AccountId
	Asset   string
}

// Change is a single (account, asset, amount) movement within an entry.
type Change struct {
	Account domain.AccountId
	Asset   string
	Amount  float64
}

// Changes groups the four kinds of movement applyChanges processes, in the
// order they are applied: debits, then credits, then locks, then unlocks.
type Changes struct {
	Credits []Change
	Debits  []Change
	Locks   []Change
	Unlocks []Change
}

// Entry is one append-only journal record.
type Entry struct {
	ID       string
	Ts       time.Time
	Changes  Changes
	Metadata map[string]string
}

// Ledger owns the balance/lock maps and the insertion-ordered journal.
// Exclusively owned by the dispatcher (spec.md §5); no internal locking is
// required by that ownership model, but a mutex is kept for the same
// belt-and-suspenders reason the teacher's Ledger carries one, since
// read-only accessors (GetBalance, History) may be called concurrently
// with event-stream consumers.
type Ledger struct {
	mu       sync.RWMutex
	balances map[AccountAsset]float64
	locked   map[AccountAsset]float64
	journal  []Entry
	log      *logging.Logger
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[AccountAsset]float64),
		locked:   make(map[AccountAsset]float64),
		log:      logging.New("ledger"),
	}
}

// ApplyChanges commits an entry atomically: debits, then credits, then
// locks (balance -= amount, locked += amount), then unlocks (balance +=
// amount, locked -= amount, clamped at zero per spec.md §4.1's documented
// over-unlock contract). It never fails; callers validate inputs.
func (l *Ledger) ApplyChanges(changes Changes, metadata map[string]string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range changes.Debits {
		key := AccountAsset{c.Account, c.Asset}
		l.balances[key] -= c.Amount
	}
	for _, c := range changes.Credits {
		key := AccountAsset{c.Account, c.Asset}
		l.balances[key] += c.Amount
	}
	for _, c := range changes.Locks {
		key := AccountAsset{c.Account, c.Asset}
		l.balances[key] -= c.Amount
		l.locked[key] += c.Amount
	}
	for _, c := range changes.Unlocks {
		key := AccountAsset{c.Account, c.Asset}
		l.balances[key] += c.Amount
		l.locked[key] -= c.Amount
		if l.locked[key] < 0 {
			l.locked[key] = 0
		}
	}

	entry := Entry{
		ID:       idgen.New("ldg"),
		Ts:       time.Now(),
		Changes:  changes,
		Metadata: metadata,
	}
	l.journal = append(l.journal, entry)
	return entry
}

// Lock is the single-op convenience form of a lock-only Changes.
func (l *Ledger) Lock(account domain.AccountId, asset string, amount float64, metadata map[string]string) Entry {
	return l.ApplyChanges(Changes{Locks: []Change{{account, asset, amount}}}, metadata)
}

// Unlock is the single-op convenience form of an unlock-only Changes.
func (l *Ledger) Unlock(account domain.AccountId, asset string, amount float64, metadata map[string]string) Entry {
	return l.ApplyChanges(Changes{Unlocks: []Change{{account, asset, amount}}}, metadata)
}

// Credit is the single-op convenience form of a credit-only Changes.
func (l *Ledger) Credit(account domain.AccountId, asset string, amount float64, metadata map[string]string) Entry {
	return l.ApplyChanges(Changes{Credits: []Change{{account, asset, amount}}}, metadata)
}

// Debit is the single-op convenience form of a debit-only Changes.
func (l *Ledger) Debit(account domain.AccountId, asset string, amount float64, metadata map[string]string) Entry {
	return l.ApplyChanges(Changes{Debits: []Change{{account, asset, amount}}}, metadata)
}

// GetBalance returns the current balance, 0 for an unknown pair.
func (l *Ledger) GetBalance(account domain.AccountId, asset string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[AccountAsset{account, asset}]
}

// GetLocked returns the current locked amount, 0 for an unknown pair.
func (l *Ledger) GetLocked(account domain.AccountId, asset string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.locked[AccountAsset{account, asset}]
}

// History returns a read-only, insertion-ordered snapshot of the journal.
func (l *Ledger) History() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.journal))
	copy(out, l.journal)
	return out
}

// Replay reduces a journal from an empty state and returns the resulting
// balances and locked amounts, used by the conservation property test
// (spec.md §8): replaying the current journal must reproduce GetBalance
// and GetLocked for every account/asset pair.
func Replay(journal []Entry) (balances map[AccountAsset]float64, locked map[AccountAsset]float64) {
	balances = make(map[AccountAsset]float64)
	locked = make(map[AccountAsset]float64)
	for _, entry := range journal {
		for _, c := range entry.Changes.Debits {
			key := AccountAsset{c.Account, c.Asset}
			balances[key] -= c.Amount
		}
		for _, c := range entry.Changes.Credits {
			key := AccountAsset{c.Account, c.Asset}
			balances[key] += c.Amount
		}
		for _, c := range entry.Changes.Locks {
			key := AccountAsset{c.Account, c.Asset}
			balances[key] -= c.Amount
			locked[key] += c.Amount
		}
		for _, c := range entry.Changes.Unlocks {
			key := AccountAsset{c.Account, c.Asset}
			balances[key] += c.Amount
			locked[key] -= c.Amount
			if locked[key] < 0 {
				locked[key] = 0
			}
		}
	}
	return balances, locked
}
