package ledger

import (
	"testing"

	"github.com/epic1st/clearinghouse/domain"
)

func TestApplyChangesCreditsAndDebits(t *testing.T) {
	l := New()
	l.Credit("acct1", "USD", 100, nil)
	l.Debit("acct1", "USD", 40, nil)

	if got := l.GetBalance("acct1", "USD"); got != 60 {
		t.Fatalf("balance = %v, want 60", got)
	}
}

func TestLockUnlockMovesBetweenBalanceAndLocked(t *testing.T) {
	l := New()
	l.Credit("acct1", "USD", 100, nil)
	l.Lock("acct1", "USD", 30, nil)

	if got := l.GetBalance("acct1", "USD"); got != 70 {
		t.Fatalf("balance after lock = %v, want 70", got)
	}
	if got := l.GetLocked("acct1", "USD"); got != 30 {
		t.Fatalf("locked after lock = %v, want 30", got)
	}

	l.Unlock("acct1", "USD", 30, nil)
	if got := l.GetBalance("acct1", "USD"); got != 100 {
		t.Fatalf("balance after unlock = %v, want 100", got)
	}
	if got := l.GetLocked("acct1", "USD"); got != 0 {
		t.Fatalf("locked after unlock = %v, want 0", got)
	}
}

// TestOverUnlockClampsLockedButStillCredits documents the spec's over-unlock
// contract: unlocking more than is locked clamps locked at zero but still
// credits the account the full unlock amount (spec.md §4.1 — deliberate,
// not a bug).
func TestOverUnlockClampsLockedButStillCredits(t *testing.T) {
	l := New()
	l.Lock("acct1", "USD", 10, nil)
	l.Unlock("acct1", "USD", 25, nil)

	if got := l.GetLocked("acct1", "USD"); got != 0 {
		t.Fatalf("locked = %v, want 0 (clamped)", got)
	}
	// balance went to -10 from the lock, then +25 from the unlock = 15.
	if got := l.GetBalance("acct1", "USD"); got != 15 {
		t.Fatalf("balance = %v, want 15", got)
	}
}

func TestNeverFailsOnNegativeBalance(t *testing.T) {
	l := New()
	entry := l.Debit("acct1", "USD", 50, nil)
	if entry.ID == "" {
		t.Fatalf("expected a non-empty entry id")
	}
	if got := l.GetBalance("acct1", "USD"); got != -50 {
		t.Fatalf("balance = %v, want -50 (insolvency path permitted, I4)", got)
	}
}

func TestUnknownPairDefaultsToZero(t *testing.T) {
	l := New()
	if got := l.GetBalance("nobody", "USD"); got != 0 {
		t.Fatalf("balance = %v, want 0", got)
	}
	if got := l.GetLocked("nobody", "USD"); got != 0 {
		t.Fatalf("locked = %v, want 0", got)
	}
}

func TestHistoryIsInsertionOrderedCopy(t *testing.T) {
	l := New()
	l.Credit("acct1", "USD", 10, nil)
	l.Credit("acct1", "USD", 20, nil)

	history := l.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	history[0].ID = "mutated"
	if l.History()[0].ID == "mutated" {
		t.Fatalf("History() must return a copy, not the live journal")
	}
}

// TestReplayReproducesCurrentState is the conservation property of
// spec.md §8 / I5: replaying the journal from empty state must reproduce
// the ledger's own balances and locked amounts.
func TestReplayReproducesCurrentState(t *testing.T) {
	l := New()
	l.Credit("maker", "USD", 100, nil)
	l.Lock("taker", "USD", 20, nil)
	l.ApplyChanges(Changes{
		Debits:  []Change{{"maker", "USD", 30}},
		Credits: []Change{{"taker", "USD", 30}},
		Unlocks: []Change{{"taker", "USD", 20}},
	}, nil)

	balances, locked := Replay(l.History())

	pairs := []struct {
		account domain.AccountId
		asset   string
	}{
		{"maker", "USD"},
		{"taker", "USD"},
	}
	for _, p := range pairs {
		key := AccountAsset{p.account, p.asset}
		if balances[key] != l.GetBalance(p.account, p.asset) {
			t.Errorf("replayed balance[%v] = %v, want %v", key, balances[key], l.GetBalance(p.account, p.asset))
		}
		if locked[key] != l.GetLocked(p.account, p.asset) {
			t.Errorf("replayed locked[%v] = %v, want %v", key, locked[key], l.GetLocked(p.account, p.asset))
		}
	}
}
