// Package idgen mints the opaque, globally-unique identifiers the core
// packages hand out for orderbooks, events and ledger entries (order ids
// are supplied by callers and position ids are derived deterministically
// by domain.PositionIdFor). The
// teacher repo leans on google/uuid wherever it needs a collision-free id
// without a database sequence (admin audit ids, trade refs); this package
// is the single place that dependency is exercised here.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a fresh random identifier with the given prefix, e.g.
// New("ord") -> "ord_3fa9c1d2...".
func New(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
