package orderbook

import (
	"sort"

	"github.com/epic1st/clearinghouse/domain"
)

// findColumnInsertIndex returns the index at which a column with the given
// WindowStart belongs, preserving ascending order (spec.md I2).
func (b *EphemeralOrderbook) findColumnInsertIndex(windowStart domain.Timestamp) int {
	return sort.Search(len(b.columns), func(i int) bool {
		return b.columns[i].WindowStart >= windowStart
	})
}

// getOrCreateColumn locates the TimeColumn for windowStart, creating and
// inserting it in ascending order if absent.
func (b *EphemeralOrderbook) getOrCreateColumn(windowStart, windowEnd domain.Timestamp) *TimeColumn {
	if col, ok := b.columnIndex[windowStart]; ok {
		return col
	}
	col := &TimeColumn{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Buckets:     make(map[float64]*PriceBucket),
	}
	idx := b.findColumnInsertIndex(windowStart)
	b.columns = append(b.columns, nil)
	copy(b.columns[idx+1:], b.columns[idx:])
	b.columns[idx] = col
	b.columnIndex[windowStart] = col
	return col
}

// getOrCreateBucket locates the PriceBucket for key within col, creating
// it if absent.
func getOrCreateBucket(col *TimeColumn, key float64) *PriceBucket {
	if bucket, ok := col.Buckets[key]; ok {
		return bucket
	}
	bucket := &PriceBucket{Key: key}
	col.Buckets[key] = bucket
	return bucket
}

// insertOrder inserts order into bucket at the position given by the
// product comparator, preserving FIFO order among ties: the insertion
// point is the first index whose existing order compares strictly after
// the new one, so an order is placed after every existing order it
// compares equal to (spec.md §4.2: "Stable: a tie produces FIFO by
// insertion order").
func insertOrder(bucket *PriceBucket, order *domain.Order, cmp func(a, b *domain.Order) int) {
	idx := sort.Search(len(bucket.Orders), func(i int) bool {
		return cmp(order, bucket.Orders[i]) < 0
	})
	bucket.Orders = append(bucket.Orders, nil)
	copy(bucket.Orders[idx+1:], bucket.Orders[idx:])
	bucket.Orders[idx] = order
}

// removeOrderFromBucket deletes id from bucket's order list, if present.
func removeOrderFromBucket(bucket *PriceBucket, id domain.OrderId) {
	for i, o := range bucket.Orders {
		if o.Id == id {
			bucket.Orders = append(bucket.Orders[:i], bucket.Orders[i+1:]...)
			return
		}
	}
}
