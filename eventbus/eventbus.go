// Package eventbus implements the buffered publish-subscribe bus described
// in spec.md §4.3: a totally-ordered event stream, tagged with a
// dispatcher-wide monotonic clockSeq, fed to synchronous listeners via
// DispatchAll and to external subscribers via a per-subscriber Stream.
//
// Grounded on the teacher's ws/hub.go Hub (register/unregister/broadcast
// channels fanning one source of truth out to many clients) and
// internal/api/websocket/publishers.go's typed Publish* methods — here
// generalized from "one hub broadcasting raw JSON frames" to "one bus
// broadcasting typed event envelopes to both synchronous listeners and
// asynchronous stream subscribers".
package eventbus

import (
	"sync"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/idgen"
)

// Name identifies an event kind (spec.md §4.6).
type Name string

const (
	OrderPlaced     Name = "order_placed"
	OrderRejected   Name = "order_rejected"
	OrderFilled     Name = "order_filled"
	BalanceUpdated  Name = "balance_updated"
	PriceUpdate     Name = "price_update"
	ClockTick       Name = "clock_tick"
	VerificationHit Name = "verification_hit"
	PayoutSettled   Name = "payout_settled"
	PayoutExpired   Name = "payout_expired"
)

// Event is the envelope every publish produces.
type Event struct {
	EventId     string
	Name        Name
	OrderbookId domain.OrderbookId
	Ts          domain.Timestamp
	ClockSeq    uint64
	Payload     any
}

// Listener is a synchronous subscriber invoked during DispatchAll.
type Listener func(Event)

// Bus is the single per-dispatcher event bus. It is exclusively owned by
// the dispatcher (spec.md §5): all Publish calls happen on the dispatcher's
// single logical thread. The mutex guards clockSeq, the backlog, the
// stream registry and the listener map, so Subscribe/Unsubscribe/OnEvent
// may be called from outside that thread (e.g. an HTTP handler attaching
// a new WebSocket subscriber).
type Bus struct {
	mu        sync.Mutex
	clockSeq  uint64
	backlog   []Event
	listeners map[Name][]Listener
	streams   map[*Stream]struct{}
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{
		listeners: make(map[Name][]Listener),
		streams:   make(map[*Stream]struct{}),
	}
}

// Publish assigns the next clockSeq, enqueues the event onto the backlog,
// and immediately pushes it onto every currently-attached stream (spec.md
// §4.3: "pushes to all currently-attached streams immediately").
func (b *Bus) Publish(name Name, orderbookId domain.OrderbookId, ts domain.Timestamp, payload any) Event {
	b.mu.Lock()
	b.clockSeq++
	ev := Event{
		EventId:     idgen.New("evt"),
		Name:        name,
		OrderbookId: orderbookId,
		Ts:          ts,
		ClockSeq:    b.clockSeq,
		Payload:     payload,
	}
	b.backlog = append(b.backlog, ev)
	streams := make([]*Stream, 0, len(b.streams))
	for s := range b.streams {
		streams = append(streams, s)
	}
	b.mu.Unlock()

	for _, s := range streams {
		s.push(ev)
	}
	return ev
}

// OnEvent registers a synchronous listener for a given event name. It runs
// inside DispatchAll and must not suspend unboundedly (spec.md §4.3/§5).
func (b *Bus) OnEvent(name Name, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// DispatchAll drains the backlog, invoking every registered listener for
// each event's name, one event at a time, in publication order. Called
// after every command, successful or not (spec.md §4.5, §7).
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	pending := b.backlog
	b.backlog = nil
	b.mu.Unlock()

	for _, ev := range pending {
		b.mu.Lock()
		ls := append([]Listener(nil), b.listeners[ev.Name]...)
		b.mu.Unlock()
		for _, l := range ls {
			l(ev)
		}
	}
}

// Subscribe attaches a new stream that will receive every event published
// from this point on.
func (b *Bus) Subscribe() *Stream {
	s := newStream()
	b.mu.Lock()
	b.streams[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe detaches and closes a stream, releasing any pending waiters
// (spec.md §4.3).
func (b *Bus) Unsubscribe(s *Stream) {
	b.mu.Lock()
	delete(b.streams, s)
	b.mu.Unlock()
	s.Close()
}

// ClockSeq returns the last assigned clockSeq, for diagnostics/metrics.
func (b *Bus) ClockSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clockSeq
}
