package eventbus

import "sync"

// Stream is a multi-producer/single-consumer, unbounded in-memory queue
// (spec.md §4.3, §5): Publish pushes from the dispatcher's thread, a
// single external consumer drains it with Next. The queue is never
// capacity-bounded by the bus itself — a consumer that stops reading
// causes no backpressure on the core (spec.md §5); deployments with
// memory limits must bound it themselves (e.g. by periodically calling
// Unsubscribe and resubscribing, or wrapping Next with a ring buffer).
type Stream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
}

func newStream() *Stream {
	s := &Stream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Stream) push(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, e)
	s.cond.Signal()
}

// Next blocks until an event is available or the stream is closed. The
// second return value is false once the stream is closed and drained.
func (s *Stream) Next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return Event{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// TryNext is a non-blocking variant of Next, used by consumers that poll
// instead of blocking (e.g. tests inspecting what has been published so
// far).
func (s *Stream) TryNext() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Event{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// Close releases any pending waiters in Next; subsequent pushes are
// dropped silently.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}
