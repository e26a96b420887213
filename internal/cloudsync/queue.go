package cloudsync

import "sync"

// eventKind distinguishes engine events.
type eventKind int

const (
	// eventMount asks for the initial pull.
	eventMount eventKind = iota + 1
	// eventLocalChange reports a local edit.
	eventLocalChange
	// eventDebounce is the debounce timer firing.
	eventDebounce
	// eventVisibility reports the foreground state changing.
	eventVisibility
	// eventPoll is the polling timer firing.
	eventPoll
)

func (k eventKind) String() string {
	switch k {
	case eventMount:
		return "mount"
	case eventLocalChange:
		return "local-change"
	case eventDebounce:
		return "debounce"
	case eventVisibility:
		return "visibility"
	case eventPoll:
		return "poll"
	}
	return "unknown"
}

// event is one unit of work for the engine loop.
type event struct {
	kind eventKind

	// gen tags timer events; a timer event whose gen is stale was
	// superseded and is ignored.
	gen uint64

	// visible is the new foreground state for eventVisibility.
	visible bool
}

// eventQueue is a thread-safe FIFO queue for events.
//
// Timers and state subscribers enqueue from their own goroutines while the
// engine loop dequeues. The queue uses a channel for signaling to enable
// context-aware waiting in the loop.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking; the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
