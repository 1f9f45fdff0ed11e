package tradefeed

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
)

// Recorder keeps the most recent trades in memory for the query API.
type Recorder struct {
	mu     sync.RWMutex
	limit  int
	events deque.Deque[Event]
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 1
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events.Len() == r.limit {
		r.events.PopFront()
	}
	r.events.PushBack(ev)
	return nil
}

// Recent returns up to n trades, oldest first. n <= 0 returns all of them.
func (r *Recorder) Recent(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.events.Len()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Event, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, r.events.At(i))
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.events.Len()
}

func (r *Recorder) Close() error { return nil }
