package state

import "sync/atomic"

// Revision is the monotonic counter bumped on every local state change.
//
// Comparing two revisions answers "did anything change?" without looking at
// the content. Readers may load it without holding the state lock; writers
// bump it while holding the lock.
type Revision struct {
	n atomic.Int64
}

// Next bumps the counter and returns the new value.
func (r *Revision) Next() int64 {
	return r.n.Add(1)
}

// Current returns the counter without bumping it.
func (r *Revision) Current() int64 {
	return r.n.Load()
}
