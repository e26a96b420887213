// Package clock abstracts wall time and timers so the sync engine and the
// idle cleanup can be driven by a manual clock in tests.
package clock

import "time"

// Clock is the source of time and timers.
//
// Implemented by Real (production) and testutil.ManualClock (tests).
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// stopped before it fired.
	Stop() bool
}

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
