package session

import "time"

// Clock abstracts wall time and timer scheduling so expiry behaviour can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run after d. fn runs on its own goroutine.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a stoppable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. Reports whether it was still
	// pending.
	Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
