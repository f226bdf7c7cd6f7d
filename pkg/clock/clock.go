// Package clock abstracts the time source behind session timers so tests can drive them.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// AfterFunc runs f on its own goroutine (Real) or inside Advance (Fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	// Stop reports whether it prevented the callback from running.
	Stop() bool
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
