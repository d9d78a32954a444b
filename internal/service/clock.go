package service

import "time"

// Clock supplies the current UTC instant. Schedulers and services take a
// Clock instead of calling time.Now so tests can pin the tape.
type Clock interface {
	NowUTC() time.Time
}

type systemClock struct{}

func (systemClock) NowUTC() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }
