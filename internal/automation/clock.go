package automation

import "time"

// Clock abstracts time for the engine and scheduler so tests can inject a
// fixed instant.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock backed by the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }
