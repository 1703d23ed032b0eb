package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

func UTC() time.Time {
	return Now().UTC()
}

// DaysSince returns whole elapsed UTC days between t and the current clock.
// Inputs in the future clamp to zero.
func DaysSince(t time.Time) int {
	elapsed := UTC().Sub(t.UTC())
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
