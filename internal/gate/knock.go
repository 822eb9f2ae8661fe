// Package gate holds client-side helpers for the Nilavanti entrance.
package gate

import (
	"sync"
	"time"
)

const (
	DefaultKnocks = 3
	DefaultWindow = 2 * time.Second
)

// Knock counts rapid clicks on the gate. Reaching the threshold within the
// window reveals the hidden entrance once and starts a new burst.
type Knock struct {
	threshold int
	window    time.Duration
	now       func() time.Time

	mu    sync.Mutex
	count int
	first time.Time
}

// NewKnock returns a counter; non-positive arguments fall back to the defaults.
func NewKnock(threshold int, window time.Duration) *Knock {
	if threshold <= 0 {
		threshold = DefaultKnocks
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Knock{threshold: threshold, window: window, now: time.Now}
}

// Hit registers one knock and reports whether it completed the sequence.
func (k *Knock) Hit() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if k.count == 0 || now.Sub(k.first) > k.window {
		k.count = 0
		k.first = now
	}
	k.count++
	if k.count >= k.threshold {
		k.count = 0
		return true
	}
	return false
}

// Remaining reports how many knocks are still needed in the current burst.
func (k *Knock) Remaining() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.count > 0 && k.now().Sub(k.first) > k.window {
		return k.threshold
	}
	return k.threshold - k.count
}
