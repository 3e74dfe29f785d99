package ratelimit

import "time"

// DefaultIdleFactor is how many cooldown lengths a record may sit idle
// before the sweeper drops it.
const DefaultIdleFactor = 3

// StartSweeper periodically evicts idle records so the store does not grow
// without bound over the process lifetime. Records idle longer than idleFor
// are dropped on each tick. The returned function stops the sweeper; it is
// safe to call once.
func (l *Limiter) StartSweeper(interval, idleFor time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				l.store.Sweep(l.now(), idleFor)
			}
		}
	}()

	return func() { close(done) }
}

// IdleTimeout derives the sweep horizon for a policy: a few multiples of
// the cooldown, but never shorter than the window itself.
func IdleTimeout(policy Policy) time.Duration {
	idle := policy.Cooldown * DefaultIdleFactor
	if idle < policy.Window {
		idle = policy.Window
	}
	return idle
}
