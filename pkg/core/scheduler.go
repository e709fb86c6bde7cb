package core

import (
	"time"
)

// cleanupScheduler runs a periodic capacity check on its own goroutine
// until stopped.
type cleanupScheduler struct {
	interval time.Duration
	check    func()
	stop     chan struct{}
	done     chan struct{}
}

func newCleanupScheduler(interval time.Duration, check func()) *cleanupScheduler {
	return &cleanupScheduler{
		interval: interval,
		check:    check,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *cleanupScheduler) start() {
	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.check()
			case <-c.stop:
				return
			}
		}
	}()
}

// halt stops the scheduler and waits for the goroutine to exit. Safe to
// call once.
func (c *cleanupScheduler) halt() {
	close(c.stop)
	<-c.done
}
