package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const MAX_UNGRACEFUL_TEARDOWN_DURATION = 100 * time.Millisecond

// CancelOnSigintSigterm creates a goroutine that catches SIGINT and SIGTERM signals. On reception of a signal
// cancel is called, os.Exit(128+signal) is called at most MAX_UNGRACEFUL_TEARDOWN_DURATION after if the
// process is still running.
func CancelOnSigintSigterm(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM /*All listed signals should be in the switch statement further below.*/)

	go func() {
		for sig := range ch {
			var s int
			switch sig {
			case syscall.SIGINT:
				s = int(syscall.SIGINT)
			case syscall.SIGTERM:
				s = int(syscall.SIGTERM)
			}

			go func() {
				<-time.After(MAX_UNGRACEFUL_TEARDOWN_DURATION)
				os.Exit(128 + s) //https://tldp.org/LDP/abs/html/exitcodes.html
			}()
			cancel()
		}
	}()
}
