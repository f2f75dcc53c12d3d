// Package supervisor restarts any failed long-lived component independently,
// per spec.md §2 ("started under a supervisor that restarts any failed child
// independently").
package supervisor

import (
	"context"
	"log/slog"
	"time"
)

// Child is a long-lived unit of execution. Run blocks until ctx is canceled
// (nil error) or the child fails (non-nil error, triggering a restart).
type Child func(ctx context.Context) error

type namedChild struct {
	name string
	run  Child
}

// Supervisor restarts each registered child independently with backoff,
// generalizing the teacher's subscribeMachinesWithRetry from "retry one
// subscription" to "restart any named child."
type Supervisor struct {
	children     []namedChild
	initialDelay time.Duration
	maxDelay     time.Duration
}

// New returns a Supervisor with no children registered yet.
func New() *Supervisor {
	return &Supervisor{initialDelay: 100 * time.Millisecond, maxDelay: 30 * time.Second}
}

// Add registers a named child to be started by Run.
func (s *Supervisor) Add(name string, run Child) {
	s.children = append(s.children, namedChild{name: name, run: run})
}

// Run starts every registered child in its own goroutine and blocks until
// ctx is canceled. A child returning a non-nil error is restarted after a
// backoff that grows per consecutive failure and resets once the child
// survives 30s, logged but never propagated to sibling children.
func (s *Supervisor) Run(ctx context.Context) error {
	done := make(chan struct{}, len(s.children))
	for _, c := range s.children {
		c := c
		go func() {
			s.runWithRestart(ctx, c)
			done <- struct{}{}
		}()
	}

	<-ctx.Done()
	for range s.children {
		<-done
	}
	return nil
}

func (s *Supervisor) runWithRestart(ctx context.Context, c namedChild) {
	delay := s.initialDelay
	log := slog.With("component", "supervisor", "child", c.name)

	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		err := c.run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			log.Warn("child exited without error; restarting")
		} else {
			log.Error("child failed; restarting", "error", err)
		}

		if time.Since(start) > s.maxDelay {
			delay = s.initialDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}
