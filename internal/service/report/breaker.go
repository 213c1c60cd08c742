package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
)

// ErrSinkOpen is returned while a sink's breaker is open; the event is skipped, not retried.
var ErrSinkOpen = errors.New("report sink breaker open")

type state int

const (
	closed state = iota
	open
	halfOpen
)

// breaker trips after threshold consecutive failures and lets a single trial call through once
// openFor has elapsed.
type breaker struct {
	mu        sync.Mutex
	st        state
	fails     int
	threshold int
	openFor   time.Duration
	retryAt   time.Time
	probing   bool
	now       func() time.Time
}

func newBreaker(threshold int, openFor time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &breaker{threshold: threshold, openFor: openFor, now: time.Now}
}

func (b *breaker) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case open:
		if b.now().After(b.retryAt) && !b.probing {
			b.st = halfOpen
			b.probing = true
			return true
		}
		return false
	case halfOpen:
		if !b.probing {
			b.probing = true
			return true
		}
		return false
	default:
		return true
	}
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.fails = 0
		b.st = closed
		b.probing = false
		return
	}
	if b.st == halfOpen {
		b.st = open
		b.retryAt = b.now().Add(b.openFor)
		b.probing = false
		return
	}
	b.fails++
	if b.fails >= b.threshold {
		b.st = open
		b.retryAt = b.now().Add(b.openFor)
	}
}

type guardedSink struct {
	Sink
	b *breaker
}

// WithBreaker stops calling s for openFor after threshold consecutive failures, so a dead
// broker or ClickHouse does not add its timeout to every request.
func WithBreaker(s Sink, threshold int, openFor time.Duration) Sink {
	return &guardedSink{Sink: s, b: newBreaker(threshold, openFor)}
}

func (g *guardedSink) Write(ctx context.Context, ev model.RunEvent) error {
	if !g.b.acquire() {
		return ErrSinkOpen
	}
	err := g.Sink.Write(ctx, ev)
	g.b.record(err)
	return err
}
