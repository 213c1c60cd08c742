package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/kafka"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/util"
	"go.uber.org/zap"
)

// Source is satisfied by *kafka.Consumer.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Handler receives every decoded run event, in partition order.
type Handler func(ctx context.Context, ev model.RunEvent) error

// RunTail:
// - fetches run events from Kafka,
// - hands each decoded event to Handle,
// - commits after Handle returns (at-least-once).
type RunTail struct {
	Source  Source
	Handle  Handler
	Log     *zap.Logger
	Backoff time.Duration // pause after a fetch error
}

func NewRunTail(src Source, h Handler, log *zap.Logger) *RunTail {
	if log == nil {
		log = zap.NewNop()
	}
	return &RunTail{Source: src, Handle: h, Log: log, Backoff: 200 * time.Millisecond}
}

// Run blocks until ctx is cancelled. A Handle error stops the loop without committing.
func (w *RunTail) Run(ctx context.Context) error {
	if w.Handle == nil {
		return errors.New("run-tail: nil handler")
	}
	if w.Backoff <= 0 {
		w.Backoff = 200 * time.Millisecond
	}

	for {
		m, err := w.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.Backoff):
			}
			continue
		}

		if err := w.processOne(ctx, m); err != nil {
			return err
		}
	}
}

func (w *RunTail) processOne(ctx context.Context, m kafka.Message) error {
	var ev model.RunEvent
	err := json.Unmarshal(m.Value, &ev)
	if err == nil {
		_, err = util.RunIDTime(ev.RunID)
	}
	if err != nil {
		// poison: commit and skip
		w.Log.Warn("bad run event",
			zap.Int64("offset", m.Offset),
			zap.Int("partition", m.Partition),
			zap.Error(err),
		)
		w.commit(ctx, m)
		return nil
	}

	if err := w.Handle(ctx, ev); err != nil {
		return err
	}
	w.commit(ctx, m)
	return nil
}

func (w *RunTail) commit(ctx context.Context, m kafka.Message) {
	if err := w.Source.Commit(ctx, m); err != nil && ctx.Err() == nil {
		w.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}
