package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/metrics"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
	"go.uber.org/zap"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Sink accepts one run event.
type Sink interface {
	Name() string
	Write(ctx context.Context, ev model.RunEvent) error
}

type kafkaSink struct{ pub Publisher }

// NewKafkaSink publishes events as JSON keyed by run id.
func NewKafkaSink(pub Publisher) Sink { return &kafkaSink{pub: pub} }

func (s *kafkaSink) Name() string { return "kafka" }

func (s *kafkaSink) Write(ctx context.Context, ev model.RunEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, []byte(ev.RunID), b)
}

type clickhouseSink struct{ runs repository.CHRunsRepository }

// NewClickHouseSink appends events to sqlperf.runs.
func NewClickHouseSink(runs repository.CHRunsRepository) Sink { return &clickhouseSink{runs: runs} }

func (s *clickhouseSink) Name() string { return "clickhouse" }

func (s *clickhouseSink) Write(ctx context.Context, ev model.RunEvent) error {
	return s.runs.Insert(ctx, ev)
}

// Recorder fans events out to every sink. A failing sink is logged and counted; it never
// fails the request that produced the event.
type Recorder struct {
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger
}

func NewRecorder(log *zap.Logger, sinks ...Sink) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{sinks: sinks, timeout: 2 * time.Second, log: log}
}

func (r *Recorder) Report(ctx context.Context, ev model.RunEvent) {
	if len(r.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	var errs []error
	for _, s := range r.sinks {
		if err := s.Write(ctx, ev); err != nil {
			metrics.ReportFailures.WithLabelValues(s.Name()).Inc()
			errs = append(errs, err)
			r.log.Warn("report sink failed",
				zap.String("sink", s.Name()),
				zap.String("run_id", ev.RunID),
				zap.Error(err),
			)
		}
	}
	if len(errs) == len(r.sinks) {
		r.log.Debug("run event dropped", zap.String("run_id", ev.RunID), zap.Error(errors.Join(errs...)))
	}
}
