package perf

import (
	"context"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/db"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
	"github.com/jmehdipour/sqlperf-lab/internal/util"
	"go.uber.org/zap"
)

// SessionProvider is satisfied by *db.Provider.
type SessionProvider interface {
	With(ctx context.Context, fn func(*db.Session) error) error
}

// Reporter receives one event per timed execution. Implementations must not fail the caller.
type Reporter interface {
	Report(ctx context.Context, ev model.RunEvent)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, model.RunEvent) {}

// Service ties a session provider to the runner and inspector. Every call opens its own
// session(s); nothing is cached between calls.
type Service struct {
	sessions  SessionProvider
	runner    *Runner
	inspector *Inspector
	reporter  Reporter
	log       *zap.Logger
}

// New constructs the perf service. reporter and log may be nil.
func New(sessions SessionProvider, reporter Reporter, log *zap.Logger) *Service {
	planner := repository.NewPlannerRepository()
	if reporter == nil {
		reporter = nopReporter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sessions:  sessions,
		runner:    NewRunner(repository.NewRankingRepository(), planner),
		inspector: NewInspector(planner),
		reporter:  reporter,
		log:       log,
	}
}

// TopCustomers opens a session, runs the ranking (optionally with index scans disabled) and
// closes the session before returning.
func (s *Service) TopCustomers(ctx context.Context, source string, limit int, disableIndex bool) (model.Ranking, string, error) {
	runID := util.NewRunID()
	r, err := s.run(ctx, runID, source, limit, disableIndex)
	return r, runID, err
}

func (s *Service) run(ctx context.Context, runID, source string, limit int, disableIndex bool) (model.Ranking, error) {
	var out model.Ranking
	err := s.sessions.With(ctx, func(sess *db.Session) error {
		r, err := s.runner.Run(ctx, sess, limit, disableIndex)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		s.log.Error("top customers failed",
			zap.String("run_id", runID),
			zap.String("path", pathOf(disableIndex).String()),
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return model.Ranking{}, err
	}

	s.reporter.Report(ctx, model.RunEvent{
		RunID:          runID,
		Source:         source,
		Path:           pathOf(disableIndex),
		DisableIndex:   disableIndex,
		Limit:          limit,
		Rows:           len(out.Rows),
		ElapsedSeconds: out.Seconds(),
		CreatedAt:      time.Now().UTC(),
	})
	return out, nil
}

// Explain opens a session and fetches the plan for sql.
func (s *Service) Explain(ctx context.Context, sql string, disableIndex bool) (model.Plan, error) {
	var plan model.Plan
	err := s.sessions.With(ctx, func(sess *db.Session) error {
		p, err := s.inspector.Explain(ctx, sess, sql, disableIndex)
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Compare runs the fast path, the slow path, and both plans, each on a fresh session.
// It stops at the first failure; there are no partial comparisons.
func (s *Service) Compare(ctx context.Context, source string, n int) (model.Comparison, error) {
	c := model.Comparison{RunID: util.NewRunID(), N: n}
	var err error

	if c.Fast, err = s.run(ctx, c.RunID, source, n, false); err != nil {
		return model.Comparison{}, err
	}
	if c.Slow, err = s.run(ctx, c.RunID, source, n, true); err != nil {
		return model.Comparison{}, err
	}

	query := repository.RankingQuery(n)
	if c.FastPlan, err = s.Explain(ctx, query, false); err != nil {
		return model.Comparison{}, err
	}
	if c.SlowPlan, err = s.Explain(ctx, query, true); err != nil {
		return model.Comparison{}, err
	}

	s.log.Info("comparison finished",
		zap.String("run_id", c.RunID),
		zap.Int("n", n),
		zap.Float64("fast_seconds", c.Fast.Seconds()),
		zap.Float64("slow_seconds", c.Slow.Seconds()),
		zap.Bool("fast_uses_index", c.FastPlan.UsesIndex()),
		zap.Bool("slow_uses_index", c.SlowPlan.UsesIndex()),
	)
	return c, nil
}
