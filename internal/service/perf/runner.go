package perf

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/metrics"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
)

const (
	MinLimit = 1
	MaxLimit = 1000
)

// Runner times the spend ranking query on a caller-provided session.
type Runner struct {
	Ranking repository.RankingRepository
	Planner repository.PlannerRepository
}

func NewRunner(ranking repository.RankingRepository, planner repository.PlannerRepository) *Runner {
	return &Runner{Ranking: ranking, Planner: planner}
}

// TopCustomers executes the ranking query and fetches every row. Elapsed covers execute and
// fetch only; opening and closing the session is the caller's business and is not timed.
func (r *Runner) TopCustomers(ctx context.Context, q repository.Querier, limit int) (model.Ranking, error) {
	if limit < MinLimit || limit > MaxLimit {
		return model.Ranking{}, &QueryError{
			Op:  "top_customers",
			Err: fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidLimit, limit, MinLimit, MaxLimit),
		}
	}

	start := time.Now()
	rows, err := r.Ranking.TopCustomers(ctx, q, limit)
	elapsed := time.Since(start)
	if err != nil {
		return model.Ranking{}, classify(err, func(e error) error {
			return &QueryError{Op: "top_customers", SQL: repository.RankingQuery(limit), Err: e}
		})
	}

	return model.Ranking{Rows: rows, Elapsed: elapsed}, nil
}

// Run is TopCustomers inside the planner toggle. The toggle statements are outside the timed
// window.
func (r *Runner) Run(ctx context.Context, q repository.Querier, limit int, disableIndex bool) (model.Ranking, error) {
	var out model.Ranking
	err := WithPlannerToggle(ctx, q, r.Planner, disableIndex, func() error {
		res, err := r.TopCustomers(ctx, q, limit)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Ranking{}, err
	}

	metrics.QueryDuration.WithLabelValues(pathOf(disableIndex).String()).Observe(out.Seconds())
	return out, nil
}

func pathOf(disableIndex bool) model.Path {
	if disableIndex {
		return model.PathSlow
	}
	return model.PathFast
}
