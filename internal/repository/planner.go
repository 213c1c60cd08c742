package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
)

// PlannerRepository issues session-scoped planner settings and EXPLAIN.
type PlannerRepository interface {
	SetIndexScans(ctx context.Context, q Querier, on bool) error
	Explain(ctx context.Context, q Querier, sql string) (model.Plan, error)
	ReadOnly(ctx context.Context, q Querier, fn func() error) error
}

type plannerRepo struct{}

func NewPlannerRepository() PlannerRepository { return &plannerRepo{} }

// SetIndexScans flips enable_indexscan and enable_bitmapscan for the current session.
func (r *plannerRepo) SetIndexScans(ctx context.Context, q Querier, on bool) error {
	val := "OFF"
	if on {
		val = "ON"
	}
	if _, err := q.ExecContext(ctx, "SET enable_indexscan = "+val); err != nil {
		return fmt.Errorf("set enable_indexscan=%s: %w", val, err)
	}
	if _, err := q.ExecContext(ctx, "SET enable_bitmapscan = "+val); err != nil {
		return fmt.Errorf("set enable_bitmapscan=%s: %w", val, err)
	}
	return nil
}

// Explain runs EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) and returns the first plan object.
func (r *plannerRepo) Explain(ctx context.Context, q Querier, sql string) (model.Plan, error) {
	var raw []byte
	if err := q.GetContext(ctx, &raw, "EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) "+sql); err != nil {
		return nil, err
	}

	var plans []model.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("decode plan: empty EXPLAIN output")
	}
	return plans[0], nil
}

// ReadOnly runs fn inside a READ ONLY transaction on the session and always rolls it back,
// so whatever fn executes cannot modify data.
func (r *plannerRepo) ReadOnly(ctx context.Context, q Querier, fn func() error) (err error) {
	if _, err := q.ExecContext(ctx, "BEGIN READ ONLY"); err != nil {
		return fmt.Errorf("begin read only: %w", err)
	}
	defer func() {
		if _, rerr := q.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()
	return fn()
}
