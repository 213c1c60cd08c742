package perf

import (
	"context"
	"strings"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
)

// Inspector fetches EXPLAIN ANALYZE plans under the same planner toggle as the runner.
type Inspector struct {
	Planner repository.PlannerRepository
}

func NewInspector(planner repository.PlannerRepository) *Inspector {
	return &Inspector{Planner: planner}
}

// Explain returns the structured plan of sql, with timing and buffer statistics.
// ANALYZE executes the statement: only SELECT/WITH statements are accepted, and they run in a
// READ ONLY transaction that is rolled back, so a data-modifying CTE or setval() fails in the store.
func (i *Inspector) Explain(ctx context.Context, q repository.Querier, sql string, disableIndex bool) (model.Plan, error) {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return nil, &PlanError{SQL: sql, Err: ErrEmptyStatement}
	}
	if !readOnly(stmt) {
		return nil, &PlanError{SQL: stmt, Err: ErrNotReadOnly}
	}

	var plan model.Plan
	err := WithPlannerToggle(ctx, q, i.Planner, disableIndex, func() error {
		err := i.Planner.ReadOnly(ctx, q, func() error {
			p, err := i.Planner.Explain(ctx, q, stmt)
			if err != nil {
				return err
			}
			plan = p
			return nil
		})
		return classify(err, func(e error) error { return &PlanError{SQL: stmt, Err: e} })
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func readOnly(stmt string) bool {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return true
	default:
		return false
	}
}
