package perf

import (
	"context"
	"errors"

	"github.com/jmehdipour/sqlperf-lab/internal/repository"
)

// WithPlannerToggle runs fn with index and bitmap scans disabled for the session when
// disableIndex is set, and turns both back on afterwards whatever fn returned. A session that
// is later reused must never inherit the disabled planner.
func WithPlannerToggle(ctx context.Context, q repository.Querier, planner repository.PlannerRepository, disableIndex bool, fn func() error) (err error) {
	if !disableIndex {
		return fn()
	}

	restore := func() error {
		// the request may already be cancelled; the session still has to be restored
		rerr := planner.SetIndexScans(context.WithoutCancel(ctx), q, true)
		return classify(rerr, func(e error) error { return &QueryError{Op: "planner_restore", Err: e} })
	}

	if serr := planner.SetIndexScans(ctx, q, false); serr != nil {
		serr = classify(serr, func(e error) error { return &QueryError{Op: "planner_toggle", Err: e} })
		// the first SET may have landed before the second failed
		return errors.Join(serr, restore())
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	return fn()
}
