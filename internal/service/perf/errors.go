package perf

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jmehdipour/sqlperf-lab/internal/db"
)

var (
	ErrInvalidLimit   = errors.New("limit out of range")
	ErrEmptyStatement = errors.New("empty statement")
	ErrNotReadOnly    = errors.New("only SELECT or WITH statements can be explained")
)

// QueryError is a failure while executing or fetching a statement.
type QueryError struct {
	Op  string // top_customers | planner_toggle | planner_restore
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed during %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// PlanError is a failure to obtain an execution plan for the given statement.
type PlanError struct {
	SQL string
	Err error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("explain failed: %v (SQL: %s)", e.Err, clip(e.SQL, 100))
}

func (e *PlanError) Unwrap() error { return e.Err }

// classify keeps connection failures as ConnectionError and wraps the rest with wrap.
func classify(err error, wrap func(error) error) error {
	if err == nil {
		return nil
	}
	if db.IsConnectionFailure(err) {
		var ce *db.ConnectionError
		if errors.As(err, &ce) {
			return err
		}
		return &db.ConnectionError{Op: "use", Err: err}
	}
	return wrap(err)
}

// Kind names the error class for responses and metrics.
func Kind(err error) string {
	var pe *PlanError
	var qe *QueryError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, db.ErrConnection):
		return "connection_error"
	case errors.As(err, &pe):
		return "plan_error"
	case errors.As(err, &qe):
		return "query_error"
	default:
		return "internal_error"
	}
}

// clip cuts s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
