package model

import "time"

// Path names which variant of the spend query ran.
type Path string

const (
	PathFast Path = "fast"
	PathSlow Path = "slow"
)

func (p Path) String() string { return string(p) }

// Comparison is one dashboard render: both paths and both plans for the same N.
type Comparison struct {
	RunID    string  `json:"run_id"`
	N        int     `json:"n"`
	Fast     Ranking `json:"fast"`
	Slow     Ranking `json:"slow"`
	FastPlan Plan    `json:"fast_plan"`
	SlowPlan Plan    `json:"slow_plan"`
}

// Speedup is slow/fast; 0 when the fast path took no measurable time.
func (c Comparison) Speedup() float64 {
	if c.Fast.Elapsed <= 0 {
		return 0
	}
	return float64(c.Slow.Elapsed) / float64(c.Fast.Elapsed)
}

// RunEvent is what the optional report sinks receive for every timed execution.
type RunEvent struct {
	RunID          string    `json:"run_id"          db:"run_id"`
	Source         string    `json:"source"          db:"source"` // api | dashboard | cli
	Path           Path      `json:"path"            db:"path"`
	DisableIndex   bool      `json:"disable_index"   db:"disable_index"`
	Limit          int       `json:"limit"           db:"limit_n"`
	Rows           int       `json:"rows"            db:"rows"`
	ElapsedSeconds float64   `json:"elapsed_seconds" db:"elapsed_seconds"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
}
