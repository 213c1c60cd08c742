package model

import (
	"encoding/json"
	"time"
)

// SpendRow is one customer with the sum of their order totals.
type SpendRow struct {
	ID         int64   `db:"id"          json:"id"`
	Name       string  `db:"name"        json:"name"`
	TotalSpent float64 `db:"total_spent" json:"total_spent"`
}

// Tuple is the positional form the top-customers endpoint returns: [id, name, total_spent].
func (r SpendRow) Tuple() []any {
	return []any{r.ID, r.Name, r.TotalSpent}
}

// Ranking is the result of one timed execution of the spend query.
type Ranking struct {
	Rows    []SpendRow
	Elapsed time.Duration
}

// Seconds returns the elapsed time as float seconds.
func (r Ranking) Seconds() float64 { return r.Elapsed.Seconds() }

// Tuples renders rows as positional arrays; never nil so empty results encode as [].
func (r Ranking) Tuples() [][]any {
	out := make([][]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row.Tuple())
	}
	return out
}

// Sorted reports whether totals are non-increasing.
func (r Ranking) Sorted() bool {
	for i := 1; i < len(r.Rows); i++ {
		if r.Rows[i].TotalSpent > r.Rows[i-1].TotalSpent {
			return false
		}
	}
	return true
}

// SameRows compares two rankings ignoring the order of rows with equal totals,
// since ties are broken however the store likes.
func SameRows(a, b []SpendRow) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[SpendRow]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	for _, r := range b {
		if counts[r] == 0 {
			return false
		}
		counts[r]--
	}
	return true
}

// MarshalJSON keeps an empty ranking as [] rather than null.
func (r Ranking) MarshalJSON() ([]byte, error) {
	rows := r.Rows
	if rows == nil {
		rows = []SpendRow{}
	}
	return json.Marshal(struct {
		ElapsedSeconds float64    `json:"elapsed_seconds"`
		Rows           []SpendRow `json:"rows"`
	}{r.Seconds(), rows})
}
