package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/db"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/service/perf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComparer struct {
	err error
	ns  []int
}

func (f *fakeComparer) Compare(_ context.Context, source string, n int) (model.Comparison, error) {
	f.ns = append(f.ns, n)
	if f.err != nil {
		return model.Comparison{}, f.err
	}
	rows := []model.SpendRow{
		{ID: 3, Name: "Carol <admin>", TotalSpent: 1200},
		{ID: 1, Name: "Alice", TotalSpent: 800.5},
	}
	return model.Comparison{
		RunID:    "01TESTRUN",
		N:        n,
		Fast:     model.Ranking{Rows: rows, Elapsed: 12 * time.Millisecond},
		Slow:     model.Ranking{Rows: rows, Elapsed: 250 * time.Millisecond},
		FastPlan: model.Plan{"Plan": map[string]any{"Node Type": "Index Scan"}},
		SlowPlan: model.Plan{"Plan": map[string]any{"Node Type": "Seq Scan"}},
	}, nil
}

func newTestServer(t *testing.T, svc Comparer) *Server {
	t.Helper()
	cfg := config.Config{
		Dashboard: config.DashboardConfig{MinN: 5, MaxN: 100, DefaultN: 10},
		Log:       config.LogConfig{Level: "error"},
	}
	s, err := NewServer(cfg, svc, nil)
	require.NoError(t, err)
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestParseN(t *testing.T) {
	cfg := config.DashboardConfig{MinN: 5, MaxN: 100, DefaultN: 10}
	tests := map[string]int{
		"":     10,
		"abc":  10,
		"7":    7,
		" 42 ": 42,
		"1":    5,
		"-3":   5,
		"5":    5,
		"100":  100,
		"500":  100,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parseN(raw, cfg), "raw=%q", raw)
	}
}

func TestIndexRendersComparison(t *testing.T) {
	svc := &fakeComparer{}
	s := newTestServer(t, svc)

	rec := get(s, "/?n=25")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Optimized query: 0.012 s")
	assert.Contains(t, body, "Slow query: 0.250 s")
	assert.Contains(t, body, "Index Scan")
	assert.Contains(t, body, "Seq Scan")
	assert.Contains(t, body, "Carol &lt;admin&gt;")
	assert.NotContains(t, body, "Carol <admin>")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, `value="25"`)
	assert.Contains(t, body, "01TESTRUN")
	assert.Equal(t, []int{25}, svc.ns)
}

func TestIndexRerunsEveryRequest(t *testing.T) {
	svc := &fakeComparer{}
	s := newTestServer(t, svc)

	_ = get(s, "/")
	_ = get(s, "/")
	_ = get(s, "/?n=1000")
	assert.Equal(t, []int{10, 10, 100}, svc.ns)
}

func TestIndexErrorPage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"unreachable", &db.ConnectionError{Op: "dial", Err: errors.New("refused")}, http.StatusServiceUnavailable, "connection_error"},
		{"plan", &perf.PlanError{Err: errors.New("bad")}, http.StatusInternalServerError, "plan_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &fakeComparer{err: tc.err})

			rec := get(s, "/")
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.kind)
			assert.NotContains(t, rec.Body.String(), "<svg")
		})
	}
}

func TestCompareJSON(t *testing.T) {
	s := newTestServer(t, &fakeComparer{})

	rec := get(s, "/compare.json?n=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		RunID   string  `json:"run_id"`
		N       int     `json:"n"`
		Speedup float64 `json:"speedup"`
		Fast    struct {
			ElapsedSeconds float64          `json:"elapsed_seconds"`
			Rows           []model.SpendRow `json:"rows"`
		} `json:"fast"`
		SlowPlan map[string]any `json:"slow_plan"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "01TESTRUN", got.RunID)
	assert.Equal(t, 5, got.N)
	assert.InDelta(t, 250.0/12.0, got.Speedup, 1e-9)
	assert.InDelta(t, 0.012, got.Fast.ElapsedSeconds, 1e-9)
	assert.Len(t, got.Fast.Rows, 2)
	assert.Contains(t, got.SlowPlan, "Plan")
}

func TestCompareJSONError(t *testing.T) {
	s := newTestServer(t, &fakeComparer{err: &db.ConnectionError{Op: "ping", Err: errors.New("eof")}})

	rec := get(s, "/compare.json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "connection_error"}`, rec.Body.String())
}

func TestChartScalesToSlowest(t *testing.T) {
	c := newChart(0.5, 2)
	require.Len(t, c.Bars, 2)
	assert.Equal(t, "Optimized", c.Bars[0].Label)
	assert.InDelta(t, barSpan/4.0, c.Bars[0].Width, 1e-9)
	assert.InDelta(t, float64(barSpan), c.Bars[1].Width, 1e-9)
	assert.Equal(t, "2.000", c.Bars[1].Value)

	zero := newChart(0, 0)
	assert.Zero(t, zero.Bars[0].Width)
	assert.Zero(t, zero.Bars[1].Width)
}
