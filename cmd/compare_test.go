package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintComparison(t *testing.T) {
	c := model.Comparison{
		RunID: "01TESTRUN",
		N:     2,
		Fast: model.Ranking{
			Rows:    []model.SpendRow{{ID: 1, Name: "Alice", TotalSpent: 900}, {ID: 2, Name: "Bob", TotalSpent: 10}},
			Elapsed: 4 * time.Millisecond,
		},
		Slow: model.Ranking{
			Rows:    []model.SpendRow{{ID: 1, Name: "Alice", TotalSpent: 900}},
			Elapsed: 40 * time.Millisecond,
		},
		FastPlan: model.Plan{"Plan": map[string]any{"Node Type": "Index Scan"}},
		SlowPlan: model.Plan{"Plan": map[string]any{"Node Type": "Seq Scan"}},
	}

	var buf bytes.Buffer
	require.NoError(t, printComparison(&buf, c))
	out := buf.String()

	assert.Contains(t, out, "run 01TESTRUN  top 2")
	assert.Contains(t, out, "Optimized query: 0.004 s")
	assert.Contains(t, out, "Slow query: 0.040 s")
	assert.Contains(t, out, "Speedup: 10.0x")
	assert.Contains(t, out, "optimized uses index=true, slow uses index=false")
	assert.Contains(t, out, "OPTIMIZED")
	assert.Contains(t, out, "SLOW")
	assert.Contains(t, out, "1 Alice")
	assert.Contains(t, out, "900.00")
	assert.Contains(t, out, "2 Bob")

	// the second table row has no slow counterpart
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "2 Bob")
	assert.Equal(t, 1, strings.Count(last, "Bob"))
	assert.NotContains(t, last, "Alice")
}
