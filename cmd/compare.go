package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	compareN    int
	compareJSON bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run one fast/slow comparison and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(config.LoadOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		n := compareN
		if n <= 0 {
			n = cfg.Dashboard.DefaultN
		}

		ctx := cmd.Context()
		svc, cleanup, err := newPerfService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		c, err := svc.Compare(ctx, "cli", n)
		if err != nil {
			return fmt.Errorf("compare: %w", err)
		}

		out := cmd.OutOrStdout()
		if compareJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		}
		return printComparison(out, c)
	},
}

func init() {
	compareCmd.Flags().IntVar(&compareN, "n", 0, "top-N customers (default dashboard.default_n)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "print the full comparison, plans included, as JSON")
}

func printComparison(w io.Writer, c model.Comparison) error {
	fmt.Fprintf(w, "run %s  top %d\n\n", c.RunID, c.N)
	fmt.Fprintf(w, "Optimized query: %.3f s\n", c.Fast.Seconds())
	fmt.Fprintf(w, "Slow query: %.3f s\n", c.Slow.Seconds())
	if s := c.Speedup(); s > 0 {
		fmt.Fprintf(w, "Speedup: %.1fx\n", s)
	}
	fmt.Fprintf(w, "Plans: optimized uses index=%t, slow uses index=%t\n\n",
		c.FastPlan.UsesIndex(), c.SlowPlan.UsesIndex())

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetRowLine(false)
	table.SetBorder(false)
	table.SetHeader([]string{"#", "OPTIMIZED", "TOTAL", "SLOW", "TOTAL"})

	for i := 0; i < max(len(c.Fast.Rows), len(c.Slow.Rows)); i++ {
		row := []string{strconv.Itoa(i + 1)}
		row = append(row, cells(c.Fast.Rows, i)...)
		row = append(row, cells(c.Slow.Rows, i)...)
		table.Append(row)
	}
	table.Render()
	return nil
}

func cells(rows []model.SpendRow, i int) []string {
	if i >= len(rows) {
		return []string{"", ""}
	}
	return []string{
		fmt.Sprintf("%d %s", rows[i].ID, rows[i].Name),
		fmt.Sprintf("%.2f", rows[i].TotalSpent),
	}
}
