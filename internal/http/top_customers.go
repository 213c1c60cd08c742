package http

import (
	"context"
	"math"
	"net/http"

	"github.com/jmehdipour/sqlperf-lab/internal/metrics"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/service/perf"
	echo "github.com/labstack/echo/v4"
)

const apiMessage = "SQL Performance API is running"

// RankingService is satisfied by *perf.Service.
type RankingService interface {
	TopCustomers(ctx context.Context, source string, limit int, disableIndex bool) (model.Ranking, string, error)
}

type topCustomersResp struct {
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	Data                 [][]any `json:"data"`
}

type slowResp struct {
	ElapsedTimeSeconds float64          `json:"elapsed_time_seconds"`
	TopCustomers       []model.SpendRow `json:"top_customers"`
}

// rootHandler never touches the store.
func rootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": apiMessage})
}

func topCustomersHandler(svc RankingService, limit int) echo.HandlerFunc {
	return func(c echo.Context) error {
		r, runID, err := svc.TopCustomers(c.Request().Context(), "api", limit, false)
		metrics.RequestsTotal.WithLabelValues("top_customers", perf.Kind(err)).Inc()
		if err != nil {
			c.Logger().Errorf("top customers failed: %v", err)
			return c.JSON(errorBody(err))
		}

		c.Response().Header().Set("X-Run-ID", runID)
		return c.JSON(http.StatusOK, topCustomersResp{
			ExecutionTimeSeconds: round4(r.Seconds()),
			Data:                 r.Tuples(),
		})
	}
}

func slowHandler(svc RankingService, limit int, disableIndex bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		r, runID, err := svc.TopCustomers(c.Request().Context(), "api", limit, disableIndex)
		metrics.RequestsTotal.WithLabelValues("slow", perf.Kind(err)).Inc()
		if err != nil {
			c.Logger().Errorf("slow query failed: %v", err)
			return c.JSON(errorBody(err))
		}

		rows := r.Rows
		if rows == nil {
			rows = []model.SpendRow{}
		}
		c.Response().Header().Set("X-Run-ID", runID)
		return c.JSON(http.StatusOK, slowResp{
			ElapsedTimeSeconds: r.Seconds(),
			TopCustomers:       rows,
		})
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
