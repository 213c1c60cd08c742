package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	api "github.com/jmehdipour/sqlperf-lab/internal/http"
	"github.com/jmehdipour/sqlperf-lab/internal/http/middleware"
	"github.com/jmehdipour/sqlperf-lab/internal/metrics"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/service/perf"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Comparer is satisfied by *perf.Service.
type Comparer interface {
	Compare(ctx context.Context, source string, n int) (model.Comparison, error)
}

type Server struct {
	e   *echo.Echo
	cfg config.DashboardConfig
	svc Comparer
	log *zap.Logger
}

type renderer struct{ t *template.Template }

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

// NewServer wires the dashboard. Every page load runs a full comparison; nothing is cached.
func NewServer(cfg config.Config, svc Comparer, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{t: t}
	e.Logger.SetLevel(middleware.GommonLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), middleware.RequestLogger(logger))

	metrics.MustRegister(prometheus.DefaultRegisterer)

	s := &Server{e: e, cfg: cfg.Dashboard, svc: svc, log: logger}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/", s.index)
	e.GET("/compare.json", s.compareJSON)

	return s, nil
}

type errorView struct {
	Kind    string
	Message string
}

type pageView struct {
	N, MinN, MaxN int
	RunID         string
	FastPlan      string
	SlowPlan      string
	FastSeconds   string
	SlowSeconds   string
	FastRows      []model.SpendRow
	SlowRows      []model.SpendRow
	Chart         chart
	Error         *errorView
}

func (s *Server) index(c echo.Context) error {
	n := parseN(c.QueryParam("n"), s.cfg)
	v := pageView{N: n, MinN: s.cfg.MinN, MaxN: s.cfg.MaxN}

	cmp, err := s.svc.Compare(c.Request().Context(), "dashboard", n)
	kind := perf.Kind(err)
	metrics.RequestsTotal.WithLabelValues("dashboard", kind).Inc()
	if err != nil {
		s.log.Error("dashboard comparison failed", zap.Int("n", n), zap.Error(err))
		v.Error = &errorView{Kind: kind, Message: err.Error()}
		return c.Render(api.StatusFor(kind), "index.html", v)
	}

	if v.FastPlan, err = indentPlan(cmp.FastPlan); err != nil {
		return err
	}
	if v.SlowPlan, err = indentPlan(cmp.SlowPlan); err != nil {
		return err
	}
	v.RunID = cmp.RunID
	v.FastSeconds = fmt.Sprintf("%.3f", cmp.Fast.Seconds())
	v.SlowSeconds = fmt.Sprintf("%.3f", cmp.Slow.Seconds())
	v.FastRows = cmp.Fast.Rows
	v.SlowRows = cmp.Slow.Rows
	v.Chart = newChart(cmp.Fast.Seconds(), cmp.Slow.Seconds())

	return c.Render(http.StatusOK, "index.html", v)
}

type compareResp struct {
	RunID    string        `json:"run_id"`
	N        int           `json:"n"`
	Fast     model.Ranking `json:"fast"`
	Slow     model.Ranking `json:"slow"`
	Speedup  float64       `json:"speedup"`
	FastPlan model.Plan    `json:"fast_plan"`
	SlowPlan model.Plan    `json:"slow_plan"`
}

func (s *Server) compareJSON(c echo.Context) error {
	n := parseN(c.QueryParam("n"), s.cfg)

	cmp, err := s.svc.Compare(c.Request().Context(), "dashboard", n)
	kind := perf.Kind(err)
	metrics.RequestsTotal.WithLabelValues("compare_json", kind).Inc()
	if err != nil {
		s.log.Error("comparison failed", zap.Int("n", n), zap.Error(err))
		return c.JSON(api.StatusFor(kind), map[string]string{"error": kind})
	}

	return c.JSON(http.StatusOK, compareResp{
		RunID:    cmp.RunID,
		N:        cmp.N,
		Fast:     cmp.Fast,
		Slow:     cmp.Slow,
		Speedup:  cmp.Speedup(),
		FastPlan: cmp.FastPlan,
		SlowPlan: cmp.SlowPlan,
	})
}

// parseN falls back to the default on anything unparsable and clamps the rest into range.
func parseN(raw string, cfg config.DashboardConfig) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return cfg.DefaultN
	}
	return min(max(n, cfg.MinN), cfg.MaxN)
}

func indentPlan(p model.Plan) (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render plan: %w", err)
	}
	return string(b), nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("dashboard: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
