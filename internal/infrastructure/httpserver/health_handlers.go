package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/health"
)

const healthTimeout = 2 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// healthResponse reports the product cache separately: reads fall back to the
// database when it is down, so a cache outage degrades the service without
// making it unavailable.
type healthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    string                      `json:"timestamp"`
	Service      string                      `json:"service"`
	Cache        string                      `json:"cache,omitempty"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	var mu sync.Mutex
	deps := make(map[string]dependencyStatus, len(s.healthCheckers))
	var g errgroup.Group
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		hc := hc
		g.Go(func() error {
			start := time.Now()
			dep := dependencyStatus{Status: "healthy"}
			if err := hc.Check(ctx); err != nil {
				dep.Status = "unhealthy"
				dep.Error = err.Error()
			}
			dep.LatencyMS = time.Since(start).Milliseconds()
			mu.Lock()
			deps[hc.Name()] = dep
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := healthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Service:      "ecommerce",
		Dependencies: deps,
	}
	code := http.StatusOK
	for name, dep := range deps {
		if name == health.CacheCheckName {
			resp.Cache = dep.Status
			if dep.Status != "healthy" && resp.Status == "healthy" {
				resp.Status = "degraded"
			}
			continue
		}
		if dep.Status != "healthy" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, resp)
}
