package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-arena-booking/internal/pkg/metrics"
)

// ルートに一致しなかったリクエストのラベル。パスをそのまま使うとラベルが際限なく増える
const unmatchedRoute = "unmatched"

// PrometheusMiddleware はルート単位でリクエスト数と処理時間を記録する。
// /metrics と /health はスクレイプやプローブで埋まるため記録しない
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipProbePaths(c) {
				return next(c)
			}
			start := time.Now()

			if err := next(c); err != nil {
				// エラーハンドラーを先に通してステータスを確定させる
				c.Error(err)
			}

			method := c.Request().Method
			route := c.Path()
			if c.Response().Status == http.StatusNotFound && !isRoute(c.Echo(), method, route) {
				route = unmatchedRoute
			}

			m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func skipProbePaths(c echo.Context) bool {
	switch c.Request().URL.Path {
	case "/metrics", "/health":
		return true
	}
	return false
}

func isRoute(e *echo.Echo, method, path string) bool {
	if path == "" {
		return false
	}
	for _, r := range e.Routes() {
		if r.Method == method && r.Path == path {
			return true
		}
	}
	return false
}
