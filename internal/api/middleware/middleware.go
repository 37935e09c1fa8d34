package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-arena-booking/internal/pkg/metrics"
)

// Options は共通ミドルウェアの設定
type Options struct {
	// RateLimit はIPごとの毎秒リクエスト数。0以下で無効
	RateLimit float64
	// Metrics が nil の場合はHTTPメトリクスを収集しない
	Metrics *metrics.Metrics
}

// SetupMiddleware は共通ミドルウェアを設定する
func SetupMiddleware(e *echo.Echo, opts Options) {
	// リクエストID
	e.Use(middleware.RequestID())

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	// パニックリカバリー
	e.Use(middleware.Recover())

	// CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	if opts.Metrics != nil {
		e.Use(PrometheusMiddleware(opts.Metrics))
	}

	if opts.RateLimit > 0 {
		e.Use(IPRateLimiter(opts.RateLimit))
	}
}
