package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
)

// IPRateLimiter はクライアントIPごとにトークンバケットで流量を制限する。
// /health と /metrics は対象外
func IPRateLimiter(perSecond float64) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(math.Ceil(perSecond * 2)),
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: skipProbePaths,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "クライアントを識別できません")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Ctx(c.Request().Context()).Warn("HTTPレート制限を超過しました",
				zap.String("remote_ip", identifier), zap.String("path", c.Request().URL.Path))
			return echo.NewHTTPError(http.StatusTooManyRequests, "リクエストが多すぎます。しばらくしてから再度お試しください")
		},
	})
}
