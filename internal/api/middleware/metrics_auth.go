package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const metricsRealm = "arena-booking metrics"

// MetricsBasicAuth は /metrics を Basic 認証で保護する。
// user と password のどちらかが空なら認証しない
func MetricsBasicAuth(user, password string) echo.MiddlewareFunc {
	enabled := user != "" && password != ""

	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(echo.Context) bool { return !enabled },
		Realm:   metricsRealm,
		Validator: func(username, pass string, c echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(username), []byte(user)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
			return userOK && passOK, nil
		},
	})
}
