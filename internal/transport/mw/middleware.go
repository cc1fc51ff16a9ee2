package mw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ViewAuth guards the local view API with a shared bearer token.
// An empty token disables the check, which is the default on localhost.
// EventSource cannot set headers, so the token is also accepted as the
// access_token query parameter.
func ViewAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if token == "" {
			return next
		}
		want := []byte(token)
		return func(c echo.Context) error {
			got := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if got == "" {
				got = c.QueryParam("access_token")
			}
			if got == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				log.Warn().Str("path", c.Path()).Msg("view token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid view token")
			}
			return next(c)
		}
	}
}
