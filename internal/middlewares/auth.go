package middlewares

import (
	"crypto/subtle"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
	"github.com/onurcolak/whatsapp-copilot/pkg/response"
)

// APIKeyHeader carries the operator key for the admin API.
const APIKeyHeader = "x-admin-api-key"

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// APIKeyAuth guards the admin routes. An empty key fails closed with 500.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("admin API key is not configured"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" || !secureCompare(token, apiKey) {
				logger.WithFields(map[string]any{
					"path":       c.Request().URL.Path,
					"method":     c.Request().Method,
					"remote_ip":  c.RealIP(),
					"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
					"key_sent":   token != "",
				}).Warn("Rejected admin API request")
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}
