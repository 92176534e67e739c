package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// requireIngestAuth authorizes POST /ingest against the configured ingest
// secret or scheduler secret, accepted as a bearer token, an x-cron-secret
// header, or a legacy ?secret= query param.
func (s *Server) requireIngestAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractIngestToken(c.Request())
			if token == "" || !s.acceptsIngestToken(token) {
				return failUnauthorized(c, "Authentication required")
			}
			return next(c)
		}
	}
}

func extractIngestToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			return strings.TrimSpace(auth[len("bearer "):])
		}
	}
	if cron := strings.TrimSpace(r.Header.Get("x-cron-secret")); cron != "" {
		return cron
	}
	return strings.TrimSpace(r.URL.Query().Get("secret"))
}

func (s *Server) acceptsIngestToken(token string) bool {
	if constantTimeEqual(token, s.opts.IngestSecret) {
		return true
	}
	if strings.TrimSpace(s.opts.SchedulerSecret) != "" && constantTimeEqual(token, s.opts.SchedulerSecret) {
		return true
	}
	return false
}

func constantTimeEqual(a, b string) bool {
	if b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
