// Package handler contains the HTTP handlers of the dog-run API. Handlers
// return errors instead of writing error responses; ErrorHandler maps them
// to status codes.
package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/service"
)

// requestTimeout bounds the storage work done for a single request.
const requestTimeout = 5 * time.Second

const dateLayout = "2006-01-02"

type messageResp struct {
	Message string `json:"message"`
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func auditContext(c echo.Context) service.AuditContext {
	return service.AuditContext{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// bindAndValidate binds the request into dst and runs the echo validator.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("invalid request body")
	}
	return c.Validate(dst)
}

// parseDate parses an optional YYYY-MM-DD value.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, badRequest(field + " must be YYYY-MM-DD")
	}
	return &t, nil
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }
