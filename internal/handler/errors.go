package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/repository"
	"github.com/iliyamo/dogrun-backend/internal/service"
	"github.com/iliyamo/dogrun-backend/internal/storage"
	dogvalidator "github.com/iliyamo/dogrun-backend/internal/validator"
)

// errorBody is the JSON shape of every error response:
// {"error": {"code": "...", "message": "..."}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestError is a malformed request detected by a handler.
type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }

func badRequest(msg string) error { return requestError{msg: msg} }

// statusError pins the HTTP status of err, e.g. conflicts on submission
// endpoints that answer 400 instead of 409.
type statusError struct {
	status int
	err    error
}

func (e statusError) Error() string { return e.err.Error() }
func (e statusError) Unwrap() error { return e.err }

func withStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return statusError{status: status, err: err}
}

// conflictAsBadRequest keeps every other error untouched.
func conflictAsBadRequest(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return withStatus(http.StatusBadRequest, err)
	}
	return err
}

// classify maps an error to status, code and client-facing message.
func classify(err error) (int, string, string) {
	var (
		se statusError
		re requestError
		ve validator.ValidationErrors
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &se):
		_, code, msg := classify(se.err)
		return se.status, code, msg
	case errors.As(err, &re):
		return http.StatusBadRequest, "bad_request", re.msg
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation_failed", dogvalidator.Describe(ve)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated", "missing, invalid or expired token"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden", "insufficient role"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest, "invalid_state", detail(err, service.ErrInvalidState)
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict", detail(err, repository.ErrConflict)
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_")), msg
	}
	return http.StatusInternalServerError, "internal_error", "internal server error"
}

// detail returns the text wrapped around sentinel, e.g. "application
// already approved" for "invalid state: application already approved".
func detail(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

// ErrorHandler renders errors returned by handlers and middleware.
// Unexpected errors are logged with the request path; their details never
// reach the client.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, code, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Any("error", err))
		}
		if status == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, errorBody{Error: errorDetail{Code: code, Message: msg}})
		}
		if werr != nil {
			logger.Error("write error response", slog.Any("error", werr))
		}
	}
}
