package errors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body of every failed API request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Codes for errors raised by echo and the middleware chain
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeTooLarge     = "payload_too_large"
	CodeRateLimited  = "rate_limited"
	CodeUnavailable  = "restart_required"
	CodeInternal     = "internal"
	CodeNotAllowed   = "method_not_allowed"
)

// CodeForStatus returns the error code used for an HTTP status
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeNotAllowed
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestEntityTooLarge:
		return CodeTooLarge
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	}
	return CodeInternal
}

// JSON writes an ErrorResponse carrying the request id
func JSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

// HTTPErrorHandler renders errors returned by handlers and middleware as
// ErrorResponse bodies. Errors that are not *echo.HTTPError become a 500 and
// their text is logged, not sent.
func HTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if he.Internal != nil {
				log.Debug().Err(he.Internal).Int("status", status).Msg("request error")
			}
			switch m := he.Message.(type) {
			case string:
				message = m
			case error:
				message = m.Error()
			default:
				message = fmt.Sprint(m)
			}
		} else {
			log.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = JSON(c, status, CodeForStatus(status), message)
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to write error response")
		}
	}
}
