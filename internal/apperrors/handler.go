package apperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/logging"
)

// HTTPErrorHandler renders every error as {"error": "..."}. Server side
// failures are logged with their cause and answered with InternalMessage.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	l := logging.FromContext(c.Request().Context())

	code, msg := resolve(err)
	if code >= http.StatusInternalServerError {
		l.Error("request_failed", "status", code, "error", err)
		if code == http.StatusInternalServerError {
			msg = InternalMessage
		}
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, echo.Map{"error": msg})
	}
	if writeErr != nil {
		l.Error("error_response_failed", "error", writeErr)
	}
}

func resolve(err error) (int, string) {
	if appErr, ok := As(err); ok {
		return appErr.HTTPCode, appErr.Message
	}
	if he, ok := err.(*echo.HTTPError); ok {
		switch m := he.Message.(type) {
		case string:
			return he.Code, m
		case error:
			return he.Code, m.Error()
		default:
			return he.Code, fmt.Sprint(m)
		}
	}
	return http.StatusInternalServerError, InternalMessage
}
