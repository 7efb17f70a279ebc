package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// EchoErrorHandler maps errors to the {success:false, message} envelope.
// Typed *Error values use their kind's status; echo.HTTPError passes through;
// anything else is logged and hidden behind a generic 500.
func EchoErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal server error"

		if e := As(err); e != nil {
			status = e.Kind.Status()
			msg = e.Message
			if e.Kind == KindInternal {
				msg = "internal server error"
			}
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(he.Code)
			}
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		_ = c.JSON(status, map[string]interface{}{
			"success": false,
			"message": msg,
		})
	}
}
