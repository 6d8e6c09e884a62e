package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"course-rag/internal/models"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// newHTTPErrorHandler maps the core's error taxonomy onto HTTP statuses.
// Input errors become 400s, exhausted upstream retries 502, timeouts 504;
// anything else is logged and surfaced as an opaque 500.
func newHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		detail := http.StatusText(http.StatusInternalServerError)

		var (
			httpErr *echo.HTTPError
			valErrs validator.ValidationErrors
		)
		switch {
		case errors.As(err, &httpErr):
			code = httpErr.Code
			detail = fmt.Sprintf("%v", httpErr.Message)
		case errors.As(err, &valErrs):
			fields := make([]string, 0, len(valErrs))
			for _, vErr := range valErrs {
				fields = append(fields, strings.ToLower(vErr.Field()))
			}
			code = http.StatusBadRequest
			detail = fmt.Sprintf("missing or invalid fields: %s", strings.Join(fields, ", "))
		case errors.Is(err, models.ErrUnsupportedFormat),
			errors.Is(err, models.ErrCorruptDocument),
			errors.Is(err, models.ErrInvalidInput):
			code = http.StatusBadRequest
			detail = err.Error()
		case errors.Is(err, models.ErrEmbeddingUnavailable),
			errors.Is(err, models.ErrSynthesisUnavailable):
			code = http.StatusBadGateway
			detail = "service temporarily unavailable, please try again later"
		case errors.Is(err, context.DeadlineExceeded):
			code = http.StatusGatewayTimeout
			detail = "upstream request timed out"
		default:
			log.Error().Err(err).
				Str("uri", c.Request().RequestURI).
				Msg("Unhandled error")
		}

		var wErr error
		if c.Request().Method == http.MethodHead {
			wErr = c.NoContent(code)
		} else {
			wErr = c.JSON(code, errorResponse{Detail: detail})
		}
		if wErr != nil {
			log.Error().Err(wErr).Msg("Failed to write error response")
		}
	}
}
