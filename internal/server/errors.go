package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/erebus-labs/erebus-gateway/internal/quote"
	"github.com/erebus-labs/erebus-gateway/internal/rpc"
	"github.com/erebus-labs/erebus-gateway/internal/tokens"
	"github.com/erebus-labs/erebus-gateway/internal/transfer"
)

// NotFoundJSON returns a custom HTTP error handler so that every error,
// including 404s for unknown routes, has the same JSON shape.
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "internal server error",
			Code:      http.StatusInternalServerError,
			ErrorCode: CodeInternal,
		})
	}
}

// classify maps a typed domain error to its stable HTTP status and machine
// code. Unknown errors are internal.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, quote.ErrInvalidInput), errors.Is(err, transfer.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, tokens.ErrUnknownToken),
		errors.Is(err, transfer.ErrNotFound),
		errors.Is(err, rpc.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, transfer.ErrPaymentNotVerified):
		return http.StatusPaymentRequired, CodePaymentNotVerified
	case errors.Is(err, transfer.ErrForwardingFailed):
		return http.StatusServiceUnavailable, CodeForwardingFailed
	case errors.Is(err, transfer.ErrUpstreamUnavailable), errors.Is(err, rpc.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUpstreamUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
