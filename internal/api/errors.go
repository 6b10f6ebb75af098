package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusFor HTTP статус для вида ошибки бронирования
func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindInvalidInput, service.KindDateOutOfRange:
		return http.StatusBadRequest
	case service.KindNotFound, service.KindSlotNotFound:
		return http.StatusNotFound
	case service.KindSlotFull, service.KindDuplicateBooking, service.KindInvalidTransition:
		return http.StatusConflict
	case service.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	case service.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func invalidInput(message string) error {
	return &service.BookingError{Kind: service.KindInvalidInput, Message: message}
}

// errorHandler единая точка превращения ошибок в ответы
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   errorBody
			he     *echo.HTTPError
		)

		switch {
		case errors.As(err, &he):
			status = he.Code
			body = errorBody{Kind: httpKind(he.Code), Message: http.StatusText(he.Code)}
			if msg, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
				body.Message = msg
			}
		default:
			kind := service.KindOf(err)
			status = statusFor(kind)
			body = errorBody{Kind: string(kind), Message: service.PublicMessage(err)}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("request_id", requestID(c)),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, errorResponse{Error: body})
		}
		if writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
	}
}

func httpKind(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return string(service.KindForbidden)
	case http.StatusNotFound:
		return string(service.KindNotFound)
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadRequest:
		return string(service.KindInvalidInput)
	}
	if code >= http.StatusInternalServerError {
		return string(service.KindStorageFailure)
	}
	return "error"
}
