package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
	"go.opentelemetry.io/otel/trace"
)

const apiVersion = "1.0"

type successEnvelope struct {
	APIVersion string `json:"apiVersion"`
	Success    bool   `json:"success"`
	Data       any    `json:"data"`
}

type errorEnvelope struct {
	APIVersion string       `json:"apiVersion"`
	Success    bool         `json:"success"`
	Error      string       `json:"error"`
	Details    errorDetails `json:"details"`
}

type errorDetails struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(payload); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, successEnvelope{
		APIVersion: apiVersion,
		Success:    true,
		Data:       data,
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(err)
	message := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSON(ctx, w, mapped.HTTPStatus, errorEnvelope{
		APIVersion: apiVersion,
		Error:      message,
		Details: errorDetails{
			Code:   mapped.HTTPStatus,
			Status: mapped.Status,
			Reason: mapped.Reason,
		},
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	writeJSON(ctx, w, http.StatusInternalServerError, errorEnvelope{
		APIVersion: apiVersion,
		Error:      "internal server error",
		Details: errorDetails{
			Code:   http.StatusInternalServerError,
			Status: "INTERNAL",
			Reason: "internalError",
		},
	})
}

func mapError(err error) mappedError {
	switch {
	case errors.Is(err, fantasy.ErrRoundNotOpen),
		errors.Is(err, fantasy.ErrRoundLocked),
		errors.Is(err, fantasy.ErrNoPicks),
		errors.Is(err, fantasy.ErrTooManyPicks),
		errors.Is(err, fantasy.ErrDuplicateTeamPick),
		errors.Is(err, fantasy.ErrUnknownTeamType),
		errors.Is(err, fantasy.ErrStarNotPicked):
		return mappedError{
			HTTPStatus: http.StatusBadRequest,
			Reason:     "invalidLineup",
			Status:     "INVALID_ARGUMENT",
		}
	case errors.Is(err, fantasy.ErrAlreadyEntered),
		errors.Is(err, fantasy.ErrInsufficientPromo),
		errors.Is(err, fantasy.ErrUnsupportedPayment):
		return mappedError{
			HTTPStatus: http.StatusBadRequest,
			Reason:     "invalidCheckout",
			Status:     "INVALID_ARGUMENT",
		}
	case errors.Is(err, usecase.ErrInvalidInput):
		return mappedError{
			HTTPStatus: http.StatusBadRequest,
			Reason:     "invalidInput",
			Status:     "INVALID_ARGUMENT",
		}
	case errors.Is(err, usecase.ErrNotFound):
		return mappedError{
			HTTPStatus: http.StatusNotFound,
			Reason:     "notFound",
			Status:     "NOT_FOUND",
		}
	case errors.Is(err, usecase.ErrUnauthorized):
		return mappedError{
			HTTPStatus: http.StatusUnauthorized,
			Reason:     "unauthorized",
			Status:     "UNAUTHENTICATED",
		}
	case errors.Is(err, usecase.ErrDependencyUnavailable):
		return mappedError{
			HTTPStatus: http.StatusServiceUnavailable,
			Reason:     "dependencyUnavailable",
			Status:     "UNAVAILABLE",
		}
	default:
		return mappedError{
			HTTPStatus: http.StatusInternalServerError,
			Reason:     "internalError",
			Status:     "INTERNAL",
		}
	}
}
