package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/catalog"
	"github.com/shaiso/Feedactions/internal/dispatch"
	"github.com/shaiso/Feedactions/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeRejected       ErrorCode = "REJECTED"
	ErrCodeUnavailable    ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodeMethodNotAllow ErrorCode = "METHOD_NOT_ALLOWED"
)

// ErrorResponse — ответ с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — успешный ответ.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — ответ со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет 200 с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Accepted отправляет 202: запрос принят, результат будет позже.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleDispatchError переводит ошибку диспетчера в HTTP ответ.
// Отказ пула (429) отличается от ошибок запроса: его можно повторить.
func HandleDispatchError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, dispatch.ErrRejected):
		w.Header().Set("Retry-After", "1")
		Error(w, http.StatusTooManyRequests, ErrCodeRejected, err.Error())
	case errors.Is(err, dispatch.ErrBadSignature):
		Error(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, catalog.ErrUnknownAction):
		NotFound(w, err.Error())
	case errors.Is(err, catalog.ErrNotAllowed):
		Error(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, dispatch.ErrMissingField),
		errors.Is(err, catalog.ErrEmptyURL),
		errors.Is(err, catalog.ErrBadURL),
		errors.Is(err, action.ErrValidation):
		BadRequest(w, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}

// HandleRepoError переводит ошибку журнала в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repo.ErrInvalidFilter) {
		BadRequest(w, err.Error())
		return true
	}
	InternalError(w, logger, err)
	return true
}
