package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/virtmarket/internal/repository"
	"github.com/mmeshcher/virtmarket/internal/service"
)

// Стабильные коды ошибок, по которым клиент выбирает локализованный текст.
const (
	CodeNoUser        = "NO_USER"
	CodeNoServer      = "NO_SERVER"
	CodeInvalidAmount = "INVALID_AMOUNT"
	CodeUserBanned    = "USER_BANNED"
	CodeCreateFailed  = "CREATE_FAILED"
	CodeUpdateFailed  = "UPDATE_FAILED"
	CodeDeleteFailed  = "DELETE_FAILED"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
	CodeForbidden     = "FORBIDDEN"

	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// errorMapping сопоставляет ошибку статусу и коду.
// Пустой code означает код операции, в которой возникла ошибка.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{err: service.ErrNoUser, status: http.StatusBadRequest, code: CodeNoUser},
	{err: service.ErrNoServer, status: http.StatusBadRequest, code: CodeNoServer},
	{err: service.ErrInvalidAmount, status: http.StatusBadRequest, code: CodeInvalidAmount},
	{err: service.ErrUserBanned, status: http.StatusBadRequest, code: CodeUserBanned},
	{err: service.ErrInvalidOrderType, status: http.StatusBadRequest},
	{err: service.ErrInvalidStatus, status: http.StatusBadRequest},
	{err: service.ErrInvalidStatsRole, status: http.StatusBadRequest},
	{err: service.ErrInvalidBanDuration, status: http.StatusBadRequest},
	{err: repository.ErrOrderNotFound, status: http.StatusNotFound, code: CodeNotFound},
	{err: repository.ErrBanNotFound, status: http.StatusNotFound, code: CodeNotFound},
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details any) {
	h.writeJSON(w, status, errorResponse{
		Success: false,
		Error:   code,
		Message: message,
		Details: details,
	})
}

// handleError переводит ошибку сервиса в ответ. fallback задаёт код операции.
func (h *Handler) handleError(w http.ResponseWriter, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			code := m.code
			if code == "" {
				code = fallback
			}
			h.writeError(w, m.status, code, m.err.Error(), nil)
			return
		}
	}

	h.logger.Error("request failed", zap.String("code", fallback), zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, fallback, "internal server error", nil)
}

// badRequest отвечает на тело запроса, которое не удалось разобрать.
func (h *Handler) badRequest(w http.ResponseWriter, code string, err error) {
	h.writeError(w, http.StatusBadRequest, code, "malformed request", err.Error())
}
