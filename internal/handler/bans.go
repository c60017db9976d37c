package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/virtmarket/internal/catalog"
	"github.com/mmeshcher/virtmarket/internal/middleware"
	"github.com/mmeshcher/virtmarket/internal/model"
	"github.com/mmeshcher/virtmarket/internal/repository"
	"github.com/mmeshcher/virtmarket/internal/service"
)

type banStatusResponse struct {
	Success     bool       `json:"success"`
	Banned      bool       `json:"banned"`
	Username    string     `json:"username,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	BannedAt    *time.Time `json:"banned_at,omitempty"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
}

type banResponse struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	BannedUntil *time.Time `json:"banned_until"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type adminCheckResponse struct {
	Success bool `json:"success"`
	IsAdmin bool `json:"is_admin"`
}

func parseUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// CheckBan сообщает, заблокирован ли пользователь. Никогда не отвечает ошибкой.
func (h *Handler) CheckBan(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		h.writeJSON(w, http.StatusOK, banStatusResponse{Success: true})
		return
	}

	ban, banned := h.service.CheckBan(r.Context(), userID)
	if !banned {
		h.writeJSON(w, http.StatusOK, banStatusResponse{Success: true})
		return
	}

	h.writeJSON(w, http.StatusOK, banStatusResponse{
		Success:     true,
		Banned:      true,
		Username:    ban.Username,
		Reason:      ban.Reason,
		BannedAt:    &ban.BannedAt,
		BannedUntil: ban.BannedUntil,
	})
}

// ListBans возвращает действующие блокировки.
func (h *Handler) ListBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.service.ListBans(r.Context())
	if err != nil {
		h.handleError(w, err, CodeInternal)
		return
	}
	if bans == nil {
		bans = []model.BannedUser{}
	}

	h.writeJSON(w, http.StatusOK, bans)
}

// BanUser блокирует пользователя.
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req service.BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, CodeCreateFailed, err)
		return
	}
	if req.BannedBy == "" {
		if username, ok := middleware.GetUsernameFromContext(r.Context()); ok {
			req.BannedBy = username
		}
	}

	ban, err := h.service.BanUser(r.Context(), req)
	if err != nil {
		h.handleError(w, err, CodeCreateFailed)
		return
	}

	message := "User banned permanently"
	if req.Days != nil && *req.Days > 0 {
		message = fmt.Sprintf("User banned for %d days", *req.Days)
	}

	h.writeJSON(w, http.StatusOK, banResponse{
		Success:     true,
		Message:     message,
		BannedUntil: ban.BannedUntil,
	})
}

// UnbanUser снимает блокировку. Отсутствие блокировки не считается ошибкой HTTP.
func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, CodeNoUser, "user id must be a non-zero integer", nil)
		return
	}

	err := h.service.UnbanUser(r.Context(), userID)
	switch {
	case errors.Is(err, repository.ErrBanNotFound):
		h.writeJSON(w, http.StatusOK, messageResponse{Success: false, Message: "User was not banned"})
	case err != nil:
		h.handleError(w, err, CodeDeleteFailed)
	default:
		h.writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "User unbanned successfully"})
	}
}

// Servers возвращает каталог игровых серверов.
func (h *Handler) Servers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, catalog.Servers())
}

// AdminCheck сообщает, является ли пользователь администратором.
func (h *Handler) AdminCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, adminCheckResponse{
		Success: true,
		IsAdmin: h.service.IsAdmin(r.URL.Query().Get("username")),
	})
}
