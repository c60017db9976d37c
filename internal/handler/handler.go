// Package handler содержит HTTP-обработчики API маркетплейса виртов.
package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/virtmarket/internal/middleware"
	"github.com/mmeshcher/virtmarket/internal/model"
	"github.com/mmeshcher/virtmarket/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) (*model.Order, error)
	Approve(ctx context.Context, id string) (*model.Order, error)
	Reject(ctx context.Context, id string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id string) (*model.Order, error)
	ServerStats(ctx context.Context, project string, role model.StatsRole) ([]model.ServerStats, error)

	BanUser(ctx context.Context, req service.BanRequest) (*model.BannedUser, error)
	UnbanUser(ctx context.Context, userID int64) error
	ListBans(ctx context.Context) ([]model.BannedUser, error)
	CheckBan(ctx context.Context, userID int64) (*model.BannedUser, bool)
	IsAdmin(username string) bool
}

// HealthChecker проверяет доступность хранилища.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options параметры HTTP-слоя.
// Без Health эндпоинт /api/health сообщает только о том, что процесс жив.
type Options struct {
	CORSOrigins  []string
	EnforceAdmin bool
	Health       HealthChecker
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service    Service
	logger     *zap.Logger
	adminGuard *middleware.AdminGuard
	opts       Options
	now        func() time.Time
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, opts Options) *Handler {
	h := &Handler{
		service: s,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
	h.adminGuard = middleware.NewAdminGuard(s.IsAdmin, opts.EnforceAdmin, h.forbidden)

	return h
}

type healthResponse struct {
	Success   bool      `json:"success"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health сообщает, что процесс жив и хранилище отвечает.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.opts.Health.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Success:   false,
				Status:    "unavailable",
				Timestamp: h.now().UTC(),
			})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Status:    "ok",
		Timestamp: h.now().UTC(),
	})
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusForbidden, CodeForbidden, "admin privileges required", nil)
}
