// Package service реализует бизнес-логику маркетплейса виртов.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/virtmarket/internal/catalog"
	"github.com/mmeshcher/virtmarket/internal/model"
	"github.com/mmeshcher/virtmarket/internal/notify"
	"github.com/mmeshcher/virtmarket/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	InsertOrder(ctx context.Context, o model.Order) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error
	UpdateOrderFields(ctx context.Context, id string, patch model.OrderPatch, at time.Time) error
	DeleteOrder(ctx context.Context, id string) (*model.Order, error)
	AggregateByServer(ctx context.Context, orderType model.OrderType, status model.OrderStatus, project string) ([]model.ServerStats, error)
	IsBanned(ctx context.Context, userID int64, now time.Time) (bool, error)
	GetBan(ctx context.Context, userID int64, now time.Time) (*model.BannedUser, error)
	UpsertBan(ctx context.Context, ban model.BannedUser) error
	DeleteBan(ctx context.Context, userID int64) error
	ListBans(ctx context.Context, now time.Time) ([]model.BannedUser, error)
	PurgeExpiredBans(ctx context.Context, now time.Time) (int64, error)
}

// Publisher принимает события для асинхронной доставки уведомлений.
// Publish не должен блокировать.
type Publisher interface {
	Publish(e notify.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(notify.Event) {}

// Options параметры сервиса, приходящие из конфигурации.
type Options struct {
	AdminUsername string
}

// Service содержит бизнес-логику жизненного цикла заявок.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	opts      Options

	now   func() time.Time
	newID func() string
}

// NewService создаёт новый сервис с указанным репозиторием и получателем событий.
func NewService(repo Repository, publisher Publisher, logger *zap.Logger, opts Options) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
		newID: uuid.NewString,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// IsAdmin сравнивает имя пользователя Telegram с настроенным администратором.
// Имя приходит от клиента и не проверяется криптографически.
func (s *Service) IsAdmin(username string) bool {
	admin := strings.TrimPrefix(s.opts.AdminUsername, "@")
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return admin != "" && strings.EqualFold(admin, username)
}

// CreateOrder проверяет и сохраняет новую заявку.
func (s *Service) CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	if in.UserID == 0 {
		return nil, ErrNoUser
	}

	serverName := validation.SanitizeText(in.ServerName)
	if in.ServerID == 0 && serverName == "" {
		return nil, ErrNoServer
	}

	if in.Amount == nil || !validation.IsValidAmount(*in.Amount, model.MinOrderAmount) {
		return nil, ErrInvalidAmount
	}

	orderType := in.OrderType
	if orderType == "" {
		orderType = model.OrderTypeBuy
	}
	if !orderType.IsValid() {
		return nil, ErrInvalidOrderType
	}

	now := s.now()

	banned, err := s.repo.IsBanned(ctx, in.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("check ban: %w", err)
	}
	if banned {
		return nil, ErrUserBanned
	}

	if serverName == "" {
		if srv, ok := catalog.Lookup(in.ServerID); ok {
			serverName = srv.Name
		}
	}

	username := validation.SanitizeText(in.Username)
	contact := validation.SanitizeText(in.Contact)
	if contact == "" {
		contact = username
	}

	order := model.Order{
		ID:            s.newID(),
		OrderType:     orderType,
		Project:       defaultString(validation.SanitizeText(in.Project), model.DefaultProject),
		ServerName:    serverName,
		ServerID:      in.ServerID,
		UserID:        in.UserID,
		Username:      username,
		Amount:        *in.Amount,
		Price:         in.Price,
		Contact:       contact,
		RefundEnabled: in.RefundEnabled == nil || *in.RefundEnabled,
		Status:        orderType.InitialStatus(),
		Source:        defaultString(validation.SanitizeText(in.Source), model.DefaultSource),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	stored, err := s.repo.InsertOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", stored.ID),
		zap.String("order_type", string(stored.OrderType)),
		zap.Int64("user_id", stored.UserID),
		zap.Int64("amount", stored.Amount),
	)
	s.publisher.Publish(notify.Event{Kind: notify.EventOrderCreated, Order: *stored})

	return stored, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ListOrders возвращает заявки по фильтру, от новых к старым.
func (s *Service) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	orders, err := s.repo.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// UpdateOrder применяет частичное обновление заявки.
// Новое количество виртов не сверяется с минимальным порогом: порог действует только при создании.
func (s *Service) UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) (*model.Order, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	existing, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != existing.Status {
		if err := s.repo.UpdateOrderStatus(ctx, id, *patch.Status, s.now()); err != nil {
			return nil, err
		}
	}

	if patch.HasFields() {
		fields := model.OrderPatch{
			Amount:  &existing.Amount,
			Price:   &existing.Price,
			Contact: &existing.Contact,
		}
		if patch.Amount != nil {
			fields.Amount = patch.Amount
		}
		if patch.Price != nil {
			fields.Price = patch.Price
		}
		if patch.Contact != nil {
			contact := validation.SanitizeText(*patch.Contact)
			fields.Contact = &contact
		}

		if err := s.repo.UpdateOrderFields(ctx, id, fields, s.now()); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order updated", zap.String("order_id", id), zap.String("status", string(updated.Status)))
	return updated, nil
}

// Approve одобряет заявку и уведомляет её автора.
func (s *Service) Approve(ctx context.Context, id string) (*model.Order, error) {
	return s.moderate(ctx, id, model.OrderStatusApproved, notify.EventOrderApproved)
}

// Reject отклоняет заявку и уведомляет её автора.
func (s *Service) Reject(ctx context.Context, id string) (*model.Order, error) {
	return s.moderate(ctx, id, model.OrderStatusRejected, notify.EventOrderRejected)
}

func (s *Service) moderate(ctx context.Context, id string, status model.OrderStatus, kind notify.EventKind) (*model.Order, error) {
	if _, err := s.repo.GetOrder(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, status, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order moderated", zap.String("order_id", id), zap.String("status", string(status)))
	s.publisher.Publish(notify.Event{Kind: kind, Order: *updated})

	return updated, nil
}

// DeleteOrder удаляет заявку и возвращает её последнее состояние.
func (s *Service) DeleteOrder(ctx context.Context, id string) (*model.Order, error) {
	if _, err := s.repo.GetOrder(ctx, id); err != nil {
		return nil, err
	}

	deleted, err := s.repo.DeleteOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order deleted", zap.String("order_id", id))
	return deleted, nil
}

// ServerStats возвращает агрегаты одобренных заявок по серверам для продавцов или покупателей.
func (s *Service) ServerStats(ctx context.Context, project string, role model.StatsRole) ([]model.ServerStats, error) {
	var orderType model.OrderType
	switch role {
	case model.StatsRoleSeller:
		orderType = model.OrderTypeSell
	case model.StatsRoleBuyer:
		orderType = model.OrderTypeBuy
	default:
		return nil, ErrInvalidStatsRole
	}

	stats, err := s.repo.AggregateByServer(ctx, orderType, model.OrderStatusApproved, project)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []model.ServerStats{}
	}
	return stats, nil
}
