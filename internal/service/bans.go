package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/virtmarket/internal/model"
	"github.com/mmeshcher/virtmarket/internal/repository"
	"github.com/mmeshcher/virtmarket/internal/validation"
)

// DefaultBannedBy проставляется, если модератор не указан.
const DefaultBannedBy = "admin"

// BanRequest запрос на блокировку пользователя.
// Days равный nil или нулю означает бессрочную блокировку.
type BanRequest struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
	Days     *int   `json:"days"`
	BannedBy string `json:"banned_by"`
}

// BanUser блокирует пользователя. Повторная блокировка перезаписывает прежнюю запись.
func (s *Service) BanUser(ctx context.Context, req BanRequest) (*model.BannedUser, error) {
	if req.UserID == 0 {
		return nil, ErrNoUser
	}
	if req.Days != nil && *req.Days < 0 {
		return nil, ErrInvalidBanDuration
	}

	now := s.now()
	ban := model.BannedUser{
		UserID:   req.UserID,
		Username: validation.SanitizeText(req.Username),
		Reason:   validation.SanitizeText(req.Reason),
		BannedBy: defaultString(validation.SanitizeText(req.BannedBy), DefaultBannedBy),
		BannedAt: now,
	}
	if req.Days != nil && *req.Days > 0 {
		until := now.AddDate(0, 0, *req.Days)
		ban.BannedUntil = &until
	}

	if err := s.repo.UpsertBan(ctx, ban); err != nil {
		return nil, err
	}

	s.logger.Info("user banned", zap.Int64("user_id", ban.UserID), zap.String("banned_by", ban.BannedBy))
	return &ban, nil
}

// UnbanUser снимает блокировку.
func (s *Service) UnbanUser(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteBan(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user unbanned", zap.Int64("user_id", userID))
	return nil
}

// ListBans возвращает действующие блокировки.
func (s *Service) ListBans(ctx context.Context) ([]model.BannedUser, error) {
	bans, err := s.repo.ListBans(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if bans == nil {
		bans = []model.BannedUser{}
	}
	return bans, nil
}

// CheckBan сообщает, заблокирован ли пользователь.
// Ошибка хранилища не пробрасывается: пользователь считается незаблокированным.
func (s *Service) CheckBan(ctx context.Context, userID int64) (*model.BannedUser, bool) {
	ban, err := s.repo.GetBan(ctx, userID, s.now())
	if err != nil {
		if !errors.Is(err, repository.ErrBanNotFound) {
			s.logger.Error("failed to check ban", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	return ban, true
}

// PurgeExpiredBans удаляет истёкшие блокировки.
func (s *Service) PurgeExpiredBans(ctx context.Context) (int64, error) {
	removed, err := s.repo.PurgeExpiredBans(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired bans purged", zap.Int64("count", removed))
	}
	return removed, nil
}

// StartBanPurge запускает периодическую очистку истёкших блокировок по расписанию cron.
// Блокирует до отмены контекста.
func (s *Service) StartBanPurge(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if _, err := s.PurgeExpiredBans(runCtx); err != nil {
			s.logger.Error("failed to purge expired bans", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule ban purge %q: %w", schedule, err)
	}

	s.logger.Info("ban purge scheduled", zap.String("schedule", schedule))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
