// Package main запускает HTTP-сервер маркетплейса виртов.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/virtmarket/internal/config"
	"github.com/mmeshcher/virtmarket/internal/handler"
	"github.com/mmeshcher/virtmarket/internal/logger"
	"github.com/mmeshcher/virtmarket/internal/notify"
	"github.com/mmeshcher/virtmarket/internal/repository"
	"github.com/mmeshcher/virtmarket/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zl.Sync()

	sugar := zl.Sugar()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	telegram := notify.NewTelegramSender(notify.TelegramOptions{
		APIURL:          cfg.Notify.APIURL,
		BotToken:        cfg.Notify.BotToken,
		AdminChatID:     cfg.Notify.AdminChatID,
		SupportUsername: cfg.Notify.SupportUsername,
		Timeout:         cfg.Notify.Timeout,
		Retries:         cfg.Notify.Retries,
	}, zl)
	if !cfg.Notify.Enabled() {
		sugar.Warn("BOT_TOKEN is not set, notifications are disabled")
	}

	// При заданном REDIS_ADDR события идут через очередь asynq, иначе доставляются в процессе.
	sender := telegram
	if cfg.RedisAddr != "" && cfg.Notify.Enabled() {
		forwarder := notify.NewAsynqForwarder(cfg.RedisAddr, cfg.Notify.Retries)
		defer forwarder.Close()
		sender = forwarder

		taskServer, mux := notify.NewTaskServer(cfg.RedisAddr, telegram, zl)
		if err := taskServer.Start(mux); err != nil {
			sugar.Fatalw("notification queue error", "error", err.Error())
		}
		g.Go(func() error {
			<-ctx.Done()
			taskServer.Shutdown()
			return nil
		})
	}

	dispatcher := notify.NewDispatcher(sender, cfg.Notify.QueueSize, cfg.Notify.Timeout, zl)

	svc := service.NewService(repo, dispatcher, zl, service.Options{
		AdminUsername: cfg.AdminUsername,
	})
	defer svc.Close()

	h := handler.NewHandler(svc, zl, handler.Options{
		CORSOrigins:  cfg.CORSOrigins,
		EnforceAdmin: cfg.EnforceAdmin,
		Health:       repo,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Доставка уведомлений
	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	// Очистка истёкших блокировок
	g.Go(func() error {
		return svc.StartBanPurge(ctx, cfg.BanPurgeSchedule)
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting virtmarket server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
