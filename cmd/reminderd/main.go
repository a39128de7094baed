package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wb-go/wbf/zlog"

	"github.com/pkazakov/reminderd/internal/api/handlers/notification"
	"github.com/pkazakov/reminderd/internal/api/router"
	"github.com/pkazakov/reminderd/internal/api/server"
	"github.com/pkazakov/reminderd/internal/config"
	notifrepo "github.com/pkazakov/reminderd/internal/repository/notification"
	notifsvc "github.com/pkazakov/reminderd/internal/service/notification"
	"github.com/pkazakov/reminderd/internal/worker"
	"github.com/pkazakov/reminderd/pkg/email"
	"github.com/pkazakov/reminderd/pkg/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Str("timezone", cfg.Scheduler.Timezone).Msg("failed to load timezone")
	}

	repo, err := notifrepo.NewRepository(cfg.Storage.Path)
	if err != nil {
		// Corrupt state must stop the process here, not vanish into an
		// empty record set.
		zlog.Logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open notification storage")
	}

	var sender worker.Sender

	switch cfg.Delivery.Channel {
	case "telegram":
		sender = telegram.NewClient(cfg.Telegram.Token, cfg.Scheduler.SendTimeout)
	case "email":
		smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to parse email smtp port")
		}

		sender = email.NewClient(
			cfg.Email.SMTPHost,
			smtpPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
			cfg.Scheduler.SendTimeout,
		)
	default:
		zlog.Logger.Fatal().Str("channel", cfg.Delivery.Channel).Msg("unknown delivery channel")
	}

	service := notifsvc.NewService(repo, loc)

	scheduler := worker.NewScheduler(
		repo,
		sender,
		cfg.Scheduler.Interval,
		cfg.Retry,
		loc,
		prometheus.DefaultRegisterer,
	)
	scheduler.Start()

	notifHandler := notification.NewHandler(service, val)

	r := router.New(notifHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Let an in-flight tick finish so delivery outcomes are recorded.
	scheduler.Stop()
}
