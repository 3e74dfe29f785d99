// Command server runs the quiz platform API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/api"
	"github.com/tester-platform/tester/pkg/auth"
	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/config"
	"github.com/tester-platform/tester/pkg/mail"
	"github.com/tester-platform/tester/pkg/metrics"
	"github.com/tester-platform/tester/pkg/pipeline"
	"github.com/tester-platform/tester/pkg/quiz"
	"github.com/tester-platform/tester/pkg/ratelimit"
	"github.com/tester-platform/tester/pkg/server"
	"github.com/tester-platform/tester/pkg/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	tokens, err := authtoken.NewCodec(cfg.PayloadSecret)
	if err != nil {
		logger.Fatal("failed to create token codec", zap.Error(err))
	}

	var mailer mail.Sender = mail.Discard{}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSender(mail.Config{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			User:          cfg.SMTP.User,
			Password:      cfg.SMTP.Password,
			SenderAddress: cfg.SMTP.SenderAddress,
			SenderName:    cfg.SMTP.SenderName,
		}, logger)
	} else {
		logger.Warn("SMTP host not configured, outgoing mail is disabled")
	}

	users := store.NewMemory[auth.User]()
	tests := store.NewMemory[quiz.Test]()

	authService := auth.NewService(users, tokens, mailer, logger)
	quizService := quiz.NewService(tests, authService, logger)

	limiter := ratelimit.NewLimiter(ratelimit.NewStore())
	m := metrics.New("tester")

	p := pipeline.New(pipeline.Config{
		Limiter:   limiter,
		Tokens:    tokens,
		Logger:    logger,
		APIPrefix: cfg.APIPrefix,
		Metrics:   m,
	})

	srv := server.New(server.Config{
		ListenAddr: cfg.ListenAddr,
		APIPrefix:  cfg.APIPrefix,
		FloodRPS:   cfg.FloodRPS,
		Routes:     api.New(authService, quizService, tokens, logger).Routes(),
		Pipeline:   p,
		Limiter:    limiter,
		Metrics:    m,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}
