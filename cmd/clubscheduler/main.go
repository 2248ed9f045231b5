package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/club-scheduler/internal/application"
	"github.com/example/club-scheduler/internal/config"
	httptransport "github.com/example/club-scheduler/internal/http"
	"github.com/example/club-scheduler/internal/notify"
	"github.com/example/club-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	ruleRepo := sqlite.NewRuleRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	cancellationRepo := sqlite.NewCancellationRepository(pool)
	attendanceRepo := sqlite.NewAttendanceRepository(pool)
	alertRepo := sqlite.NewAlertRepository(pool)
	memberRepo := sqlite.NewMemberRepository(pool)

	notifier := notify.NewLogNotifier(logger, cfg.AlertRecipients)

	sessionService := application.NewSessionService(ruleRepo, sessionRepo, logger, idGenerator, now)
	attendanceService := application.NewAttendanceService(sessionRepo, attendanceRepo, alertRepo, memberRepo, notifier, cfg.Policies.Absence, logger, idGenerator, now)
	cancellationService := application.NewCancellationService(sessionService, sessionRepo, cancellationRepo, attendanceService, cfg.Policies, logger, idGenerator, now)
	memberService := application.NewMemberService(memberRepo, logger, idGenerator, now)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:      httptransport.NewSessionHandler(sessionService, attendanceService, cancellationService, logger),
		Cancellations: httptransport.NewCancellationHandler(cancellationService, logger),
		Alerts:        httptransport.NewAlertHandler(attendanceService, logger),
		Members:       httptransport.NewMemberHandler(memberService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("club scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
