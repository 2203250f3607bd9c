package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cajacoop/admin-api/internal/config"
	"github.com/cajacoop/admin-api/internal/handler"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/middleware"
	"github.com/cajacoop/admin-api/internal/repository"
	"github.com/cajacoop/admin-api/internal/service"
	"github.com/cajacoop/admin-api/internal/service/approval"
)

//go:embed openapi.yaml
var openapiSpec []byte

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("caja-admin-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	memberRepo := repository.NewMemberRepository(db)
	depositRepo := repository.NewDepositRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	cashRepo := repository.NewCashLedgerRepository(db)
	configRepo := repository.NewAppConfigRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	approvals := approval.NewService(
		memberRepo, depositRepo, loanRepo, movementRepo,
		cashRepo, configRepo, penaltyRepo, notificationRepo,
		db, cfg,
	)
	members := service.NewMemberService(memberRepo, configRepo)
	carryover := service.NewCarryoverService(memberRepo, movementRepo, configRepo, db)
	reports := service.NewReportService(memberRepo)

	notifier := service.NewNotifier(notificationRepo, &service.LogSender{}, slog.Default(), 15*time.Second)
	go notifier.Start(ctx)

	// Expired idempotency entries just take up space; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := idempotencyRepo.CleanExpired(ctx); err != nil {
					slog.Warn("idempotency sweep failed", "error", err)
				} else if n > 0 {
					slog.Info("idempotency sweep", "removed", n)
				}
			}
		}
	}()

	tokenExpiry := time.Duration(cfg.TokenExpiryHours) * time.Hour
	authHandler := handler.NewAuthHandler(adminRepo, cfg.JWTSecret, tokenExpiry)
	depositHandler := handler.NewDepositHandler(depositRepo, approvals)
	loanHandler := handler.NewLoanHandler(loanRepo, approvals)
	memberHandler := handler.NewMemberHandler(members, movementRepo)
	cashHandler := handler.NewCashHandler(approvals)
	configHandler := handler.NewConfigHandler(configRepo)
	cutoverHandler := handler.NewCutoverHandler(carryover)
	reportHandler := handler.NewReportHandler(reports)
	healthHandler := handler.NewHealthHandler(db)

	authMW := middleware.Auth(cfg.JWTSecret, cfg.IsAdminEmail)
	idemMW := middleware.Idempotency(idempotencyRepo)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMW(middleware.RequireAdmin(idemMW(h)))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.Handle("GET /docs", handler.ServeDocs())
	mux.Handle("GET /docs/openapi.yaml", handler.ServeSpec(openapiSpec))

	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("POST /api/v1/members", admin(memberHandler.Create))
	mux.Handle("GET /api/v1/members", admin(memberHandler.List))
	mux.Handle("GET /api/v1/members/{id}/movements", admin(memberHandler.Movements))
	mux.Handle("POST /api/v1/members/categorize", admin(memberHandler.Categorize))

	mux.Handle("POST /api/v1/deposits", admin(depositHandler.Create))
	mux.Handle("GET /api/v1/deposits", admin(depositHandler.List))
	mux.Handle("GET /api/v1/deposits/{id}", admin(depositHandler.Get))
	mux.Handle("POST /api/v1/deposits/{id}/review", admin(depositHandler.Review))
	mux.Handle("DELETE /api/v1/deposits/{id}", admin(depositHandler.Delete))
	mux.Handle("POST /api/v1/contributions", admin(depositHandler.Contribute))

	mux.Handle("POST /api/v1/loans", admin(loanHandler.Create))
	mux.Handle("GET /api/v1/loans", admin(loanHandler.List))
	mux.Handle("GET /api/v1/loans/{id}", admin(loanHandler.Get))
	mux.Handle("POST /api/v1/loans/{id}/review", admin(loanHandler.Review))
	mux.Handle("POST /api/v1/loans/{id}/payments", admin(loanHandler.RecordPayment))
	mux.Handle("POST /api/v1/loans/{id}/precancel", admin(loanHandler.Precancel))

	mux.Handle("GET /api/v1/movements", admin(memberHandler.RecentMovements))

	mux.Handle("GET /api/v1/cash", admin(cashHandler.Balance))
	mux.Handle("GET /api/v1/config", admin(configHandler.Get))
	mux.Handle("PUT /api/v1/config/{name}", admin(configHandler.Update))
	mux.Handle("POST /api/v1/year-cutover", admin(cutoverHandler.Run))
	mux.Handle("GET /api/v1/reports/members.csv", admin(reportHandler.MembersCSV))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
