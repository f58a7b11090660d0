package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/heroncosmo/plano-junto-sub000/internal/config"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/complaint"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/group"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/payment"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/withdrawal"
	"github.com/heroncosmo/plano-junto-sub000/internal/middleware"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/database"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/jwt"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/logger"
	pkgresponse "github.com/heroncosmo/plano-junto-sub000/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Plano Junto API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	ledgerRepo := ledger.NewRepository(db)
	groupRepo := group.NewRepository(db, ledgerRepo)
	withdrawalRepo := withdrawal.NewRepository(db, ledgerRepo)
	complaintRepo := complaint.NewRepository(db, ledgerRepo)

	// ---------- Services ----------
	ledgerService := ledger.NewService(ledgerRepo)
	groupService := group.NewService(groupRepo)
	withdrawalService := withdrawal.NewService(withdrawalRepo)
	complaintService := complaint.NewService(complaintRepo, groupService,
		cfg.AdminResponseDeadline, cfg.InterventionDeadline, log.Logger)
	paymentService := payment.NewService(ledgerService, cfg.GatewayWebhookSecret, log.Logger)

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerService)
	groupHandler := group.NewHandler(groupService)
	withdrawalHandler := withdrawal.NewHandler(withdrawalService)
	complaintHandler := complaint.NewHandler(complaintService)
	paymentHandler := payment.NewHandler(paymentService)

	authMiddleware := middleware.Auth(jwtService)
	operatorMiddleware := middleware.RequireOperator()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", ledgerHandler.Routes(authMiddleware))
		r.Mount("/groups", groupHandler.Routes(authMiddleware, operatorMiddleware))
		r.Mount("/withdrawals", withdrawalHandler.Routes(authMiddleware, operatorMiddleware))
		r.Mount("/complaints", complaintHandler.Routes(authMiddleware, operatorMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
	})

	r.Mount("/webhooks", paymentHandler.WebhookRoutes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
