package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/surveypesa/backend/internal/config"
	"github.com/surveypesa/backend/internal/handler"
	appMiddleware "github.com/surveypesa/backend/internal/middleware"
	"github.com/surveypesa/backend/internal/notify"
	"github.com/surveypesa/backend/internal/repository"
	"github.com/surveypesa/backend/internal/service"
)

func main() {
	// Load .env file if present (for local development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	var store repository.Store
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryStore()
		log.Println("using in-memory store (data is not persisted)")
	default:
		db, err := repository.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database error: %v", err)
		}
		if err := repository.RunMigrations(ctx, db); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		log.Println("database connected & migrated")
		store = repository.NewPostgresStore(db)
	}
	defer store.Close()

	// Event fan-out: structured log line plus the admin ops WebSocket feed.
	hub := notify.NewHub()
	notifier := notify.Multi{notify.NewLogNotifier(), hub}

	referralSvc := service.NewReferralService(store, notifier)
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, store, referralSvc)
	hub.SetVerifier(authSvc)

	progressSvc := service.NewProgressService(store, notifier)
	activationSvc := service.NewActivationService(store, referralSvc, notifier)
	withdrawalSvc := service.NewWithdrawalService(store, notifier)

	// Seed admin user on first startup
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	healthHandler := handler.NewHealthHandler(store)
	progressHandler := handler.NewProgressHandler(progressSvc)
	activationHandler := handler.NewActivationHandler(activationSvc)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc)
	referralHandler := handler.NewReferralHandler(referralSvc)
	adminHandler := handler.NewAdminHandler(authSvc)

	r := chi.NewRouter()

	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/referral-codes/{code}", referralHandler.Verify)

	// Auth routes (stricter limit against credential stuffing)
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		// Plan progress
		r.Post("/api/plans/select", progressHandler.SelectPlan)
		r.Post("/api/surveys/complete", progressHandler.CompleteSurvey)
		r.Get("/api/progress", progressHandler.GetProgress)

		// Activation
		r.Post("/api/activations", activationHandler.Submit)
		r.Get("/api/activations", activationHandler.History)

		// Withdrawals
		r.Post("/api/withdrawals", withdrawalHandler.Request)
		r.Get("/api/withdrawals", withdrawalHandler.History)

		// Affiliate
		r.Get("/api/affiliate", referralHandler.Stats)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/admin/users", adminHandler.ListUsers)
			r.Get("/api/admin/activations/pending", activationHandler.ListPending)
			r.Get("/api/admin/activations", activationHandler.ListAll)
			r.Post("/api/admin/activations/{userID}/{requestID}/approve", activationHandler.Approve)
			r.Post("/api/admin/activations/{userID}/{requestID}/reject", activationHandler.Reject)
			r.Get("/api/admin/withdrawals/pending", withdrawalHandler.ListPending)
			r.Get("/api/admin/withdrawals", withdrawalHandler.ListAll)
			r.Post("/api/admin/withdrawals/{requestID}/approve", withdrawalHandler.Approve)
			r.Post("/api/admin/withdrawals/{requestID}/reject", withdrawalHandler.Reject)
		})
	})

	// Admin ops event feed (auth via query param)
	r.HandleFunc("/ws/ops", hub.Handle)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("SurveyPesa rewards ledger listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
