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

	"github.com/unitrade/unitrade-api/internal/config"
	"github.com/unitrade/unitrade-api/internal/domain/item"
	"github.com/unitrade/unitrade-api/internal/domain/ledger"
	"github.com/unitrade/unitrade-api/internal/domain/notification"
	"github.com/unitrade/unitrade-api/internal/domain/purchase"
	"github.com/unitrade/unitrade-api/internal/domain/reward"
	"github.com/unitrade/unitrade-api/internal/middleware"
	"github.com/unitrade/unitrade-api/internal/pkg/database"
	"github.com/unitrade/unitrade-api/internal/pkg/jwt"
	"github.com/unitrade/unitrade-api/internal/pkg/logger"
	pkgresponse "github.com/unitrade/unitrade-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting UniTrade API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- WebSocket hub ----------
	hub := notification.NewHub(redis)
	go hub.Run()
	defer hub.Shutdown()

	events := notification.NewPublisher(hub)

	// ---------- Repositories ----------
	ledgerRepo := ledger.NewRepository(db)
	itemRepo := item.NewRepository(db)
	rewardRepo := reward.NewRepository(db)

	// The platform clearing account must exist before the first settlement.
	if err := ledgerRepo.EnsureAccount(context.Background(), ledger.SystemAccountID); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure system account")
	}

	// ---------- Services ----------
	ledgerService := ledger.NewService(ledgerRepo)
	rewardService := reward.NewService(db, rewardRepo, ledgerRepo, reward.Config{
		SignupBonus:         cfg.SignupBonus,
		FirstPostBonus:      cfg.FirstPostBonus,
		FirstSaleBonus:      cfg.FirstSaleBonus,
		ReferralBonus:       cfg.ReferralBonus,
		AllowedEmailDomains: cfg.AllowedEmailDomains,
	})
	itemService := item.NewService(db, itemRepo, ledgerRepo, rewardService, events, item.Config{
		ListingFee:      cfg.ListingFee,
		MinListingPrice: cfg.MinListingPrice,
		MaxListingPrice: cfg.MaxListingPrice,
		ReservationTTL:  cfg.ReservationTTL,
	})
	purchaseService := purchase.NewService(db, itemRepo, ledgerRepo, rewardService, events, cfg.PlatformFeeRate)

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerService)
	itemHandler := item.NewHandler(itemService)
	purchaseHandler := purchase.NewHandler(purchaseService)
	rewardHandler := reward.NewHandler(rewardService)
	wsHandler := notification.NewHandler(hub, jwtService)

	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", wsHandler.WebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/wallet", ledgerHandler.Routes(authMiddleware))
		r.Mount("/items", itemHandler.Routes(authMiddleware))
		r.Mount("/purchase", purchaseHandler.Routes(authMiddleware))
		r.Mount("/rewards", rewardHandler.Routes(authMiddleware))
		r.Post("/signup-bonus", rewardHandler.SignupBonus)

		r.Mount("/admin/wallet", ledgerHandler.AdminRoutes(authMiddleware, adminMiddleware))
	})

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
