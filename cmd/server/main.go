package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/marketbay/auction-api/internal/alerts"
	"github.com/marketbay/auction-api/internal/auction"
	"github.com/marketbay/auction-api/internal/auth"
	"github.com/marketbay/auction-api/internal/autobid"
	"github.com/marketbay/auction-api/internal/bidding"
	"github.com/marketbay/auction-api/internal/config"
	"github.com/marketbay/auction-api/internal/database"
	"github.com/marketbay/auction-api/internal/settlement"
	"github.com/marketbay/auction-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the auction API server with graceful shutdown
// support. It sets up all required services, database connections, and
// API routes.
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	middleware.SetJWTSecret(cfg.JWTSecret)
	// Register test credentials
	authService.RegisterUser(auth.TestUserID, auth.TestPassword, "user")
	authService.RegisterUser("admin", "admin-password", "admin")

	auctionService := auction.NewService(db)
	auctionHandlers := auction.NewGinHandlers(auctionService)

	resolver := autobid.NewResolver()

	biddingService := bidding.NewService(db, resolver, cfg.MaxBidRetries)
	biddingHandlers := bidding.NewGinHandlers(biddingService)

	autobidService := autobid.NewService(db, resolver)
	autobidHandlers := autobid.NewGinHandlers(autobidService)

	settlementService := settlement.NewService(db)
	settlementHandlers := settlement.NewGinHandlers(settlementService)

	alertsService := alerts.NewService(db)
	alertsHandlers := alerts.NewGinHandlers(alertsService)

	// Create and start settlement processor
	settlementProcessor := settlement.NewProcessor(settlementService, cfg.SettlementInterval)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go settlementProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, authHandlers, auctionHandlers, biddingHandlers,
		autobidHandlers, settlementHandlers, alertsHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Stop the processor before draining requests
	processorCancel()

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Auction browse routes: Public listing and detail views
// - Bidding and alert routes: Protected by JWT authentication
// - Admin routes: Protected by JWT plus admin authorization
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	auctionHandlers *auction.GinHandlers,
	biddingHandlers *bidding.GinHandlers,
	autobidHandlers *autobid.GinHandlers,
	settlementHandlers *settlement.GinHandlers,
	alertsHandlers *alerts.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public browse routes
		v1.GET("/auctions", auctionHandlers.ListAuctionsHandler())
		v1.GET("/auctions/:auction_id", auctionHandlers.GetAuctionHandler())

		// Authenticated routes
		auctions := v1.Group("/auctions")
		auctions.Use(middleware.JWTAuth())
		{
			auctions.POST("", auctionHandlers.CreateAuctionHandler())
			auctions.POST("/:auction_id/bids", biddingHandlers.PlaceBidHandler())
			auctions.POST("/:auction_id/autobid", autobidHandlers.SetAutoBidHandler())
			auctions.GET("/:auction_id/autobid", autobidHandlers.GetAutoBidHandler())
		}

		userAlerts := v1.Group("/alerts")
		userAlerts.Use(middleware.JWTAuth())
		{
			userAlerts.GET("", alertsHandlers.ListAlertsHandler())
			userAlerts.POST("/:alert_id/read", alertsHandlers.MarkReadHandler())
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(), middleware.AdminAuth())
		{
			admin.POST("/settlement/run", settlementHandlers.RunSettlementHandler())
			admin.DELETE("/auctions/:auction_id", auctionHandlers.RemoveAuctionHandler())
			admin.GET("/reports/sales", auctionHandlers.SalesReportHandler())
		}
	}
}
