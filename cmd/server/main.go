package main

import (
	"fmt"
	"net/http"
	"os"

	"tradeflow/internal/auth"
	"tradeflow/internal/config"
	"tradeflow/internal/database"
	"tradeflow/internal/ledger"
	"tradeflow/internal/logger"
	"tradeflow/internal/session"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Open the database and run pending migrations
	db, err := database.New(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	log.Info("Database ready", zap.String("dsn", cfg.Database.DSN))

	api := NewAPIHandler(
		log,
		auth.NewRegistry(db, cfg.Auth.BcryptCost),
		ledger.NewStore(db),
		session.NewManager(),
		rate.NewLimiter(rate.Limit(cfg.Auth.LoginRateLimit), cfg.Auth.LoginRateBurst),
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, api.Routes()); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
