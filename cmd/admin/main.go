package main

import (
	"flag"
	"fmt"
	"os"

	"tradeflow/internal/config"
	"tradeflow/internal/database"
	"tradeflow/internal/ledger"
	"tradeflow/internal/logger"

	"go.uber.org/zap"
)

// This binary is the only surface for destructive maintenance. It is never
// routed through the web server, so no user session can reach these
// operations.
func main() {
	wipeAll := flag.Bool("wipe-all", false, "delete every user and every trade")
	deleteUser := flag.String("delete-user", "", "delete this user and all their trades")
	yes := flag.Bool("yes", false, "confirm the destructive action")
	flag.Parse()

	if *wipeAll == (*deleteUser != "") {
		fmt.Fprintln(os.Stderr, "specify exactly one of -wipe-all or -delete-user")
		os.Exit(2)
	}
	if !*yes {
		fmt.Fprintln(os.Stderr, "destructive actions require -yes")
		os.Exit(2)
	}

	// Load application configuration
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

	// Open the database
	db, err := database.New(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	admin := ledger.NewAdmin(db)
	switch {
	case *wipeAll:
		if err := admin.WipeAll(); err != nil {
			log.Fatal("Wipe failed", zap.Error(err))
		}
		log.Info("All users and trades deleted")
	default:
		if err := admin.DeleteUserAndTrades(*deleteUser); err != nil {
			log.Fatal("User delete failed", zap.Error(err))
		}
		log.Info("User and owned trades deleted", zap.String("username", *deleteUser))
	}
}
