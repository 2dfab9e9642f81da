/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles configuration,
  dependency injection, catalog seeding, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Seed the standard deduction catalog and chart of accounts
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence over environment variables:
    -port / PORT          HTTP server port (default: 8080)
    -db   / DATABASE_PATH SQLite database path (default: payroll.db)
                          Use ":memory:" for in-memory database
    -seed / SEED_CATALOG  Seed the standard catalog on startup (default: true)
    -scheduler / RUN_SCHEDULER
                          Auto-generate draft runs for completed pay
                          periods (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run with in-memory database, no seed
  ./server -db=":memory:" -seed=false

SEE ALSO:
  - api/server.go: Router configuration
  - factory/catalog.go: Standard catalog preset
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	// .env is optional; real env vars win over file values
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "payroll.db"), "SQLite database path")
	seed := flag.Bool("seed", envBool("SEED_CATALOG", true), "seed the standard catalog on startup")
	schedule := flag.Bool("scheduler", envBool("RUN_SCHEDULER", true), "auto-generate draft runs for completed pay periods")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed deduction catalog and chart of accounts (idempotent upserts)
	if *seed {
		f := factory.NewCatalogFactory()
		catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())
		if err != nil {
			log.Fatalf("Failed to parse standard catalog: %v", err)
		}
		if err := f.Seed(context.Background(), store, store, catalog); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Printf("Seeded %d deductions and %d accounts", len(catalog.Deductions), len(catalog.Accounts))
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	// Background scheduler stages drafts for completed pay periods
	scheduler := api.NewRunScheduler(store, handler)
	scheduler.Enabled = *schedule
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
