package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake_server/config"
	"intake_server/internal/bootstrap"
	"intake_server/internal/memstore"
	"intake_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Load .env file if exists (for local development)
	envErr := godotenv.Load()

	mode := flag.String("mode", "api", "Run mode: api, standalone")
	seed := flag.String("seed", "", "YAML seed file for standalone mode")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "intake",
		Pretty:  cfg.IsDevelopment(),
	})
	log := logger.Default()
	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	ctx := context.Background()
	var (
		deps    *bootstrap.Dependencies
		cleanup func()
	)
	switch *mode {
	case "api":
		deps, cleanup, err = bootstrap.NewDependencies(ctx, cfg, log)
	case "standalone":
		store := memstore.New()
		if *seed != "" {
			if err := bootstrap.LoadSeedFile(*seed, store); err != nil {
				log.Fatal("Failed to load seed: %v", err)
			}
		}
		deps, cleanup, err = bootstrap.NewStandaloneDependencies(ctx, cfg, log, store)
	default:
		log.Fatal("Unknown mode: %s", *mode)
	}
	if err != nil {
		log.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	app := bootstrap.NewApp(deps)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("Error shutting down: %v", err)
			return
		}
		log.Info("API server shut down gracefully")
	}()

	addr := ":" + cfg.Port
	log.Info("Starting API server on %s (mode=%s)", addr, *mode)
	if err := app.Listen(addr); err != nil {
		log.Error("Server stopped: %v", err)
	}
}
