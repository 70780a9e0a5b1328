package main

import (
	"errors"
	"flag"
	"fmt"
	"health-export-pipeline/internal/api"
	"health-export-pipeline/internal/api/handler"
	"health-export-pipeline/internal/config"
	"health-export-pipeline/internal/logger"
	"health-export-pipeline/internal/store"
	"health-export-pipeline/pkg/router"
	"health-export-pipeline/pkg/utils"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "optional config file")
	flag.Parse()

	cfg, err := config.Load(config.New(), *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Init DB
	if err := store.InitDB(cfg.Server.StorePath); err != nil {
		log.Fatal("❌ Failed to open run history", zap.String("path", cfg.Server.StorePath), zap.Error(err))
	}
	defer store.Close()

	h := handler.NewPayloadHandler(cfg.Output.Dir, cfg.Output.CRLF, log)
	if err := h.Outputs.EnsureOutputDirExists(); err != nil {
		log.Fatal("❌ Failed to create output directory", zap.String("dir", cfg.Output.Dir), zap.Error(err))
	}

	// Create router
	r := router.New(log)

	// Register API routes
	api.RegisterRoutes(r, h)

	// Start server
	err = r.Start(cfg.Server.Addr,
		utils.ParseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		utils.ParseDuration(cfg.Server.WriteTimeout, time.Minute))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("❌ Server stopped", zap.Error(err))
	}
}
