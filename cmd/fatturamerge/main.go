package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"fatturamerge/internal/api"
	"fatturamerge/internal/config"
	"fatturamerge/internal/pdfkit"
	"fatturamerge/internal/services"
)

func main() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("FATTURAMERGE_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration.", "error", err)
		os.Exit(1)
	}

	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	merger := services.NewMerger(pdfkit.New(), services.MergerConfig{
		Workers:           cfg.Merge.Workers,
		GroupingMode:      cfg.Merge.GroupingMode,
		NamingMode:        cfg.Merge.NamingMode,
		ReferenceFallback: cfg.Merge.ReferenceFallback,
	})

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20
	api.NewHandler(merger, cfg.Server.MaxUploadBytes).Register(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("fatturamerge listening.", "addr", addr, "groupingMode", string(cfg.Merge.GroupingMode))
	if err := router.Run(addr); err != nil {
		slog.Error("Server exited with error.", "error", err)
		os.Exit(1)
	}
}
