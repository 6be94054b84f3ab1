package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"robot-maint/internal/config"
	"robot-maint/internal/logger"
	"robot-maint/internal/observability/metrics"
	"robot-maint/internal/service/consumables"
	"robot-maint/internal/service/costing"
	generate_excel "robot-maint/internal/service/generate-excel"
	"robot-maint/internal/service/offer"
	"robot-maint/internal/service/purchase"
	"robot-maint/internal/service/report"
	"robot-maint/internal/service/template"
	"robot-maint/internal/storage/mysql"
)

func main() {
	cfg := config.MustConfig()

	log := logger.Setup(cfg.Env)

	storage, err := mysql.New(cfg.DB)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(pingCtx); err != nil {
		log.Error("db is not reachable", slog.String("error", err.Error()))
	}
	cancel()

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.Init(reg)
	}

	coster := costing.NewService(storage)
	svc := services{
		templates:   template.NewService(log, storage),
		reports:     report.NewService(log, storage),
		consumables: consumables.NewService(log, storage),
		coster:      coster,
		purchases:   purchase.NewService(log, storage, coster),
		offers:      offer.NewService(log, storage, coster),
		excel:       generate_excel.NewGenerateService(storage),
	}

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(*cfg, log, storage, svc, reg),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + cfg.HTTPServer.RequestTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to stop server", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped")
}
