package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/pdf-fields/internal/async"
	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
	"github.com/joseph-ayodele/pdf-fields/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer setup.Close()

	// Healthcheck cache on startup
	if setup.DB != nil {
		if err := setup.DB.HealthCheck(ctx, 3*time.Second); err != nil {
			logger.Error("cache health failed", "driver", setup.DB.Driver(), "error", err)
			os.Exit(1)
		}
		logger.Info("cache health OK", "driver", setup.DB.Driver())
	}

	queue := async.NewProcessorQueue(setup.Processor, logger,
		async.WithWorkers(cfg.Pipeline.MaxConcurrentDocs),
		async.WithProcessTimeout(cfg.Extractor.Timeout+cfg.LLM.FieldTimeout*2),
		async.WithJobRetention(cfg.Server.JobRetention, cfg.Server.MaxFinishedJobs),
	)

	// HTTP server
	handler := server.NewHandler(server.HTTPConfig{
		UploadDir:     cfg.Server.UploadDir,
		MaxUploadSize: cfg.Server.MaxUploadBytes,
	}, setup.Processor, queue, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC server
	grpcSrv, hs := server.NewGRPCServer(setup.Processor, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server stopped", "error", err)
	}

	logger.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcSrv.GracefulStop()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
