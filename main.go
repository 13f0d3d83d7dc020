package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodshare/food-recognition-service/classification"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logCPUFeatures(logger)

	destroyEnv, err := initOnnxRuntime(cfg.OnnxLibPath, logger)
	if err != nil {
		logger.Fatal("Failed to initialize ONNX environment", zap.Error(err))
	}
	defer destroyEnv()

	labels := classification.FoodClasses
	sessionOpts := classification.SessionOptions{
		IntraOpThreads: cfg.IntraOpThreads,
		InterOpThreads: cfg.InterOpThreads,
	}
	factory := func() (classification.Session, error) {
		modelPath := cfg.ModelPath()
		session, err := classification.NewModelSession(modelPath, labels.Len(), sessionOpts)
		if err != nil {
			return nil, err
		}
		logger.Debug("model session created",
			zap.String("model", modelPath),
			zap.String("input", session.InputName),
			zap.String("output", session.OutputName),
		)
		return session, nil
	}

	pool := NewModelSessionPool(factory, cfg.PoolSize, cfg.AcquireTimeout)
	defer pool.Destroy()

	if cfg.WarmPool {
		if err := pool.Warm(); err != nil {
			logger.Warn("Failed to warm model session pool", zap.Error(err))
		}
	}

	metrics := NewMetrics()
	metrics.RegisterPool(pool)

	state := &AppState{
		Pipeline:     classification.NewPipeline(pool, labels, cfg.ChannelOrder),
		Pool:         pool,
		Metrics:      metrics,
		Logger:       logger,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	srv := &http.Server{
		Handler:      state.Router(),
		Addr:         cfg.Addr(),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	}

	logger.Info("Starting server",
		zap.String("addr", srv.Addr),
		zap.String("model", cfg.ModelPath()),
		zap.Int("pool_size", cfg.PoolSize),
		zap.Strings("classes", labels.Names()),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	if err := serve(srv, stop, logger); err != nil {
		// Fatal skips deferred calls.
		pool.Destroy()
		destroyEnv()
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// serve runs srv until it fails or a signal arrives on stop. A listen
// failure is returned; a signal triggers a graceful shutdown.
func serve(srv *http.Server, stop <-chan os.Signal, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("Shutting down", zap.Stringer("signal", sig))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
		return nil
	}
}
