package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"book-predictor/internal/cfg"
	"book-predictor/internal/features"
	"book-predictor/internal/metrics"
	"book-predictor/internal/ml"
	"book-predictor/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	schema, err := loadSchema(c)
	if err != nil {
		log.Fatal().Err(err).Msg("schema load failed")
	}

	model, modelPath, err := ml.LoadModel(c.ModelPaths, ml.ScriptOptions{
		Python:  c.PythonPath,
		Script:  c.ScriptPath,
		Timeout: c.PredictTimeout,
		Metrics: mw,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("model load failed")
	}

	model = ml.NewBreakerModel(model, ml.BreakerOptions{
		Failures: uint32(c.BreakerFailures),
		Cooldown: c.BreakerCooldown,
	})

	svc, err := ml.NewService(schema, model, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("prediction service init failed")
	}

	warmCtx, warmCancel := context.WithTimeout(context.Background(), c.PredictTimeout)
	err = svc.Warmup(warmCtx)
	warmCancel()
	if err != nil {
		log.Fatal().Err(err).Str("model_path", modelPath).Msg("model warmup failed")
	}

	opts := ml.ServerOptions{
		Addr:           c.Addr(),
		CORSOrigins:    c.CORSOrigins,
		RateLimit:      c.RateLimit,
		RequestTimeout: c.PredictTimeout + time.Second,
		Metrics:        mw,
	}
	if c.MetricsEnabled {
		opts.MetricsHandler = promhttp.Handler()
	}
	server := ml.NewModelServer(svc, opts)

	log.Info().
		Str("schema_version", schema.Version()).
		Int("columns", schema.Len()).
		Str("model", model.Name()).
		Str("addr", c.Addr()).
		Msg("book predictor ready")

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	waitForShutdown(server, errCh)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// loadSchema reads the training column schema from the registry when
// DATA_PATH is configured, otherwise from SchemaPath.
func loadSchema(c cfg.Settings) (*features.Schema, error) {
	if !c.UseRegistry() {
		return features.LoadSchema(c.SchemaPath)
	}

	store, err := storage.New(c.DataPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Schema(c.SchemaVersion)
}

func waitForShutdown(server *ml.ModelServer, errCh <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
