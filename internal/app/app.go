// Package app wires configuration, logging, the hub and the HTTP server
// into a runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"floorcrawl/internal/hub"
	servernet "floorcrawl/internal/net"
	"floorcrawl/internal/score"
	"floorcrawl/internal/telemetry"
	"floorcrawl/logging"
	loggingsinks "floorcrawl/logging/sinks"
)

// Options carries process-level dependencies into Run.
type Options struct {
	Config Config
	Logger telemetry.Logger
}

// Run boots the server and blocks until ctx is cancelled or the listener
// fails. Cancellation drains in-flight requests before returning.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config.Normalized()

	telemetryLogger := opts.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	router, jsonFile, err := buildLogRouter(cfg, fallbackLogger)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
		if jsonFile != nil {
			jsonFile.Close()
		}
	}()

	counters := telemetry.NewCounters()

	reporter := score.NopReporter()
	if cfg.ScoreBackendURL != "" {
		reporter = score.NewHTTPReporter(cfg.ScoreBackendURL, time.Duration(cfg.ScoreTimeoutMS)*time.Millisecond)
	}

	hubCfg := hub.DefaultConfig()
	hubCfg.Seed = cfg.Seed
	hubCfg.TickRate = cfg.TickRate
	hubCfg.ViewportW = cfg.ViewportW
	hubCfg.ViewportH = cfg.ViewportH
	hubCfg.Logger = telemetryLogger
	hubCfg.Counters = counters
	hubCfg.Publisher = router
	hubCfg.Reporter = reporter
	h := hub.New(hubCfg)

	stop := make(chan struct{})
	go h.Run(stop)
	defer close(stop)

	handler := servernet.NewHandler(h, servernet.HandlerConfig{
		ClientDir:      cfg.ClientDir,
		DebugEndpoints: cfg.DebugEndpoints,
		Logger:         telemetryLogger,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	telemetryLogger.Printf("server listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// buildLogRouter assembles the configured sinks. The returned file, when
// non-nil, backs the json sink and must outlive the router.
func buildLogRouter(cfg Config, fallback *log.Logger) (*logging.Router, *os.File, error) {
	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = cfg.Log.Sinks
	logCfg.JSON.FilePath = cfg.Log.JSONPath

	var jsonFile *os.File
	named := make([]logging.NamedSink, 0, len(cfg.Log.Sinks))
	for _, name := range cfg.Log.Sinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingsinks.NewConsoleSink(os.Stdout, logCfg.Console),
			})
		case "json":
			if cfg.Log.JSONPath == "" {
				return nil, nil, fmt.Errorf("json sink requires log.jsonPath")
			}
			file, err := os.OpenFile(cfg.Log.JSONPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open json log %s: %w", cfg.Log.JSONPath, err)
			}
			jsonFile = file
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingsinks.NewJSON(file, logCfg.JSON.FlushInterval),
			})
		default:
			return nil, nil, fmt.Errorf("unknown log sink %q", name)
		}
	}

	router, err := logging.NewRouter(logCfg, logging.SystemClock{}, fallback, named)
	if err != nil {
		if jsonFile != nil {
			jsonFile.Close()
		}
		return nil, nil, err
	}
	return router, jsonFile, nil
}
