package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/jmlarson/venuefeed/internal/config"
	"github.com/jmlarson/venuefeed/internal/connector"
	"github.com/jmlarson/venuefeed/internal/database"
	"github.com/jmlarson/venuefeed/internal/logging"
	"github.com/jmlarson/venuefeed/internal/metrics"
	"github.com/jmlarson/venuefeed/internal/venue/coinbase"
	"github.com/jmlarson/venuefeed/internal/venue/kraken"
	"github.com/jmlarson/venuefeed/internal/version"
	"github.com/jmlarson/venuefeed/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/feedd.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting feedd",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	// Create context cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Build a controller and writer per venue
	controllers := make([]*connector.Controller, 0, len(cfg.Venues))
	writers := make([]*writer.PriceWriter, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		adapter, err := buildAdapter(vc, logger)
		if err != nil {
			logger.Error("failed to build venue adapter", "venue", vc.Name, "error", err)
			os.Exit(1)
		}

		c := connector.NewController(controllerConfig(vc), adapter, logger)
		controllers = append(controllers, c)

		w := writer.NewPriceWriter(
			writer.WriterConfig{BatchSize: cfg.Writer.BatchSize, FlushInterval: cfg.Writer.FlushInterval},
			c.PriceUpdates(),
			pool,
			logger.With("venue", vc.Name),
		)
		writers = append(writers, w)
	}

	// Metrics and health endpoint
	metrics.Init()
	metricsServer := metrics.Server(cfg.Metrics.Port, cfg.Metrics.Path, healthHandler(pool, controllers))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	// Start writers, connect venues, pump lifecycle events
	for i := range controllers {
		c := controllers[i]
		w := writers[i]
		pairs := cfg.Venues[i].Pairs

		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start writer", "venue", c.Exchange(), "error", err)
			os.Exit(1)
		}

		g.Go(func() error {
			pumpEvents(c)
			return nil
		})

		g.Go(func() error {
			statsLoop(gctx, c, 10*time.Second)
			return nil
		})

		g.Go(func() error {
			if err := c.Connect(gctx); err != nil {
				// The controller keeps retrying on its own; a failed first
				// attempt is not fatal for the process.
				logger.Warn("initial connect failed", "venue", c.Exchange(), "error", err)
			}
			if err := c.SubscribeToPairs(gctx, pairs); err != nil {
				logger.Warn("initial subscribe deferred", "venue", c.Exchange(), "error", err)
			}
			return nil
		})
	}

	logger.Info("feedd running",
		"venues", len(controllers),
		"metrics_url", fmt.Sprintf("http://localhost:%d%s", cfg.Metrics.Port, cfg.Metrics.Path),
	)

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down...")

	for i := range controllers {
		controllers[i].Disconnect()
		controllers[i].Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i := range writers {
		if err := writers[i].Stop(shutdownCtx); err != nil {
			logger.Warn("writer stop failed", "error", err)
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("feedd stopped")
}

// buildAdapter maps a venue name to its protocol adapter.
func buildAdapter(vc config.VenueConfig, logger *slog.Logger) (connector.Adapter, error) {
	switch vc.Name {
	case coinbase.Name:
		return coinbase.New(vc.URL, logger), nil
	case kraken.Name:
		return kraken.New(vc.URL, logger), nil
	default:
		return nil, fmt.Errorf("unknown venue %q", vc.Name)
	}
}

func controllerConfig(vc config.VenueConfig) connector.Config {
	cfg := connector.DefaultConfig()
	cfg.Exchange = vc.Name
	cfg.ReconnectBaseDelay = vc.ReconnectBaseDelay
	cfg.ReconnectMultiplier = vc.ReconnectMultiplier
	cfg.ReconnectMaxDelay = vc.ReconnectMaxDelay
	cfg.Breaker.FailureThreshold = vc.BreakerFailureThreshold
	cfg.Breaker.ResetTimeout = vc.BreakerResetTimeout
	cfg.HandshakeTimeout = vc.HandshakeTimeout
	cfg.WriteTimeout = vc.WriteTimeout
	cfg.ReadTimeout = vc.ReadTimeout
	cfg.BufferSize = vc.BufferSize
	return cfg
}

// pumpEvents drains a controller's lifecycle events into metrics until the
// controller is closed.
func pumpEvents(c *connector.Controller) {
	exchange := c.Exchange()
	for {
		ev, ok := c.Events().Receive()
		if !ok {
			return
		}
		metrics.BufferDropped.WithLabelValues(exchange).Set(float64(c.PriceUpdates().Dropped()))
		if ev.Type != connector.EventStatusChanged {
			continue
		}
		metrics.ConnectionState.WithLabelValues(exchange).Set(float64(ev.Status.State))
		switch ev.Status.State {
		case connector.StateConnecting, connector.StateReconnecting:
			metrics.ConnectAttempts.WithLabelValues(exchange).Inc()
		case connector.StateFailed:
			metrics.ConnectionFailures.WithLabelValues(exchange).Inc()
		}
	}
}

// statsLoop periodically refreshes gauges that have no driving event, so
// evictions during a long quiet session still surface.
func statsLoop(ctx context.Context, c *connector.Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	exchange := c.Exchange()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.BufferDropped.WithLabelValues(exchange).Set(float64(c.PriceUpdates().Dropped()))
		}
	}
}

// healthHandler reports database and per-venue connection health.
func healthHandler(pool *pgxpool.Pool, controllers []*connector.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}

		for _, c := range controllers {
			st := c.Status()
			health.Components["venue:"+c.Exchange()] = map[string]string{
				"state":  st.State.String(),
				"reason": st.Reason,
			}
			if st.State != connector.StateConnected {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}
