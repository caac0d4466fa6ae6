// Package main is the entry point for the Simon session server.
// It only handles dependency injection and server initialization.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/infra/storage"
	"github.com/MRamiBalles/SimonSays/internal/ledger"
	"github.com/MRamiBalles/SimonSays/internal/network"
	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/platform/config"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
	"github.com/MRamiBalles/SimonSays/internal/platform/metrics"
	"github.com/MRamiBalles/SimonSays/internal/platform/otel"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("simon-server: %v", err)
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "signal generator seed (0 = random)")
	flag.BoolVar(&cfg.AutoRestart, "auto-restart", cfg.AutoRestart, "start a new session after each game over")
	lowResource := flag.Bool("low-resource", false, "use minimal websocket buffers")
	flag.Parse()

	if *lowResource {
		cfg.Tuning = config.LowResourceTuning()
	}

	appLogger := logger.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Errorf("Server stopped with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, appLogger *logger.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, "simon-server", cfg.Tracing.OTLPEndpoint())
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			appLogger.Warnf("Tracing shutdown: %v", err)
		}
	}()

	appLogger.Infof("Initializing SQLite database %q...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.Get()

	appLogger.Info("Loading attempt history...")
	history := ledger.New(storage.NewSQLiteStore(db, cfg.LedgerKey), appLogger).WithMetrics(collector)
	history.Load(ctx)
	appLogger.Infof("Loaded %d attempts", history.Len())

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = palette.NewSeed(); err != nil {
			return err
		}
	}
	appLogger.Infof("Signal generator seed %d", seed)

	pal := palette.Default()
	session := engine.NewSession(pal, palette.NewRandom(pal, seed), history,
		engine.WithConfig(cfg.Engine()),
		engine.WithLogger(appLogger),
		engine.WithMetrics(collector),
	)
	defer session.Close()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(session, network.Options{
		BroadcastBuffer:      cfg.Tuning.BroadcastBuffer,
		ClientSendBuffer:     cfg.Tuning.ClientSendBuffer,
		MaxMessagesPerSecond: cfg.Tuning.MaxMessagesPerSecond,
		MaxClients:           cfg.Tuning.MaxClients,
	}, appLogger, collector)
	session.Subscribe(hub)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewResultsHandler(history, pal, session, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.HandleFunc("/metrics/prometheus", collector.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Infof("HTTP API & WS Server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
