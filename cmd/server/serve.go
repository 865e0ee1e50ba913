package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/wage-compliance/api"
	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/store/memory"
	"github.com/warp/wage-compliance/store/sqlite"
)

var serveFlags struct {
	addr     string
	dbPath   string
	inMemory bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the compliance API. Calculations are appended to a SQLite database
(use --memory, or an empty database.path in the config file, to keep them
in process memory only).

When the rate document is a file, it is re-read every rates.reload_interval
and on POST /api/rates/reload. On SIGINT/SIGTERM the server stops accepting
connections and waits up to server.shutdown_timeout for active requests.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (overrides config)")
	f.StringVar(&serveFlags.dbPath, "db", "", "SQLite database path (overrides config)")
	f.BoolVar(&serveFlags.inMemory, "memory", false, "keep calculations in memory instead of SQLite")
	serveCmd.MarkFlagsMutuallyExclusive("db", "memory")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.addr != "" {
		cfg.Server.Addr = serveFlags.addr
	}
	if serveFlags.dbPath != "" {
		cfg.Database.Path = serveFlags.dbPath
	}
	if serveFlags.inMemory {
		cfg.Database.Path = ""
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	// Initialize store
	store, closeStore, err := openStore(cfg.Database.Path, a.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if snap := a.loader.Current(); snap != nil {
		err := store.SaveRateVersion(cmd.Context(), compliance.RateVersionRecord{
			Version:  snap.Version,
			Source:   snap.Source,
			LoadedAt: snap.LoadedAt,
		})
		if err != nil {
			a.logger.Warn("failed to record rate version", zap.Error(err))
		}
	}

	handler := api.NewHandler(a.engine, store, api.Options{
		Reloader:         a.loader,
		BatchWorkers:     cfg.Batch.Workers,
		MaxBatchRequests: cfg.Batch.MaxRequests,
		Logger:           a.logger,
	})

	scheduler := api.NewRateReloadScheduler(a.loader, store, a.logger)
	scheduler.CheckInterval = cfg.Rates.ReloadInterval
	scheduler.Enabled = cfg.Rates.Path != ""
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("rates", a.loader.Describe()),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// openStore opens the SQLite store at path, or an in-memory store when path
// is empty.
func openStore(path string, logger *zap.Logger) (compliance.RecordStore, func() error, error) {
	if path == "" {
		logger.Warn("no database path configured, calculations are kept in memory")
		return memory.New(), func() error { return nil }, nil
	}
	store, err := sqlite.New(path, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
