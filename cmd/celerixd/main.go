package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-compliance/internal/api"
	"github.com/celerix-dev/celerix-compliance/internal/config"
	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/internal/portal"
	"github.com/celerix-dev/celerix-compliance/internal/seed"
	"github.com/celerix-dev/celerix-compliance/internal/server"
	"github.com/celerix-dev/celerix-compliance/internal/vault"
)

func main() {
	configPath := flag.String("config", os.Getenv("CELERIX_CONFIG"), "path to a YAML or JSONC config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("celerixd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Configuration and logging
	cfg, err := config.Load(configPath, config.Environ())
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Logger(os.Stderr))
	slog.Info("starting celerix compliance daemon", "backend", cfg.Backend, "config", cfg.Source)

	// 2. Initialize persistence
	persister, closePersister, err := openPersister(cfg)
	if err != nil {
		return fmt.Errorf("initialize persistence: %w", err)
	}
	defer closePersister()

	// 3. Load existing data (or seed) and start the portal
	data, err := seed.Default()
	if err != nil {
		return err
	}
	p, err := portal.Open(persister, data, portal.Options{Locale: cfg.Tag, PageSize: cfg.PageSize})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go p.Dashboard.Run(ctx, cfg.Refresh)

	// 4. Initialize the TCP router
	router := server.NewRouter(p)
	if cfg.DisableTLS {
		slog.Info("TLS encryption disabled (CELERIX_DISABLE_TLS=true)")
	} else {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		router.SetCertificate(cert)
		slog.Info("TLS encryption enabled")
	}

	// 5. Initialize the HTTP API
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(&api.Handler{Portal: p}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start servers
	errc := make(chan error, 2)
	go func() {
		slog.Info("HTTP API listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	go func() {
		slog.Info("TCP protocol listening", "port", cfg.TCPPort)
		if err := router.Listen(cfg.TCPPort); err != nil {
			errc <- fmt.Errorf("TCP server: %w", err)
		}
	}()

	// 7. Handle graceful shutdown
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, finalizing disk writes")
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = router.Stop()
	p.Wait()
	slog.Info("persistence complete, exiting")
	return err
}

func openPersister(cfg config.Config) (engine.Persister, func(), error) {
	noop := func() {}
	var (
		p       engine.Persister
		closeFn = noop
	)
	switch cfg.Backend {
	case config.BackendMemory:
		return nil, noop, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, noop, err
		}
		db, err := engine.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		if err := importFiles(cfg.DataDir, db); err != nil {
			db.Close()
			return nil, noop, err
		}
		p = db
		closeFn = func() {
			if err := db.Close(); err != nil {
				slog.Warn("close sqlite", "error", err)
			}
		}
	default:
		fp, err := engine.NewPersistence(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		if names, err := fp.Datasets(); err == nil && len(names) > 0 {
			slog.Info("found file snapshots", "dir", cfg.DataDir, "datasets", names)
		}
		p = fp
	}
	if cfg.Key != nil {
		p = &engine.EncryptedPersister{Inner: p, Key: cfg.Key}
	}
	return p, closeFn, nil
}

// importFiles carries JSON snapshots left by the file backend into a fresh
// SQLite database.
func importFiles(dataDir string, db *engine.SQLitePersistence) error {
	existing, err := db.Datasets()
	if err != nil || len(existing) > 0 {
		return err
	}
	files, err := engine.NewPersistence(dataDir)
	if err != nil {
		return err
	}
	found, err := files.Datasets()
	if err != nil {
		return err
	}
	known := []string{portal.DatasetContent, portal.DatasetChecklist, portal.DatasetAudit}
	found = slices.DeleteFunc(found, func(name string) bool { return !slices.Contains(known, name) })
	migrated, err := engine.Migrate(files, db, found...)
	if err != nil {
		return fmt.Errorf("import file snapshots: %w", err)
	}
	if len(migrated) > 0 {
		slog.Info("imported file snapshots into sqlite", "datasets", migrated)
	}
	return nil
}
