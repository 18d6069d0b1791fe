package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddevcap/mcu-rankings/api"
	"github.com/ddevcap/mcu-rankings/api/handler"
	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/config"
	"github.com/ddevcap/mcu-rankings/search"
	"github.com/ddevcap/mcu-rankings/session"
	"github.com/ddevcap/mcu-rankings/store"
	"github.com/ddevcap/mcu-rankings/store/rest"
	"github.com/ddevcap/mcu-rankings/store/sqlstore"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "mcurankings",
	Short: "Rate the titles of the Marvel Cinematic Universe",
	Long: `mcurankings serves the MCU rankings site: the catalog grouped by phase,
title pages, typeahead search and the admin editor.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var provisionPassword string

var provisionCmd = &cobra.Command{
	Use:   "provision-admin",
	Short: "Create the admin account",
	Long: `Creates the ADMIN_EMAIL account on the configured backend. The password is
taken from --password, or from INITIAL_ADMIN_PASSWORD when the flag is not
given. An account that already exists is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return provisionAdmin(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	provisionCmd.Flags().StringVar(&provisionPassword, "password", "", "Admin password (defaults to INITIAL_ADMIN_PASSWORD)")
	rootCmd.AddCommand(serveCmd, provisionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// backendStack is the adapter and account backend selected by
// STORE_BACKEND.
type backendStack struct {
	adapter     store.Adapter
	pinger      store.Pinger
	auth        session.Authenticator
	provisioner session.Provisioner
	close       func()
}

func openBackend(ctx context.Context, cfg config.Config) (*backendStack, error) {
	switch cfg.StoreBackend {
	case config.BackendREST:
		client := rest.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.RequestTimeout)
		auth := client.Auth()
		return &backendStack{
			adapter:     client,
			pinger:      client,
			auth:        auth,
			provisioner: auth,
			close:       func() {},
		}, nil
	case config.BackendPostgres, config.BackendSQLite:
		db, err := sqlstore.Open(cfg.StoreBackend, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("running schema migration: %w", err)
		}
		if err := db.SeedReferenceData(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seeding reference data: %w", err)
		}
		accounts := db.Accounts()
		return &backendStack{
			adapter:     db,
			pinger:      db,
			auth:        accounts,
			provisioner: accounts,
			close:       func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}

	backend, err := openBackend(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		return err
	}
	defer backend.close()

	layout, err := catalog.ParseLayout(cfg.StoreLayout)
	if err != nil {
		return err
	}
	repo := catalog.NewRepository(backend.adapter, layout)
	svc := catalog.NewService(repo)
	searcher := search.NewSearcher(repo, cfg.SearchLimit)

	gate := session.NewGate(backend.auth, cfg.AdminEmail, cfg.SessionTTL)

	api.ProvisionAdmin(context.Background(), backend.provisioner, cfg)

	// Start background health checker so /ready reflects store availability.
	hc := store.NewHealthChecker(backend.pinger, cfg.HealthCheckInterval)
	hc.Start(context.Background())

	wsHub := handler.NewWSHub()
	h, stopLimiter, err := api.NewRouter(cfg, api.Services{
		Catalog:  svc,
		Searcher: searcher,
		Gate:     gate,
		Health:   hc,
		Hub:      wsHub,
	})
	if err != nil {
		hc.Stop()
		gate.Close()
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("mcu rankings listening",
			"addr", cfg.ListenAddr, "backend", cfg.StoreBackend, "layout", layout)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt or SIGTERM (e.g. from container orchestration).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("shutting down server...")
	case err = <-serverErr:
		slog.Error("server error", "error", err)
	}

	wsHub.Shutdown()
	hc.Stop()
	stopLimiter()
	gate.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
		slog.Error("server forced to shutdown", "error", shutdownErr)
	}
	slog.Info("server stopped")
	return err
}

func provisionAdmin(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	password := provisionPassword
	if password == "" {
		password = cfg.InitialAdminPassword
	}
	if password == "" {
		return errors.New("no password given: pass --password or set INITIAL_ADMIN_PASSWORD")
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	return session.Provision(ctx, backend.provisioner, cfg.AdminEmail, password)
}
