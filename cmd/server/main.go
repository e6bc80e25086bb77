package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"caretrack/internal/adapters/email"
	web "caretrack/internal/adapters/http"
	"caretrack/internal/adapters/http/perf"
	"caretrack/internal/adapters/storage"
	accountStore "caretrack/internal/adapters/storage/account"
	programStore "caretrack/internal/adapters/storage/program"
	"caretrack/internal/application/orchestrators"
	"caretrack/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// configPath is bound to the persistent --config flag.
var configPath string

var rootCmd = &cobra.Command{
	Use:           "caretrack",
	Short:         "CareTrack - care program data collection and reporting",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web application (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides CARETRACK_CONFIG_PATH)")
	rootCmd.AddCommand(serveCmd, migrateCmd, createUserCmd, listUsersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command_failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Log))
	return cfg, nil
}

func newLogger(lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(lc.Level)}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app holds the opened database and the stores built on it.
type app struct {
	cfg       *config.Config
	db        *storage.TimedDB
	collector *perf.Collector
	accounts  *accountStore.SQLiteStore
	programs  *programStore.SQLiteStore
}

// openApp opens and migrates the database and wires the stores.
// POST: caller must Close the returned app
func openApp(cfg *config.Config) (*app, error) {
	db, err := storage.Open(cfg.Database.Path, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timed := storage.NewTimedDB(db, collector, cfg.Database.SlowQuery.Std())
	return &app{
		cfg:       cfg,
		db:        timed,
		collector: collector,
		accounts:  accountStore.NewSQLiteStore(timed),
		programs:  programStore.NewSQLiteStore(timed),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func newSender(ec config.EmailConfig, production bool) email.Sender {
	if ec.ResendKey != "" {
		slog.Info("email_sender_configured", "provider", "resend")
		return email.NewResendSender(ec.ResendKey, ec.From, ec.ReplyTo)
	}
	if production {
		slog.Warn("email_sender_disabled", "reason", "CARETRACK_RESEND_KEY is not set; report emails are logged only")
	}
	return email.NewNoopSender()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	schema, _ := storage.SchemaVersion(a.db.RawDB())
	slog.Info("store_initialized", "path", cfg.Database.Path, "schema", schema)

	seeded, err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.CreateAccountDeps{AccountStore: a.accounts},
		cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if seeded && !cfg.IsProduction() {
		slog.Warn("dev_admin_seeded", "username", cfg.Auth.AdminUsername, "hint", "set CARETRACK_ADMIN_PASSWORD to choose the password")
	}

	srv, err := web.NewMux(cfg, &web.Stores{
		AccountStore: a.accounts,
		ProgramStore: a.programs,
		DB:           a.db,
	}, a.collector, newSender(cfg.Email, cfg.IsProduction()))
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	var wg sync.WaitGroup
	startWorker(ctx, &wg, "session-sweeper", func(ctx context.Context) {
		sweepSessions(ctx, srv, time.Minute)
	})

	go func() {
		slog.Info("server_starting", "addr", cfg.Server.Addr, "version", version, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server_error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown_initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_error", "error", err)
	}
	wg.Wait()
	slog.Info("shutdown_complete")
	return nil
}

func sweepSessions(ctx context.Context, srv *web.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.Sessions().Sweep(); n > 0 {
				slog.Debug("sessions_swept", "expired", n)
			}
		}
	}
}

// startWorker launches a background goroutine tracked by wg.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker_started", "worker", name)
		fn(ctx)
		slog.Info("worker_stopped", "worker", name)
	}()
}
