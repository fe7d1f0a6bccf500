package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shapr-cms/shapr/internal/access"
	"github.com/shapr-cms/shapr/internal/cli/config"
	"github.com/shapr-cms/shapr/internal/hooks"
	"github.com/shapr-cms/shapr/internal/runtime"
	"github.com/shapr-cms/shapr/internal/store"
	"github.com/shapr-cms/shapr/internal/web"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default from shapr.yml)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to bind (default from shapr.yml)")
}

var serveCmd = &cobra.Command{
	Use:   "serve [schema file]",
	Short: "Serve the schema's collections over HTTP",
	Long:  "Parse the schema, open the configured store, and serve the content API until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliCfg, err := config.Load()
		if err != nil {
			return err
		}

		path, err := resolveSchemaPath(args)
		if err != nil {
			return err
		}
		cfg, err := loadSchemaConfig(path)
		if err != nil {
			return err
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		repo, closeRepo, err := openStore(cliCfg)
		if err != nil {
			return err
		}
		defer closeRepo()

		var tokens *access.TokenService
		if cliCfg.Auth.Secret != "" {
			tokens = access.NewTokenService(cliCfg.Auth.Secret, cliCfg.Auth.TokenTTL)
		} else {
			logger.Warn("auth.secret not configured, all requests are anonymous")
		}

		svc := runtime.NewService(cfg, repo, hooks.NewExecutor(hooks.NewRegistry(), logger), logger)
		router := web.NewRouter(web.NewHandlers(svc, logger), tokens, logger)

		serverCfg := web.DefaultServerConfig()
		serverCfg.Host = cliCfg.Server.Host
		serverCfg.Port = cliCfg.Server.Port
		if serveHost != "" {
			serverCfg.Host = serveHost
		}
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		server := web.NewServer(serverCfg, router, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logger.Info("received signal", zap.String("signal", sig.String()))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

// openStore builds the repository named by the config: the in-memory store,
// or a SQL store over sqlite3 or postgres.
func openStore(cfg *config.Config) (store.Repository, func(), error) {
	switch cfg.Database.Driver {
	case "memory", "":
		return store.NewMemory(), func() {}, nil
	case "sqlite3", "postgres":
		url := cfg.Database.URL
		if env := os.Getenv("DATABASE_URL"); env != "" {
			url = env
		}
		db, err := sql.Open(cfg.Database.Driver, url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return store.NewSQL(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
