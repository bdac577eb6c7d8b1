package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/studiolink/studiolink/internal/config"
	"github.com/studiolink/studiolink/pkg/request"
	"github.com/studiolink/studiolink/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		address    string
		password   string
		poolSize   int
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control server",
		Long: `Start the WebSocket control server.

Settings are read from studiolink.yaml when present; flags override
the file. With --password, clients must complete challenge/response
authentication before identifying.

Examples:
  studiolink serve
  studiolink serve --address=0.0.0.0:4455 --password=sesame
  studiolink serve --config=/etc/studiolink/studiolink.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, address, password, poolSize, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to configuration file")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Require authentication with this password")
	cmd.Flags().IntVar(&poolSize, "pool-size", 0, "Worker pool size (overrides config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(configPath, address, password string, poolSize int, debug bool) error {
	cfg, err := config.LoadIfPresent(configPath)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Address = address
	}
	if password != "" {
		cfg.Auth = config.AuthConfig{Enabled: true, Password: password}
	}
	if poolSize > 0 {
		cfg.WorkerPoolSize = poolSize
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	setupLogging(cfg.Log)

	serverCfg := server.DefaultServerConfig().WithAddress(cfg.Address)
	serverCfg.Version = version
	serverCfg.DebugMode = cfg.Log.Level == "debug"
	if cfg.Auth.Enabled {
		serverCfg.WithPassword(cfg.Auth.Password)
	}
	if cfg.WorkerPoolSize > 0 {
		serverCfg.WithWorkerPoolSize(cfg.WorkerPoolSize)
	}
	if cfg.Session.ReadTimeout > 0 {
		serverCfg.Session.ReadTimeout = cfg.Session.ReadTimeout.Std()
	}
	if cfg.Session.WriteTimeout > 0 {
		serverCfg.Session.WriteTimeout = cfg.Session.WriteTimeout.Std()
	}
	if cfg.Session.MaxMessageSize > 0 {
		serverCfg.Session.MaxMessageSize = cfg.Session.MaxMessageSize
	}

	ticker := request.NewTickerScheduler(time.Second / 60)
	ticker.Start()
	defer ticker.Stop()
	serverCfg.FrameScheduler = ticker

	srv, err := server.New(serverCfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
