// Command veloxd runs the key/value and sorted-set server.
package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/xgzlucario/veloxd/internal/config"
	"github.com/xgzlucario/veloxd/internal/logsink"
	"github.com/xgzlucario/veloxd/internal/metrics"
	"github.com/xgzlucario/veloxd/internal/server"
	"github.com/xgzlucario/veloxd/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "veloxd",
		Usage: "in-memory key/value and sorted-set server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "veloxd.toml", EnvVars: []string{"VELOXD_CONFIG"}},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "overrides tcp.port from the config file"},
			&cli.StringFlag{Name: "log-level", Usage: "overrides log.level from the config file"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	configPath := c.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("port") {
		cfg.TCPPort = c.Int("port")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	logger, err := logsink.New(logsink.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile, Stdout: true})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	store.Logger = logger

	if watcher, err := config.WatchLogLevel(configPath, func(level string) {
		if lvl, err := zerolog.ParseLevel(level); err == nil {
			logger = logger.Level(lvl)
			store.Logger = logger
		}
	}); err == nil {
		defer watcher.Close()
	}

	db := store.NewDB()

	// The gauges run on the metrics goroutine, so they read atomics that
	// the event loop refreshes after each command instead of reading db.
	var keyCount atomic.Int64
	var rehashing atomic.Bool
	m := metrics.New(
		func() float64 { return float64(keyCount.Load()) },
		func() float64 {
			if rehashing.Load() {
				return 1
			}
			return 0
		},
	)
	store.OnCommand = func(name string) {
		m.CommandsProcessed.WithLabelValues(name).Inc()
		keyCount.Store(int64(db.Size()))
		rehashing.Store(db.Rehashing())
	}
	server.OnAccept = func() { m.ConnectionsAccepted.Inc() }
	if cfg.MetricsAddr != "" {
		m.Serve(cfg.MetricsAddr)
	}

	srv, err := server.New(server.Config{
		Port:         cfg.TCPPort,
		Backlog:      cfg.TCPBacklog,
		AcceptPerSec: cfg.AcceptPerSec,
		AcceptBurst:  cfg.AcceptBurst,
	}, db, logger)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()

	logger.Info().Int("port", cfg.TCPPort).Msg("veloxd listening")
	return srv.Run()
}
