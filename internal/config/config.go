// Package config loads veloxd's startup configuration and watches it
// for edits, so an operator can change the log level without a restart.
// The TCP listener and metrics address are read once at startup and are
// not hot-reloaded, since the listener is already bound by the time a
// config edit could be observed.
package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config mirrors one veloxd.toml file.
type Config struct {
	TCPPort      int     `mapstructure:"tcp.port"`
	TCPBacklog   int     `mapstructure:"tcp.backlog"`
	LogLevel     string  `mapstructure:"log.level"`
	LogFile      string  `mapstructure:"log.file"`
	MetricsAddr  string  `mapstructure:"metrics.addr"`
	AcceptPerSec float64 `mapstructure:"tcp.accept_per_sec"`
	AcceptBurst  int     `mapstructure:"tcp.accept_burst"`
}

func defaults() Config {
	return Config{
		TCPPort:      1234,
		TCPBacklog:   0,
		LogLevel:     "info",
		LogFile:      "",
		MetricsAddr:  "127.0.0.1:9100",
		AcceptPerSec: 0,
		AcceptBurst:  0,
	}
}

// Load reads path (a TOML file) into a Config, falling back to defaults
// for any key it doesn't set.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	cfg := defaults()
	v.SetDefault("tcp.port", cfg.TCPPort)
	v.SetDefault("tcp.backlog", cfg.TCPBacklog)
	v.SetDefault("log.level", cfg.LogLevel)
	v.SetDefault("log.file", cfg.LogFile)
	v.SetDefault("metrics.addr", cfg.MetricsAddr)
	v.SetDefault("tcp.accept_per_sec", cfg.AcceptPerSec)
	v.SetDefault("tcp.accept_burst", cfg.AcceptBurst)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg.TCPPort = v.GetInt("tcp.port")
	cfg.TCPBacklog = v.GetInt("tcp.backlog")
	cfg.LogLevel = v.GetString("log.level")
	cfg.LogFile = v.GetString("log.file")
	cfg.MetricsAddr = v.GetString("metrics.addr")
	cfg.AcceptPerSec = v.GetFloat64("tcp.accept_per_sec")
	cfg.AcceptBurst = v.GetInt("tcp.accept_burst")
	return &cfg, nil
}

// WatchLogLevel calls onChange with the file's current log.level
// whenever path is written, so an operator can raise or lower verbosity
// without restarting the server. The TCP listener and metrics address
// are read once at startup and are not hot-reloaded.
func WatchLogLevel(path string, onChange func(level string)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					continue
				}
				onChange(cfg.LogLevel)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}
