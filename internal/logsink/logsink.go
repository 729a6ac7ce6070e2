// Package logsink builds the server's logging sink: a zerolog.Logger
// writing a "[timestamp] [LEVEL] caller(): …" console layout to stdout
// and/or zerolog's JSON lines to an append-only file.
package logsink

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Options controls where log lines go and at what level.
type Options struct {
	Level    string // "debug", "info", "warn", "error"
	FilePath string // empty disables file output
	Stdout   bool
}

// New builds a logger that writes the "[timestamp] [LEVEL] caller(): …"
// console format to stdout and/or appends JSON lines to FilePath.
func New(opts Options) (zerolog.Logger, error) {
	var writers []io.Writer

	if opts.Stdout {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatTimestamp: func(i interface{}) string {
				return "[" + fmt.Sprintf("%s", i) + "]"
			},
			FormatLevel: func(i interface{}) string {
				return "[" + strings.ToUpper(fmt.Sprintf("%s", i)) + "]"
			},
			FormatCaller: func(i interface{}) string {
				return fmt.Sprintf("%s():", i)
			},
		})
	}

	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		writers = append(writers, f)
	}

	if len(writers) == 0 {
		return zerolog.Nop(), nil
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().Timestamp().Caller().Logger()
	return logger, nil
}

// HumanBytes renders n bytes as a human-readable size, e.g. "14 kB".
func HumanBytes(n int) string {
	return humanize.Bytes(uint64(n))
}
