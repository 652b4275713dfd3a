// Package logger configures the process-wide zerolog logger: console output
// (JSON or pretty), an optional rotated log file and optional forwarding to
// Axiom.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/local/lessonplanner/internal/config"
)

const serviceName = "lessonplanner"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Console overrides stdout, mainly for tests and the CLI (stderr).
	Console io.Writer

	SendToAxiom   bool
	AxiomAPIKey   string
	AxiomOrgID    string
	AxiomDataset  string
	AxiomFlush    time.Duration
	AxiomMinLevel string
}

// OptionsFromConfig maps the env configuration onto logger options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Level:         cfg.Logging.Level,
		Pretty:        cfg.Logging.Pretty,
		File:          cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxBackups:    cfg.Logging.MaxBackups,
		MaxAgeDays:    cfg.Logging.MaxAgeDays,
		Compress:      cfg.Logging.Compress,
		SendToAxiom:   cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:   cfg.Axiom.APIKey,
		AxiomOrgID:    cfg.Axiom.OrgID,
		AxiomDataset:  cfg.Axiom.Dataset,
		AxiomFlush:    cfg.Axiom.FlushInterval,
		AxiomMinLevel: cfg.Axiom.MinLevel,
	}
}

var (
	mu     sync.Mutex
	global = zerolog.Nop()
	remote *shipper
)

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	if s == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return def
	}
	return lvl
}

// Init replaces the global logger. Calling it again closes the previous
// Axiom shipper first.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if remote != nil {
		remote.Close()
		remote = nil
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	var writers []io.Writer
	if opts.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, console)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}

	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		s, err := newShipper(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			remote = s
			writers = append(writers, &axiomSink{ship: s, min: parseLevel(opts.AxiomMinLevel, zerolog.InfoLevel)})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	global = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(opts.Level, zerolog.InfoLevel)).
		With().Timestamp().Str("service", serviceName).
		Logger()
	log.Logger = global
	return nil
}

// Close flushes pending Axiom events.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if remote != nil {
		remote.Close()
		remote = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// Session returns a child logger tagged with the UI session id.
func Session(id string) zerolog.Logger {
	return log.Logger.With().Str("session_id", id).Logger()
}
