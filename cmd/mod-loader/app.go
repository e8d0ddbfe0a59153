package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/joe/mod-loader/internal/archive"
	"github.com/joe/mod-loader/internal/config"
	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/profile"
	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/internal/tui/shared"
	pkgerrors "github.com/joe/mod-loader/pkg/errors"
	"github.com/joe/mod-loader/pkg/filesystem"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("one or more operations failed")

// app is everything a subcommand needs, built once per run.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	enricher pkgerrors.Enricher
	store    *registry.Store
	manager  *lifecycle.Manager
	profiles *profile.Manager
	targets  []*filesystem.Target
	out      io.Writer
	errOut   io.Writer
}

func newEnricher() pkgerrors.Enricher {
	enricher := pkgerrors.NewEnricher()
	enricher.Register(lifecycle.ErrTargetNotConfigured, pkgerrors.CategoryPath)
	enricher.Register(lifecycle.ErrNoModContent, pkgerrors.CategoryNoContent)
	enricher.Register(lifecycle.ErrMissingSource, pkgerrors.CategoryMissingSource)
	enricher.Register(lifecycle.ErrRegistryCorrupt, pkgerrors.CategoryRegistry)

	return enricher
}

// newLogger writes to --log-file when given, otherwise to errOut.
func newLogger(cfg *config.Config, errOut io.Writer) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	writer := errOut
	closeFn := func() {}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}

		writer = file
		closeFn = func() { _ = file.Close() }
	}

	logger := log.NewWithOptions(writer, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: cfg.LogFile != "",
	})

	return logger, closeFn, nil
}

// openApp loads the registry and connects the game directories. emitter may be nil.
func openApp(cfg *config.Config, logger *log.Logger, emitter lifecycle.EventEmitter, out, errOut io.Writer) (*app, error) {
	store := registry.NewStore(cfg.StorageDir, filesystem.NewRealFileSystem(), logger)

	if err := store.Load(); err != nil {
		var corrupt *registry.RegistryCorruptionError
		if !cfg.RecoverRegistry || !errors.As(err, &corrupt) {
			return nil, err
		}

		logger.Warn("starting from an empty registry", "path", corrupt.Path, "backup", corrupt.BackupPath)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		enricher: newEnricher(),
		store:    store,
		out:      out,
		errOut:   errOut,
	}

	pakTarget, err := a.openTarget(cfg.PakDir)
	if err != nil {
		a.Close()

		return nil, err
	}

	ue4ssTarget, err := a.openTarget(cfg.UE4SSModsDir)
	if err != nil {
		a.Close()

		return nil, err
	}

	a.manager = lifecycle.NewManager(lifecycle.Config{
		Store:       store,
		Extractor:   archive.NewExtractor(logger),
		PakTarget:   pakTarget,
		UE4SSTarget: ue4ssTarget,
		Logger:      logger,
		Emitter:     emitter,
	})
	a.profiles = profile.NewManager(store, a.manager, logger)

	return a, nil
}

func (a *app) openTarget(location string) (*filesystem.Target, error) {
	if location == "" {
		return nil, nil //nolint:nilnil // An unset directory is reported when an operation needs it
	}

	target, err := filesystem.OpenTarget(location)
	if err != nil {
		return nil, err //nolint:wrapcheck // OpenTarget already names the location
	}

	a.targets = append(a.targets, target)

	return target, nil
}

// Close releases remote connections.
func (a *app) Close() {
	for _, target := range a.targets {
		target.Close()
	}
}

// printError prints err with its remediation suggestions.
func (a *app) printError(err error) {
	printError(a.errOut, a.enricher, err)
}

func printError(w io.Writer, enricher pkgerrors.Enricher, err error) {
	fmt.Fprintln(w, shared.RenderErrorDetail(enricher, err, ""))
}

func run(ctx context.Context, cfg *config.Config, out, errOut io.Writer) int {
	enricher := newEnricher()

	logger, closeLog, err := newLogger(cfg, errOut)
	if err != nil {
		printError(errOut, enricher, err)

		return 1
	}
	defer closeLog()

	if cfg.Settings != nil {
		if err := runSettings(cfg, out); err != nil {
			printError(errOut, enricher, err)

			return 1
		}

		return 0
	}

	var bridge *shared.EventBridge

	var emitter lifecycle.EventEmitter

	if cfg.Interactive {
		bridge = shared.NewEventBridge()
		emitter = bridge
	}

	a, err := openApp(cfg, logger, emitter, out, errOut)
	if err != nil {
		printError(errOut, enricher, err)

		return 1
	}
	defer a.Close()

	if err := a.dispatch(ctx, bridge); err != nil {
		if !errors.Is(err, errReported) {
			a.printError(err)
		}

		return 1
	}

	return 0
}
