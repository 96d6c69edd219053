package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/sadopc/planr/internal/config"
	"github.com/sadopc/planr/internal/drag"
	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/export"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/metrics"
	"github.com/sadopc/planr/internal/planner"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file (default ~/.config/planr/config.yaml)")
	dbPath := flag.String("db", "", "Path to the SQLite database (overrides db_path)")
	importPath := flag.String("import", "", "Add the events of a JSON or iCalendar export before starting")
	flag.Parse()

	if *configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		*configPath = p
	}

	loaded, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := loaded.Resolve(filepath.Dir(*configPath))
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := run(cfg, *importPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, importPath string) error {
	logFile := cfg.Log.File
	if logFile == "-" {
		logFile = ""
	}
	logger, closer, err := logging.New(logging.Options{
		File:   logFile,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	opts := planner.Options{
		Store:        s,
		Clock:        clockwork.NewRealClock(),
		Logger:       logger,
		HistoryLimit: cfg.HistoryLimit,
	}
	if cfg.Export.Auto {
		f, err := export.ParseFormat(cfg.Export.Format)
		if err != nil {
			return err
		}
		opts.AutoExport = export.Auto{Dir: cfg.Export.Dir, Format: f}
	}
	p := planner.New(opts)

	var status string
	if err := p.Load(); err != nil {
		var se *event.StorageError
		if !errors.As(err, &se) {
			return err
		}
		// Start empty; the next save overwrites whatever could not be read.
		status = "Could not load saved events: " + se.Err.Error()
	}

	if importPath != "" {
		c, err := export.ReadFile(importPath)
		if err != nil {
			return err
		}
		res, err := p.Import(c)
		msg := fmt.Sprintf("Imported %s: %s", filepath.Base(importPath), res)
		if err != nil {
			msg += " (" + err.Error() + ")"
		}
		if status != "" {
			msg = status + "; " + msg
		}
		status = msg
		logger.Info("import finished", "path", importPath, "added", len(res.Added), "total", len(c))
	}

	outcomes := make(chan drag.Outcome, 8)
	reconciler := drag.New(p, opts.Clock, drag.Config{
		DropDelay:      cfg.Drag.DropDelay,
		ResizeDebounce: cfg.Drag.ResizeDebounce,
		PixelsPerDay:   cfg.Drag.PixelsPerDay,
	}, func(o drag.Outcome) {
		select {
		case outcomes <- o:
		default:
			logger.Warn("drag outcome dropped", "id", o.EventID, "gesture", o.Gesture.String())
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.MetricsListen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsListen, logging.For(logger, "metrics")); err != nil {
				logger.Error("metrics endpoint stopped", "err", err)
			}
		}()
	}

	logger.Info("starting", "db", cfg.DBPath, "events", len(p.Snapshot()))

	app := tui.NewApp(tui.Options{
		Planner:   p,
		Store:     s,
		Drag:      reconciler,
		Outcomes:  outcomes,
		ExportDir: cfg.Export.Dir,
		Logger:    logger,
		Status:    status,
	})
	prog := tea.NewProgram(app, tea.WithAltScreen())

	_, err = prog.Run()
	return err
}
