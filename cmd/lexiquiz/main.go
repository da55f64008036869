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

	"github.com/spf13/pflag"

	"github.com/conorfennell/lexiquiz/internal/backup"
	"github.com/conorfennell/lexiquiz/internal/catalog"
	"github.com/conorfennell/lexiquiz/internal/config"
	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/scheduler"
	"github.com/conorfennell/lexiquiz/internal/sheet"
	"github.com/conorfennell/lexiquiz/internal/storage"
	"github.com/conorfennell/lexiquiz/internal/streak"
	decksync "github.com/conorfennell/lexiquiz/internal/sync"
	"github.com/conorfennell/lexiquiz/internal/web"
)

type actions struct {
	addSource   string
	sync        bool
	importSheet string
	sheetName   string
	startRow    int
	kind        string
	exportPath  string
	importPath  string
}

func main() {
	flags := pflag.NewFlagSet("lexiquiz", pflag.ExitOnError)
	config.RegisterFlags(flags)

	var act actions
	flags.StringVar(&act.addSource, "add-source", "", "Add a deck source (local path or git URL) and exit")
	flags.BoolVar(&act.sync, "sync", false, "Sync all deck sources and exit")
	flags.StringVar(&act.importSheet, "import-sheet", "", "Import a .xlsx or .csv word list and exit")
	flags.StringVar(&act.sheetName, "sheet", "Sheet1", "Sheet to read with --import-sheet")
	flags.IntVar(&act.startRow, "start-row", 2, "First row to read with --import-sheet")
	flags.StringVar(&act.kind, "kind", "word", "Item kind for --import-sheet: word or expression")
	flags.StringVar(&act.exportPath, "export", "", "Write a backup to the given file (- for stdout) and exit")
	flags.StringVar(&act.importPath, "import", "", "Replace all data with the given backup file and exit")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	if err := run(cfg, act); err != nil {
		slog.Error("lexiquiz failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, act actions) error {
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	slog.Debug("database opened", "path", cfg.DB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case act.addSource != "":
		return addSource(db, act.addSource)
	case act.sync:
		_, err := decksync.RunSync(ctx, db, cfg.ReposDir)
		return err
	case act.importSheet != "":
		return importSheet(db, act)
	case act.exportPath != "":
		return exportData(db, act.exportPath)
	case act.importPath != "":
		return importData(db, act.importPath)
	}

	if _, err := streak.Bootstrap(db, time.Now()); err != nil {
		return err
	}
	return serve(ctx, cfg, db)
}

func addSource(db *storage.DB, path string) error {
	src, created, err := decksync.AddSource(db, path)
	if err != nil {
		return err
	}
	if !created {
		slog.Info("source already exists", "id", src.ID, "path", src.Path)
	}
	return nil
}

func importSheet(db *storage.DB, act actions) error {
	kind, err := domain.ParseKind(act.kind)
	if err != nil {
		return err
	}
	cfg := sheet.DefaultConfig(act.importSheet)
	cfg.SheetName = act.sheetName
	cfg.StartRow = act.startRow
	cfg.Kind = kind

	result, err := sheet.Import(catalog.New(db), cfg)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		slog.Warn("row not imported", "detail", msg)
	}
	return nil
}

func exportData(db *storage.DB, path string) error {
	doc, err := backup.Export(db)
	if err != nil {
		return err
	}
	if path == "-" {
		return backup.Write(os.Stdout, doc)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := backup.Write(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("data exported", "path", path)
	return f.Close()
}

func importData(db *storage.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return backup.Import(db, data)
}

func serve(ctx context.Context, cfg *config.Config, db *storage.DB) error {
	runner := decksync.NewRunner(db, cfg.ReposDir)

	if cfg.SyncInterval > 0 {
		sched := scheduler.New(cfg.SyncInterval, func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		})
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.NewServer(db, web.Options{
			Quiz:     cfg.QuizConfig(),
			ReposDir: cfg.ReposDir,
			Sync:     runner,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
