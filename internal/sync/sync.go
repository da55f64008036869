// Package sync reconciles deck sources with the item store.
package sync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"

	"github.com/conorfennell/lexiquiz/internal/deck"
	"github.com/conorfennell/lexiquiz/internal/gitsource"
	"github.com/conorfennell/lexiquiz/internal/storage"
)

// Report summarises one reconciliation run.
type Report struct {
	Sources int
	Parsed  int
	Added   int
	Removed int
	Errors  []error
}

// Runner serialises syncs started from different places, such as the
// scheduler and the HTTP API.
type Runner struct {
	mu       gosync.Mutex
	db       *storage.DB
	reposDir string
}

// NewRunner returns a runner that syncs the sources of db.
func NewRunner(db *storage.DB, reposDir string) *Runner {
	return &Runner{db: db, reposDir: reposDir}
}

// Run calls RunSync, waiting for any sync already in progress.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSync(ctx, r.db, r.reposDir)
}

// AddSource registers path as a deck source, typed git or local by its
// form. It reports false with the existing source when path is already
// registered.
func AddSource(db *storage.DB, path string) (*storage.Source, bool, error) {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	sourceType := storage.SourceLocal
	if gitsource.IsGitURL(path) {
		sourceType = storage.SourceGit
	}
	id, err := db.InsertSource(path, sourceType)
	if err != nil {
		return nil, false, err
	}
	slog.Info("source added", "id", id, "type", sourceType, "path", path)
	return &storage.Source{ID: id, Path: path, Type: sourceType}, true, nil
}

// RunSync iterates over all sources and reconciles them. Git sources are
// cloned or pulled into reposDir first. A failing source is logged and
// recorded in the report; the remaining sources are still processed.
func RunSync(ctx context.Context, db *storage.DB, reposDir string) (*Report, error) {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	report := &Report{Sources: len(sources)}
	if len(sources) == 0 {
		slog.Info("no sources configured, add one with --add-source <path/or/url.git>")
		return report, nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		if source.Type == storage.SourceGit {
			localRepoPath, err := gitsource.LocalPath(reposDir, source.Path)
			if err != nil {
				report.Errors = append(report.Errors, err)
				slog.Error("error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, localRepoPath, io.Discard); err != nil {
				report.Errors = append(report.Errors, err)
				slog.Error("error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			source.Path = localRepoPath
		}

		reconcileLocalSource(db, source, report)
	}

	slog.Info("sync complete",
		"sources", report.Sources,
		"added", report.Added,
		"removed", report.Removed,
		"errors", len(report.Errors),
	)
	return report, nil
}

func reconcileLocalSource(db *storage.DB, source storage.Source, report *Report) {
	var parsed, added, removed int
	var errs []error
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		items, parseErr := deck.ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, item := range items {
			hash := deck.Hash(item)
			parsed++
			if found[hash] {
				continue
			}
			found[hash] = true

			existing, findErr := db.FindDeckItem(source.ID, hash)
			if findErr != nil {
				errs = append(errs, fmt.Errorf("db check for %s: %w", hash, findErr))
				continue
			}
			if existing != nil {
				continue
			}
			slog.Debug("new deck item found, inserting", "hash", hash, "kind", item.Kind)
			if _, insertErr := db.InsertDeckItem(item, hash, source.ID); insertErr != nil {
				errs = append(errs, fmt.Errorf("db insert for %s: %w", hash, insertErr))
				continue
			}
			added++
		}
		return nil
	})

	if walkErr != nil {
		report.Errors = append(report.Errors, fmt.Errorf("walking %s: %w", source.Path, walkErr))
		slog.Error("error walking directory", "path", source.Path, "error", walkErr)
		return
	}

	stored, err := db.GetDeckItems(source.ID)
	if err != nil {
		report.Errors = append(report.Errors, err)
		slog.Error("error getting items for source", "source_id", source.ID, "error", err)
		return
	}

	for _, di := range stored {
		if found[di.Hash] {
			continue
		}
		slog.Debug("orphaned deck item, deleting", "hash", di.Hash)
		if err := db.DeleteDeckItem(source.ID, di.Hash); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if err := db.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	report.Parsed += parsed
	report.Added += added
	report.Removed += removed
	report.Errors = append(report.Errors, errs...)

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed", parsed,
		"added", added,
		"orphaned_deleted", removed,
		"errors", len(errs),
	)
}
