package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/storage"
)

func writeDeck(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write deck file: %v", err)
	}
}

func TestRunSyncReconcilesLocalSource(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	deckDir := t.TempDir()
	writeDeck(t, deckDir, "animals.md", "S: kot\nT: cat\n---\nS: pies\nT: dog\n")
	writeDeck(t, deckDir, "phrases.md", "K: expression\nS: dzień dobry\nT: good morning\n")
	writeDeck(t, deckDir, "README.txt", "S: ignored\nT: ignored\n")

	sourceID, err := db.InsertSource(deckDir, storage.SourceLocal)
	if err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}

	ctx := context.Background()
	reposDir := filepath.Join(t.TempDir(), "repos")

	report, err := RunSync(ctx, db, reposDir)
	if err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	if report.Added != 3 || report.Removed != 0 || len(report.Errors) != 0 {
		t.Fatalf("unexpected first report: %+v", report)
	}

	words, _ := db.ListItems(domain.Word)
	expressions, _ := db.ListItems(domain.Expression)
	if len(words) != 2 || len(expressions) != 1 {
		t.Fatalf("expected 2 words and 1 expression, got %d and %d", len(words), len(expressions))
	}

	// A second run with no changes is a no-op.
	report, err = RunSync(ctx, db, reposDir)
	if err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	if report.Added != 0 || report.Removed != 0 {
		t.Errorf("expected an idempotent sync, got %+v", report)
	}

	// Editing an entry replaces it; dropping one removes it.
	writeDeck(t, deckDir, "animals.md", "S: kot\nT: a cat\n")
	report, err = RunSync(ctx, db, reposDir)
	if err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	if report.Added != 1 || report.Removed != 2 {
		t.Errorf("expected 1 added and 2 removed, got %+v", report)
	}

	words, _ = db.ListItems(domain.Word)
	if len(words) != 1 || words[0].TargetText != "a cat" {
		t.Errorf("unexpected words after edit: %+v", words)
	}

	sources, err := db.GetAllSources()
	if err != nil {
		t.Fatalf("GetAllSources() returned an unexpected error: %v", err)
	}
	if len(sources) != 1 || sources[0].ID != sourceID || !sources[0].LastScanned.Valid {
		t.Errorf("expected last_scanned to be set, got %+v", sources)
	}
}

func TestRunSyncLeavesManualItemsAlone(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.AddItem(domain.Word, domain.LearningItem{SourceText: "dom", TargetText: "house"}); err != nil {
		t.Fatalf("AddItem() returned an unexpected error: %v", err)
	}

	deckDir := t.TempDir()
	writeDeck(t, deckDir, "deck.md", "S: kot\nT: cat\n")
	if _, err := db.InsertSource(deckDir, storage.SourceLocal); err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}

	if _, err := RunSync(context.Background(), db, t.TempDir()); err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	if err := os.Remove(filepath.Join(deckDir, "deck.md")); err != nil {
		t.Fatal(err)
	}
	if _, err := RunSync(context.Background(), db, t.TempDir()); err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}

	words, _ := db.ListItems(domain.Word)
	if len(words) != 1 || words[0].SourceText != "dom" {
		t.Errorf("expected only the manual item to remain, got %+v", words)
	}
}

func TestRunSyncWithoutSources(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	report, err := RunSync(context.Background(), db, t.TempDir())
	if err != nil {
		t.Fatalf("RunSync() returned an unexpected error: %v", err)
	}
	if report.Sources != 0 || report.Added != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestRunnerSerialisesSyncs(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	deckDir := t.TempDir()
	writeDeck(t, deckDir, "deck.md", "S: kot\nT: cat\n---\nS: pies\nT: dog\n")
	if _, err := db.InsertSource(deckDir, storage.SourceLocal); err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}

	runner := NewRunner(db, t.TempDir())
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := runner.Run(context.Background())
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}
	}

	words, _ := db.ListItems(domain.Word)
	if len(words) != 2 {
		t.Errorf("Expected 2 words after concurrent syncs, got %d", len(words))
	}
}

func TestAddSource(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	testCases := []struct {
		path        string
		wantType    string
		wantCreated bool
	}{
		{path: "/home/me/decks", wantType: storage.SourceLocal, wantCreated: true},
		{path: "https://github.com/someone/decks.git", wantType: storage.SourceGit, wantCreated: true},
		{path: "/home/me/decks", wantType: storage.SourceLocal, wantCreated: false},
	}

	for _, tc := range testCases {
		src, created, err := AddSource(db, tc.path)
		if err != nil {
			t.Fatalf("AddSource(%q) returned an unexpected error: %v", tc.path, err)
		}
		if created != tc.wantCreated || src.Type != tc.wantType || src.Path != tc.path {
			t.Errorf("AddSource(%q) = %+v, %v", tc.path, src, created)
		}
	}

	sources, _ := db.GetAllSources()
	if len(sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(sources))
	}
}
