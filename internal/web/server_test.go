package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/storage"
)

// lastRand always picks the last index, which makes every shuffle the
// identity and puts the answer first among the options.
type lastRand struct{}

func (lastRand) IntN(n int) int { return n - 1 }

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := NewServer(db, Options{
		Rand:     lastRand{},
		Now:      func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) },
		ReposDir: t.TempDir(),
	})
	return srv, db
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

var animals = [][2]string{
	{"kot", "cat"},
	{"pies", "dog"},
	{"ryba", "fish"},
	{"ptak", "bird"},
	{"koń", "horse"},
}

func addWords(t *testing.T, srv http.Handler) {
	t.Helper()
	for _, a := range animals {
		rec := do(t, srv, http.MethodPost, "/api/items/word", map[string]string{"source": a[0], "target": a[1]})
		expectStatus(t, rec, http.StatusCreated)
	}
}

func TestQuizFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	addWords(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/quiz/words", nil)
	expectStatus(t, rec, http.StatusCreated)
	state := decode[quizView](t, rec)
	if state.Total != len(animals) || state.State != "awaiting_answer" || state.Question == nil {
		t.Fatalf("unexpected initial state: %+v", state)
	}

	// Advancing before answering is illegal.
	expectStatus(t, do(t, srv, http.MethodPost, "/api/quiz/word/next", nil), http.StatusConflict)

	for i := 0; i < state.Total; i++ {
		rec = do(t, srv, http.MethodGet, "/api/quiz/word", nil)
		expectStatus(t, rec, http.StatusOK)
		current := decode[quizView](t, rec)
		if current.Index != i || len(current.Question.Options) != 4 {
			t.Fatalf("unexpected state at question %d: %+v", i, current)
		}

		choice := current.Question.Options[0]
		if i == 0 {
			choice = "definitely wrong"
		}
		rec = do(t, srv, http.MethodPost, "/api/quiz/word/answer", map[string]string{"choice": choice})
		expectStatus(t, rec, http.StatusOK)
		fb := decode[feedbackView](t, rec)
		if fb.Correct != (i != 0) || fb.Answered != i+1 {
			t.Errorf("unexpected feedback at question %d: %+v", i, fb)
		}

		// A second answer to the same question is illegal.
		expectStatus(t, do(t, srv, http.MethodPost, "/api/quiz/word/answer", map[string]string{"choice": choice}), http.StatusConflict)

		rec = do(t, srv, http.MethodPost, "/api/quiz/word/next", nil)
		expectStatus(t, rec, http.StatusOK)
	}

	final := decode[quizView](t, rec)
	if final.State != "finished" || final.Question != nil || final.Result == nil {
		t.Fatalf("unexpected final state: %+v", final)
	}
	if final.Result.Score != 4 || final.Result.Percent != 80 || final.Result.Message != "Good work! Keep practicing!" {
		t.Errorf("unexpected result: %+v", final.Result)
	}
	if len(final.Result.Missed) != 1 || final.Result.Missed[0].Source != "kot" {
		t.Errorf("Expected kot to be missed, got %+v", final.Result.Missed)
	}

	rec = do(t, srv, http.MethodGet, "/api/dashboard", nil)
	expectStatus(t, rec, http.StatusOK)
	dash := decode[dashboardView](t, rec)
	hardest := dash.Hardest[domain.Word]
	if len(hardest) != 1 || hardest[0].Source != "kot" || hardest[0].Count != 1 {
		t.Errorf("unexpected hardest words: %+v", hardest)
	}
	if dash.Counts[domain.Word] != 5 || dash.Counts[domain.Expression] != 0 {
		t.Errorf("unexpected counts: %+v", dash.Counts)
	}

	// A review quiz pads the single missed word up to the minimum.
	rec = do(t, srv, http.MethodPost, "/api/quiz/word?mode=review", nil)
	expectStatus(t, rec, http.StatusCreated)
	if review := decode[quizView](t, rec); review.Total != 5 {
		t.Errorf("Expected a padded review quiz of 5, got %d", review.Total)
	}
}

func TestQuizInsufficientData(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/quiz/expression", nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	body := decode[insufficientView](t, rec)
	if body.Count != 0 || body.Required != 5 {
		t.Errorf("unexpected body: %+v", body)
	}

	expectStatus(t, do(t, srv, http.MethodGet, "/api/quiz/expression", nil), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/quiz/word?mode=hard", nil), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/quiz/verbs", nil), http.StatusNotFound)
}

func TestItems(t *testing.T) {
	srv, _ := newTestServer(t)
	addWords(t, srv)

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing target", http.MethodPost, "/api/items/word", map[string]string{"source": "dom"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/items/word", map[string]string{"source": "dom", "target": "house", "level": "1"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/items/word", "{", http.StatusBadRequest},
		{"unknown kind", http.MethodGet, "/api/items/verbs", nil, http.StatusNotFound},
		{"bad id", http.MethodDelete, "/api/items/word/abc", nil, http.StatusBadRequest},
		{"missing item", http.MethodDelete, "/api/items/word/42", nil, http.StatusNotFound},
		{"put not allowed", http.MethodPut, "/api/items/word", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, do(t, srv, tc.method, tc.path, tc.body), tc.status)
		})
	}

	rec := do(t, srv, http.MethodGet, "/api/items/word?q=P", nil)
	expectStatus(t, rec, http.StatusOK)
	found := decode[[]itemView](t, rec)
	if len(found) != 2 || found[0].Source != "pies" || found[1].Source != "ptak" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	path := "/api/items/word/" + strconv.FormatInt(found[0].ID, 10)
	expectStatus(t, do(t, srv, http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodDelete, path, nil), http.StatusNotFound)

	rec = do(t, srv, http.MethodGet, "/api/items/words", nil)
	if all := decode[[]itemView](t, rec); len(all) != 4 {
		t.Errorf("Expected 4 words after delete, got %d", len(all))
	}
}

func TestNotes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/notes", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[notesBody](t, rec); got.Notes != "" {
		t.Errorf("Expected empty notes, got %q", got.Notes)
	}

	expectStatus(t, do(t, srv, http.MethodPut, "/api/notes", notesBody{Notes: "ćwiczyć codziennie"}), http.StatusOK)

	rec = do(t, srv, http.MethodGet, "/api/notes", nil)
	if got := decode[notesBody](t, rec); got.Notes != "ćwiczyć codziennie" {
		t.Errorf("unexpected notes %q", got.Notes)
	}
}

func TestExportImport(t *testing.T) {
	srv, _ := newTestServer(t)
	addWords(t, srv)
	expectStatus(t, do(t, srv, http.MethodPut, "/api/notes", notesBody{Notes: "hello"}), http.StatusOK)

	rec := do(t, srv, http.MethodGet, "/api/export", nil)
	expectStatus(t, rec, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "lexiquiz-data-2024-03-09.json") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	exported := rec.Body.String()

	rec = do(t, srv, http.MethodPost, "/api/import", `{"words": "nope", "expressions": []}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decode[errorResponse](t, rec); got.Error != "Invalid format: Missing or invalid words data" {
		t.Errorf("unexpected error message %q", got.Error)
	}

	rec = do(t, srv, http.MethodPost, "/api/import", `{"words": [], "expressions": [], "notes": "fresh"}`)
	expectStatus(t, rec, http.StatusNoContent)

	rec = do(t, srv, http.MethodGet, "/api/dashboard", nil)
	if dash := decode[dashboardView](t, rec); dash.Counts[domain.Word] != 0 {
		t.Errorf("Expected words to be replaced, got %+v", dash.Counts)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/import", exported), http.StatusNoContent)

	rec = do(t, srv, http.MethodGet, "/api/items/word", nil)
	if words := decode[[]itemView](t, rec); len(words) != len(animals) {
		t.Errorf("Expected %d words after restore, got %d", len(animals), len(words))
	}
	rec = do(t, srv, http.MethodGet, "/api/notes", nil)
	if got := decode[notesBody](t, rec); got.Notes != "hello" {
		t.Errorf("Expected notes to be restored, got %q", got.Notes)
	}
}

func TestImportDiscardsSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	addWords(t, srv)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/quiz/word", nil), http.StatusCreated)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/import", `{"words": [], "expressions": []}`), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/quiz/word", nil), http.StatusNotFound)
}

func TestSources(t *testing.T) {
	srv, _ := newTestServer(t)
	deckDir := t.TempDir()

	rec := do(t, srv, http.MethodPost, "/api/sources", map[string]string{"path": deckDir})
	expectStatus(t, rec, http.StatusCreated)
	src := decode[sourceView](t, rec)
	if src.Type != "local" || src.Path != deckDir {
		t.Errorf("unexpected source: %+v", src)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/sources", map[string]string{"path": deckDir}), http.StatusConflict)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/sources", map[string]string{"path": "  "}), http.StatusBadRequest)

	rec = do(t, srv, http.MethodPost, "/api/sync", nil)
	expectStatus(t, rec, http.StatusOK)
	if report := decode[syncView](t, rec); report.Sources != 1 || len(report.Errors) != 0 {
		t.Errorf("unexpected sync report: %+v", report)
	}

	rec = do(t, srv, http.MethodGet, "/api/sources", nil)
	expectStatus(t, rec, http.StatusOK)
	sources := decode[[]sourceView](t, rec)
	if len(sources) != 1 || sources[0].LastScanned == nil {
		t.Fatalf("Expected one scanned source, got %+v", sources)
	}

	path := "/api/sources/" + strconv.FormatInt(sources[0].ID, 10)
	expectStatus(t, do(t, srv, http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodDelete, path, nil), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/sources/x", nil), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/sync", nil), http.StatusMethodNotAllowed)
}
