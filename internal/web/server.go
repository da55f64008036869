// Package web exposes lexiquiz as a JSON API.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/lexiquiz/internal/catalog"
	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/quiz"
	"github.com/conorfennell/lexiquiz/internal/review"
	"github.com/conorfennell/lexiquiz/internal/storage"
	decksync "github.com/conorfennell/lexiquiz/internal/sync"
)

// maxImportSize bounds the body of an import request.
const maxImportSize = 32 << 20

// Options tunes a Server. Zero values select the defaults.
type Options struct {
	Quiz     quiz.Config
	Rand     quiz.Rand
	Now      func() time.Time
	ReposDir string
	Sync     *decksync.Runner
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	router    *http.ServeMux
	catalog   *catalog.Catalog
	tracker   *review.Tracker
	generator *quiz.Generator
	syncer    *decksync.Runner
	now       func() time.Time

	mu       sync.Mutex // guards generator and sessions
	sessions map[domain.Kind]*quiz.Session
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, opts Options) *Server {
	if opts.Quiz == (quiz.Config{}) {
		opts.Quiz = quiz.DefaultConfig()
	}
	if opts.Rand == nil {
		opts.Rand = quiz.NewRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReposDir == "" {
		opts.ReposDir = "repos"
	}
	if opts.Sync == nil {
		opts.Sync = decksync.NewRunner(db, opts.ReposDir)
	}

	s := &Server{
		db:        db,
		router:    http.NewServeMux(),
		catalog:   catalog.New(db),
		tracker:   review.NewTracker(db),
		generator: quiz.NewGenerator(opts.Quiz, opts.Rand),
		syncer:    opts.Sync,
		now:       opts.Now,
		sessions:  make(map[domain.Kind]*quiz.Session),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/api/dashboard", s.handleDashboard())

	s.router.HandleFunc("/api/items/", s.handleItems())
	s.router.HandleFunc("/api/quiz/", s.handleQuiz())
	s.router.HandleFunc("/api/notes", s.handleNotes())

	s.router.HandleFunc("/api/export", s.handleExport())
	s.router.HandleFunc("/api/import", s.handleImport())

	// Deck source management
	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// splitPath returns the path segments after prefix.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

type itemView struct {
	ID      int64  `json:"id"`
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Example string `json:"example,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func toItemView(it domain.LearningItem) itemView {
	return itemView{
		ID:      it.ID,
		Kind:    string(it.Kind),
		Source:  it.SourceText,
		Target:  it.TargetText,
		Example: it.Example,
		Notes:   it.Notes,
	}
}

type missView struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

func toMissViews(records []domain.MissRecord) []missView {
	out := make([]missView, 0, len(records))
	for _, r := range records {
		out = append(out, missView{ID: r.ItemID, Source: r.SourceText, Target: r.TargetText, Count: r.MissCount})
	}
	return out
}

type streakView struct {
	Streak     int        `json:"streak"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

type dashboardView struct {
	Counts  map[domain.Kind]int        `json:"counts"`
	Streak  streakView                 `json:"streak"`
	Hardest map[domain.Kind][]missView `json:"hardest"`
}

// handleDashboard reports item counts, the streak and the most missed
// items of each kind.
func (s *Server) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		counts, err := s.catalog.Counts()
		if err != nil {
			internalError(w, "error counting items", err)
			return
		}

		view := dashboardView{
			Counts:  counts,
			Hardest: make(map[domain.Kind][]missView, len(domain.Kinds)),
		}
		for _, kind := range domain.Kinds {
			hardest, err := s.tracker.Hardest(kind)
			if err != nil {
				internalError(w, "error loading miss records", err)
				return
			}
			view.Hardest[kind] = toMissViews(hardest)
		}

		state, err := s.db.LoadStreakState()
		if err != nil {
			internalError(w, "error loading streak", err)
			return
		}
		if state != nil {
			last := state.LastActive
			view.Streak = streakView{Streak: state.CurrentStreak, LastActive: &last}
		}

		writeJSON(w, http.StatusOK, view)
	}
}

// handleItems lists, adds and deletes the items of a kind.
func (s *Server) handleItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path, "/api/items/")
		if len(parts) == 0 || len(parts) > 2 {
			http.NotFound(w, r)
			return
		}
		kind, err := domain.ParseKind(parts[0])
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		if len(parts) == 2 {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w)
				return
			}
			s.deleteItem(w, kind, parts[1])
			return
		}

		switch r.Method {
		case http.MethodGet:
			items, err := s.catalog.List(kind, r.URL.Query().Get("q"))
			if err != nil {
				internalError(w, "error listing items", err)
				return
			}
			views := make([]itemView, 0, len(items))
			for _, it := range items {
				views = append(views, toItemView(it))
			}
			writeJSON(w, http.StatusOK, views)
		case http.MethodPost:
			var in catalog.ItemInput
			if err := decodeBody(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			item, err := s.catalog.Add(kind, in)
			if errors.Is(err, catalog.ErrInvalid) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err != nil {
				internalError(w, "error adding item", err)
				return
			}
			writeJSON(w, http.StatusCreated, toItemView(item))
		default:
			methodNotAllowed(w)
		}
	}
}

func (s *Server) deleteItem(w http.ResponseWriter, kind domain.Kind, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	err = s.catalog.Delete(kind, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, "error deleting item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type notesBody struct {
	Notes string `json:"notes"`
}

// handleNotes reads and replaces the free-form notes.
func (s *Server) handleNotes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			notes, err := s.db.LoadNotes()
			if err != nil {
				internalError(w, "error loading notes", err)
				return
			}
			writeJSON(w, http.StatusOK, notesBody{Notes: notes})
		case http.MethodPut:
			var body notesBody
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			if err := s.db.SaveNotes(body.Notes); err != nil {
				internalError(w, "error saving notes", err)
				return
			}
			writeJSON(w, http.StatusOK, body)
		default:
			methodNotAllowed(w)
		}
	}
}

type sourceView struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"lastScanned,omitempty"`
}

func toSourceView(src storage.Source) sourceView {
	v := sourceView{ID: src.ID, Path: src.Path, Type: src.Type}
	if src.LastScanned.Valid {
		t := src.LastScanned.Time
		v.LastScanned = &t
	}
	return v
}

type syncView struct {
	Sources int      `json:"sources"`
	Parsed  int      `json:"parsed"`
	Added   int      `json:"added"`
	Removed int      `json:"removed"`
	Errors  []string `json:"errors"`
}

// handlePostSync runs a sync in the foreground and reports the outcome.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		report, err := s.syncer.Run(r.Context())
		if err != nil {
			internalError(w, "error running sync", err)
			return
		}

		view := syncView{
			Sources: report.Sources,
			Parsed:  report.Parsed,
			Added:   report.Added,
			Removed: report.Removed,
			Errors:  make([]string, 0, len(report.Errors)),
		}
		for _, e := range report.Errors {
			view.Errors = append(view.Errors, e.Error())
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// handleSources handles both GET and POST for the source list.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			methodNotAllowed(w)
		}
	}
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		internalError(w, "error getting sources", err)
		return
	}
	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, toSourceView(src))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	path := strings.TrimSpace(body.Path)
	if path == "" {
		writeError(w, http.StatusBadRequest, "Path cannot be empty")
		return
	}

	src, created, err := decksync.AddSource(s.db, path)
	if err != nil {
		internalError(w, "error inserting new source", err)
		return
	}
	if !created {
		writeError(w, http.StatusConflict, "Source already exists")
		return
	}
	writeJSON(w, http.StatusCreated, toSourceView(*src))
}

// handleDeleteSource deletes a source together with its items.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid source ID")
			return
		}

		deleted, err := s.db.DeleteSource(id)
		if err != nil {
			internalError(w, "error deleting source", err)
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, "Source not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// readBody reads at most maxImportSize bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
}
