package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/conorfennell/lexiquiz/internal/backup"
	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/quiz"
)

// handleExport sends the whole data set as a JSON attachment.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		doc, err := backup.Export(s.db)
		if err != nil {
			internalError(w, "error exporting data", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName(s.now())+`"`)
		if err := backup.Write(w, doc); err != nil {
			slog.Warn("failed to write export", "error", err)
		}
	}
}

// handleImport replaces the data set with the posted document. Quizzes in
// progress are discarded.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		data, err := readBody(w, r)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Import file too large")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}

		err = backup.Import(s.db, data)
		var verr *backup.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		if err != nil {
			internalError(w, "error importing data", err)
			return
		}

		s.mu.Lock()
		s.sessions = make(map[domain.Kind]*quiz.Session)
		s.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}
}
