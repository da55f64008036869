package web

import (
	"errors"
	"net/http"

	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/quiz"
)

type questionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type resultView struct {
	Score   int        `json:"score"`
	Total   int        `json:"total"`
	Percent int        `json:"percent"`
	Message string     `json:"message"`
	Missed  []missView `json:"missed"`
}

type quizView struct {
	Kind     domain.Kind   `json:"kind"`
	State    string        `json:"state"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Score    int           `json:"score"`
	Question *questionView `json:"question,omitempty"`
	Result   *resultView   `json:"result,omitempty"`
}

type feedbackView struct {
	Correct  bool   `json:"correct"`
	Answer   string `json:"answer"`
	Score    int    `json:"score"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}

type insufficientView struct {
	Error    string `json:"error"`
	Count    int    `json:"count"`
	Required int    `json:"required"`
}

func toQuizView(sess *quiz.Session) quizView {
	v := quizView{
		Kind:  sess.Kind(),
		State: sess.State().String(),
		Index: sess.Index(),
		Total: sess.Len(),
		Score: sess.Score(),
	}
	if q, ok := sess.Current(); ok {
		v.Question = &questionView{Prompt: q.Prompt, Options: q.Options}
	}
	if res, ok := sess.Result(); ok {
		missed := make([]missView, 0, len(res.Missed))
		for _, m := range res.Missed {
			missed = append(missed, missView{ID: m.ItemID, Source: m.SourceText, Target: m.TargetText, Count: 1})
		}
		v.Result = &resultView{
			Score:   res.Score,
			Total:   res.Total,
			Percent: res.Percent,
			Message: res.Message,
			Missed:  missed,
		}
	}
	return v
}

// handleQuiz routes /api/quiz/{kind}[/answer|/next].
func (s *Server) handleQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path, "/api/quiz/")
		if len(parts) == 0 || len(parts) > 2 {
			http.NotFound(w, r)
			return
		}
		kind, err := domain.ParseKind(parts[0])
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if len(parts) == 1 {
			switch r.Method {
			case http.MethodGet:
				s.getQuiz(w, kind)
			case http.MethodPost:
				s.startQuiz(w, r, kind)
			default:
				methodNotAllowed(w)
			}
			return
		}

		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		switch parts[1] {
		case "answer":
			s.answerQuiz(w, r, kind)
		case "next":
			s.advanceQuiz(w, kind)
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) getQuiz(w http.ResponseWriter, kind domain.Kind) {
	sess, ok := s.sessions[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "No quiz in progress")
		return
	}
	writeJSON(w, http.StatusOK, toQuizView(sess))
}

// startQuiz builds a new quiz for kind, replacing any session in progress.
func (s *Server) startQuiz(w http.ResponseWriter, r *http.Request, kind domain.Kind) {
	mode, err := quiz.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.db.ListItems(kind)
	if err != nil {
		internalError(w, "error listing items", err)
		return
	}
	var misses []domain.MissRecord
	if mode == quiz.Review {
		if misses, err = s.db.ListMissRecords(kind); err != nil {
			internalError(w, "error loading miss records", err)
			return
		}
	}

	questions, err := s.generator.Generate(items, mode, misses)
	if errors.Is(err, quiz.ErrInsufficientData) {
		writeJSON(w, http.StatusUnprocessableEntity, insufficientView{
			Error:    err.Error(),
			Count:    len(items),
			Required: s.generator.Config().MinItems,
		})
		return
	}
	if err != nil {
		internalError(w, "error generating quiz", err)
		return
	}

	sess, err := quiz.NewSession(kind, questions, s.tracker)
	if err != nil {
		internalError(w, "error starting quiz", err)
		return
	}
	s.sessions[kind] = sess
	writeJSON(w, http.StatusCreated, toQuizView(sess))
}

func (s *Server) answerQuiz(w http.ResponseWriter, r *http.Request, kind domain.Kind) {
	sess, ok := s.sessions[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "No quiz in progress")
		return
	}

	var body struct {
		Choice string `json:"choice"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fb, err := sess.SubmitAnswer(body.Choice)
	if errors.Is(err, quiz.ErrNotAwaitingAnswer) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		internalError(w, "error submitting answer", err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackView{
		Correct:  fb.Correct,
		Answer:   fb.Answer,
		Score:    fb.Score,
		Answered: fb.Answered,
		Total:    sess.Len(),
	})
}

func (s *Server) advanceQuiz(w http.ResponseWriter, kind domain.Kind) {
	sess, ok := s.sessions[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "No quiz in progress")
		return
	}

	var err error
	if sess.State() == quiz.Finished && sess.Pending() {
		err = sess.RetryRecord()
	} else {
		err = sess.Advance()
	}
	if errors.Is(err, quiz.ErrNotAnswered) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		internalError(w, "error finishing quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizView(sess))
}
