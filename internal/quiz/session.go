package quiz

import (
	"errors"
	"fmt"
	"math"

	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/normalize"
)

var (
	// ErrNotAwaitingAnswer rejects an answer for a question that was already answered.
	ErrNotAwaitingAnswer = errors.New("quiz: not awaiting an answer")
	// ErrNotAnswered rejects advancing past an unanswered question or a finished quiz.
	ErrNotAnswered = errors.New("quiz: current question has not been answered")
	// ErrNotFinished rejects a record retry on a quiz still in progress.
	ErrNotFinished = errors.New("quiz: not finished")
)

// State is the position of a session in its lifecycle.
type State int

const (
	AwaitingAnswer State = iota
	Answered
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingAnswer:
		return "awaiting_answer"
	case Answered:
		return "answered"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MissRecorder receives the missed items of a finished quiz.
type MissRecorder interface {
	RecordMisses(kind domain.Kind, missed []domain.MissedItem) ([]domain.MissRecord, error)
}

// Feedback describes the outcome of a submitted answer.
type Feedback struct {
	Correct  bool
	Answer   string
	Score    int
	Answered int
}

// Result is the report of a finished quiz.
type Result struct {
	Score   int
	Total   int
	Percent int
	Missed  []domain.MissedItem
	Message string
}

// Session drives a single quiz run. It is not safe for concurrent use.
type Session struct {
	kind      domain.Kind
	questions []Question
	recorder  MissRecorder

	index  int
	state  State
	score  int
	missed []domain.MissedItem

	// pending is set while the recorder has not accepted the missed list.
	pending bool
}

// NewSession starts a quiz over questions. recorder may be nil.
func NewSession(kind domain.Kind, questions []Question, recorder MissRecorder) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrInsufficientData
	}
	return &Session{
		kind:      kind,
		questions: questions,
		recorder:  recorder,
		state:     AwaitingAnswer,
	}, nil
}

func (s *Session) Kind() domain.Kind { return s.kind }
func (s *Session) State() State      { return s.state }
func (s *Session) Len() int          { return len(s.questions) }
func (s *Session) Score() int        { return s.score }

// Index is the current question index; it equals Len once finished.
func (s *Session) Index() int { return s.index }

// Current returns the question being asked, or false once finished.
func (s *Session) Current() (Question, bool) {
	if s.state == Finished {
		return Question{}, false
	}
	return s.questions[s.index], true
}

// SubmitAnswer scores choice against the current question.
func (s *Session) SubmitAnswer(choice string) (Feedback, error) {
	if s.state != AwaitingAnswer {
		return Feedback{}, ErrNotAwaitingAnswer
	}

	q := s.questions[s.index]
	correct := normalize.Equal(choice, q.Answer)
	if correct {
		s.score++
	} else {
		s.missed = append(s.missed, domain.MissedItem{
			ItemID:     q.ItemID,
			SourceText: q.SourceText,
			TargetText: q.TargetText,
		})
	}
	s.state = Answered

	return Feedback{
		Correct:  correct,
		Answer:   q.Answer,
		Score:    s.score,
		Answered: s.index + 1,
	}, nil
}

// Advance moves to the next question, or finishes the quiz after the last
// one. Finishing hands the missed items to the recorder. If the recorder
// fails the session still finishes and the misses stay pending until
// RetryRecord succeeds.
func (s *Session) Advance() error {
	if s.state != Answered {
		return ErrNotAnswered
	}

	if s.index+1 < len(s.questions) {
		s.index++
		s.state = AwaitingAnswer
		return nil
	}

	s.index = len(s.questions)
	s.state = Finished

	if s.recorder == nil || len(s.missed) == 0 {
		return nil
	}
	s.pending = true
	return s.record()
}

// Pending reports whether a finished session holds misses the recorder has
// not accepted yet.
func (s *Session) Pending() bool { return s.pending }

// RetryRecord resends the missed items after a failed recording. It is a
// no-op once they have been recorded.
func (s *Session) RetryRecord() error {
	if s.state != Finished {
		return ErrNotFinished
	}
	if !s.pending {
		return nil
	}
	return s.record()
}

func (s *Session) record() error {
	if _, err := s.recorder.RecordMisses(s.kind, s.Missed()); err != nil {
		return fmt.Errorf("failed to record misses: %w", err)
	}
	s.pending = false
	return nil
}

// Missed returns a copy of the items answered incorrectly so far.
func (s *Session) Missed() []domain.MissedItem {
	out := make([]domain.MissedItem, len(s.missed))
	copy(out, s.missed)
	return out
}

// Result returns the final report once the session is finished.
func (s *Session) Result() (Result, bool) {
	if s.state != Finished {
		return Result{}, false
	}
	total := len(s.questions)
	return Result{
		Score:   s.score,
		Total:   total,
		Percent: Percent(s.score, total),
		Missed:  s.Missed(),
		Message: Message(s.score, total),
	}, true
}

// Percent returns score/total as a rounded percentage.
func Percent(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// Message is the encouragement shown with a final score.
func Message(score, total int) string {
	ratio := float64(score) / float64(total)
	switch {
	case score == total:
		return "Perfect! You got all questions right!"
	case ratio > 0.8:
		return "Great job! Nearly perfect!"
	case ratio > 0.6:
		return "Good work! Keep practicing!"
	default:
		return "Keep studying! You can improve your score!"
	}
}
