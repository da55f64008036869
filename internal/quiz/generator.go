package quiz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/normalize"
)

// ErrInsufficientData is returned when the pool is too small to build a quiz.
var ErrInsufficientData = errors.New("quiz: not enough items to build a quiz")

// distractorCount is the number of wrong options per question.
const distractorCount = 3

// Mode selects which items make up a quiz.
type Mode string

const (
	Standard Mode = "standard"
	All      Mode = "all"
	Review   Mode = "review"
)

// ParseMode parses a mode name. The empty string selects Standard.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", Standard:
		return Standard, nil
	case All, Review:
		return m, nil
	}
	return "", fmt.Errorf("unknown quiz mode %q", s)
}

// Direction decides which side of an item is the prompt.
type Direction string

const (
	// Forward prompts with the source text and expects the target text.
	Forward Direction = "forward"
	// Reverse prompts with the target text and expects the source text.
	Reverse Direction = "reverse"
	// Mixed flips a fair coin per question.
	Mixed Direction = "mixed"
)

// ParseDirection parses a direction name. The empty string selects Forward.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "", Forward:
		return Forward, nil
	case Reverse, Mixed:
		return d, nil
	}
	return "", fmt.Errorf("unknown quiz direction %q", s)
}

// Config holds the generator policy.
type Config struct {
	PageSize  int       // question cap in Standard mode
	MinItems  int       // smallest pool a quiz is built from; at least distractorCount+1
	Direction Direction // prompt/answer orientation
}

// DefaultConfig returns the standard quiz policy.
func DefaultConfig() Config {
	return Config{
		PageSize:  20,
		MinItems:  5,
		Direction: Forward,
	}
}

// Question is one multiple-choice prompt.
type Question struct {
	ItemID      int64
	SourceText  string
	TargetText  string
	Prompt      string
	Answer      string
	Distractors []string
	Options     []string
}

// Generator builds quizzes from an item pool.
type Generator struct {
	cfg Config
	rnd Rand
}

// NewGenerator returns a generator. MinItems is raised to the number of
// options per question when configured lower.
func NewGenerator(cfg Config, rnd Rand) *Generator {
	if cfg.MinItems < distractorCount+1 {
		cfg.MinItems = distractorCount + 1
	}
	if cfg.Direction == "" {
		cfg.Direction = Forward
	}
	return &Generator{cfg: cfg, rnd: rnd}
}

// Config returns the effective policy.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate selects items according to mode and builds one question per
// selected item. items must all be of the same kind.
func (g *Generator) Generate(items []domain.LearningItem, mode Mode, misses []domain.MissRecord) ([]Question, error) {
	if len(items) < g.cfg.MinItems {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(items), g.cfg.MinItems)
	}

	selected := g.selectItems(items, mode, misses)

	questions := make([]Question, 0, len(selected))
	for _, item := range selected {
		q, err := g.buildQuestion(item, items)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (g *Generator) selectItems(items []domain.LearningItem, mode Mode, misses []domain.MissRecord) []domain.LearningItem {
	switch mode {
	case All:
		return shuffled(g.rnd, items)
	case Review:
		return g.selectReview(items, misses)
	default:
		pool := shuffled(g.rnd, items)
		if g.cfg.PageSize > 0 && len(pool) > g.cfg.PageSize {
			pool = pool[:g.cfg.PageSize]
		}
		return pool
	}
}

// selectReview resolves miss records against the live pool and pads short
// selections with random other items. Only an empty miss list falls back to
// All; stale records still yield a padded review of MinItems.
func (g *Generator) selectReview(items []domain.LearningItem, misses []domain.MissRecord) []domain.LearningItem {
	byID := make(map[int64]domain.LearningItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	included := make(map[int64]bool)
	var selected []domain.LearningItem
	for _, rec := range misses {
		item, ok := byID[rec.ItemID]
		if !ok || included[item.ID] {
			continue // stale or repeated reference
		}
		included[item.ID] = true
		selected = append(selected, item)
	}

	if len(misses) == 0 {
		return shuffled(g.rnd, items)
	}

	if len(selected) < g.cfg.MinItems {
		var others []domain.LearningItem
		for _, item := range items {
			if !included[item.ID] {
				others = append(others, item)
			}
		}
		shuffle(g.rnd, others)
		need := g.cfg.MinItems - len(selected)
		if need > len(others) {
			need = len(others)
		}
		selected = append(selected, others[:need]...)
	}

	shuffle(g.rnd, selected)
	return selected
}

func (g *Generator) buildQuestion(item domain.LearningItem, pool []domain.LearningItem) (Question, error) {
	reverse := g.cfg.Direction == Reverse || (g.cfg.Direction == Mixed && g.rnd.IntN(2) == 1)
	side := func(it domain.LearningItem) (prompt, answer string) {
		if reverse {
			return it.TargetText, it.SourceText
		}
		return it.SourceText, it.TargetText
	}

	prompt, answer := side(item)

	seen := map[string]bool{normalize.Text(answer): true}
	distractors := make([]string, 0, distractorCount)
	for _, other := range shuffled(g.rnd, pool) {
		if len(distractors) == distractorCount {
			break
		}
		if other.ID == item.ID {
			continue
		}
		_, text := side(other)
		key := normalize.Text(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		distractors = append(distractors, text)
	}
	if len(distractors) < distractorCount {
		return Question{}, fmt.Errorf("%w: only %d distinct distractors for item %d", ErrInsufficientData, len(distractors), item.ID)
	}

	options := make([]string, 0, distractorCount+1)
	options = append(options, answer)
	options = append(options, distractors...)
	shuffle(g.rnd, options)

	return Question{
		ItemID:      item.ID,
		SourceText:  item.SourceText,
		TargetText:  item.TargetText,
		Prompt:      prompt,
		Answer:      answer,
		Distractors: distractors,
		Options:     options,
	}, nil
}
