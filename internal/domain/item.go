package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind is one of the two parallel item collections.
type Kind string

const (
	Word       Kind = "word"
	Expression Kind = "expression"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Word, Expression}

// ParseKind accepts the singular or plural collection name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "word", "words":
		return Word, nil
	case "expression", "expressions":
		return Expression, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Collection returns the plural name used in backup documents and URLs.
func (k Kind) Collection() string {
	return string(k) + "s"
}

// LearningItem is a single source/target term pair.
type LearningItem struct {
	ID         int64
	Kind       Kind
	SourceText string
	TargetText string
	Example    string
	Notes      string
}

// MissedItem is one incorrect answer recorded during a quiz.
type MissedItem struct {
	ItemID     int64
	SourceText string
	TargetText string
}

// MissRecord counts how often an item has been answered incorrectly.
// MissCount is always at least 1.
type MissRecord struct {
	ItemID     int64
	SourceText string
	TargetText string
	MissCount  int
}

// StreakState is the consecutive-day usage counter.
type StreakState struct {
	CurrentStreak int
	LastActive    time.Time
}

// Snapshot is the complete data set of the single local user.
type Snapshot struct {
	Words       []LearningItem
	Expressions []LearningItem
	Misses      map[Kind][]MissRecord
	Streak      *StreakState
	Notes       string
}

// Items returns the collection of the given kind.
func (s *Snapshot) Items(kind Kind) []LearningItem {
	if kind == Expression {
		return s.Expressions
	}
	return s.Words
}
