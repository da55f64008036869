// Package backup exports and imports the whole data set as one JSON document.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

// Store reads and atomically replaces the complete data set.
type Store interface {
	Snapshot() (domain.Snapshot, error)
	Restore(snap domain.Snapshot) error
}

// ValidationError rejects a malformed import document.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Item is a learning item in a document.
type Item struct {
	ID      int64  `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Example string `json:"example,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// UnmarshalJSON also accepts the polish and english field names written by
// older backups.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var aux struct {
		plain
		Polish  string `json:"polish"`
		English string `json:"english"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*it = Item(aux.plain)
	if it.Source == "" {
		it.Source = aux.Polish
	}
	if it.Target == "" {
		it.Target = aux.English
	}
	return nil
}

// Miss is a miss record in a document.
type Miss struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// UnmarshalJSON accepts the same legacy field names as Item.
func (m *Miss) UnmarshalJSON(data []byte) error {
	type plain Miss
	var aux struct {
		plain
		Polish  string `json:"polish"`
		English string `json:"english"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Miss(aux.plain)
	if m.Source == "" {
		m.Source = aux.Polish
	}
	if m.Target == "" {
		m.Target = aux.English
	}
	return nil
}

// Streak is the streak in a document. LastUsed is an RFC 3339 timestamp.
type Streak struct {
	Streak   int     `json:"streak"`
	LastUsed *string `json:"lastUsed"`
}

// WrongAnswers holds the miss records of both kinds.
type WrongAnswers struct {
	Words       []Miss `json:"words"`
	Expressions []Miss `json:"expressions"`
}

// Document is the portable backup format.
type Document struct {
	Words        []Item        `json:"words"`
	Expressions  []Item        `json:"expressions"`
	Streak       *Streak       `json:"streak"`
	WrongAnswers *WrongAnswers `json:"wrongAnswers"`
	Notes        string        `json:"notes"`
}

// FileName is the suggested name of a backup taken at now.
func FileName(now time.Time) string {
	return "lexiquiz-data-" + now.Format(time.DateOnly) + ".json"
}

// Export reads the data set from store into a document.
func Export(store Store) (Document, error) {
	snap, err := store.Snapshot()
	if err != nil {
		return Document{}, fmt.Errorf("failed to read data for export: %w", err)
	}

	doc := Document{
		Words:       fromItems(snap.Words),
		Expressions: fromItems(snap.Expressions),
		WrongAnswers: &WrongAnswers{
			Words:       fromMisses(snap.Misses[domain.Word]),
			Expressions: fromMisses(snap.Misses[domain.Expression]),
		},
		Notes: snap.Notes,
	}
	if snap.Streak != nil {
		last := snap.Streak.LastActive.Format(time.RFC3339Nano)
		doc.Streak = &Streak{Streak: snap.Streak.CurrentStreak, LastUsed: &last}
	}
	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import validates data and replaces the stored data set with it. A
// document that fails validation changes nothing and yields a
// *ValidationError.
func Import(store Store, data []byte) error {
	snap, err := Parse(data)
	if err != nil {
		return err
	}
	if err := store.Restore(snap); err != nil {
		return fmt.Errorf("failed to restore data: %w", err)
	}
	slog.Info("data imported",
		"words", len(snap.Words),
		"expressions", len(snap.Expressions),
		"word_misses", len(snap.Misses[domain.Word]),
		"expression_misses", len(snap.Misses[domain.Expression]),
	)
	return nil
}

// Parse validates a document and converts it to a snapshot.
func Parse(data []byte) (domain.Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Snapshot{}, invalid("Invalid format: %v", err)
	}
	for _, field := range []string{"words", "expressions"} {
		if !isArray(raw[field]) {
			return domain.Snapshot{}, invalid("Invalid format: Missing or invalid %s data", field)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Snapshot{}, invalid("Invalid format: %v", err)
	}

	snap := domain.Snapshot{
		Misses: make(map[domain.Kind][]domain.MissRecord),
		Notes:  doc.Notes,
	}

	var err error
	if snap.Words, err = toItems(domain.Word, doc.Words); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Expressions, err = toItems(domain.Expression, doc.Expressions); err != nil {
		return domain.Snapshot{}, err
	}

	if doc.WrongAnswers != nil {
		if snap.Misses[domain.Word], err = toMisses(domain.Word, doc.WrongAnswers.Words); err != nil {
			return domain.Snapshot{}, err
		}
		if snap.Misses[domain.Expression], err = toMisses(domain.Expression, doc.WrongAnswers.Expressions); err != nil {
			return domain.Snapshot{}, err
		}
	}

	if doc.Streak != nil {
		if doc.Streak.Streak < 0 {
			return domain.Snapshot{}, invalid("Invalid format: streak must not be negative")
		}
		if doc.Streak.LastUsed == nil {
			if doc.Streak.Streak > 0 {
				return domain.Snapshot{}, invalid("Invalid format: streak %d is missing lastUsed", doc.Streak.Streak)
			}
			return snap, nil // a zero streak without a date is no streak
		}
		last, err := time.Parse(time.RFC3339Nano, *doc.Streak.LastUsed)
		if err != nil {
			return domain.Snapshot{}, invalid("Invalid format: invalid streak date %q", *doc.Streak.LastUsed)
		}
		snap.Streak = &domain.StreakState{CurrentStreak: doc.Streak.Streak, LastActive: last}
	}

	return snap, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func toItems(kind domain.Kind, in []Item) ([]domain.LearningItem, error) {
	seen := make(map[int64]bool, len(in))
	var out []domain.LearningItem
	for _, it := range in {
		if it.ID <= 0 {
			return nil, invalid("Invalid format: %s must have positive ids", kind.Collection())
		}
		if seen[it.ID] {
			return nil, invalid("Invalid format: duplicate %s id %d", string(kind), it.ID)
		}
		source, target := strings.TrimSpace(it.Source), strings.TrimSpace(it.Target)
		if source == "" || target == "" {
			return nil, invalid("Invalid format: %s %d must have source and target text", string(kind), it.ID)
		}
		seen[it.ID] = true
		out = append(out, domain.LearningItem{
			ID:         it.ID,
			Kind:       kind,
			SourceText: source,
			TargetText: target,
			Example:    it.Example,
			Notes:      it.Notes,
		})
	}
	return out, nil
}

func toMisses(kind domain.Kind, in []Miss) ([]domain.MissRecord, error) {
	seen := make(map[int64]bool, len(in))
	var out []domain.MissRecord
	for _, m := range in {
		if m.Count < 1 {
			return nil, invalid("Invalid format: %s wrong answer %d must have a count of at least 1", string(kind), m.ID)
		}
		if seen[m.ID] {
			return nil, invalid("Invalid format: duplicate %s wrong answer id %d", string(kind), m.ID)
		}
		seen[m.ID] = true
		out = append(out, domain.MissRecord{
			ItemID:     m.ID,
			SourceText: m.Source,
			TargetText: m.Target,
			MissCount:  m.Count,
		})
	}
	return out, nil
}

func fromItems(in []domain.LearningItem) []Item {
	out := make([]Item, 0, len(in))
	for _, it := range in {
		out = append(out, Item{
			ID:      it.ID,
			Source:  it.SourceText,
			Target:  it.TargetText,
			Example: it.Example,
			Notes:   it.Notes,
		})
	}
	return out
}

func fromMisses(in []domain.MissRecord) []Miss {
	out := make([]Miss, 0, len(in))
	for _, m := range in {
		out = append(out, Miss{ID: m.ItemID, Source: m.SourceText, Target: m.TargetText, Count: m.MissCount})
	}
	return out
}
