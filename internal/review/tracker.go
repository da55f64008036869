// Package review keeps per-kind counts of incorrectly answered items. The
// counts rank items for review-mode quizzes.
package review

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

// DashboardSize is the number of hardest items shown per kind.
const DashboardSize = 3

// RecordMisses returns existing updated with missed: known items get their
// count incremented, unknown items are added with a count of 1. The result
// is sorted by descending count. Records with equal counts keep their prior
// relative order and new records follow older ones; callers must not rely
// on tie order beyond that. Neither input is modified.
func RecordMisses(existing []domain.MissRecord, missed []domain.MissedItem) []domain.MissRecord {
	records := make([]domain.MissRecord, len(existing), len(existing)+len(missed))
	copy(records, existing)

	index := make(map[int64]int, len(records))
	for i, r := range records {
		index[r.ItemID] = i
	}

	for _, m := range missed {
		if i, ok := index[m.ItemID]; ok {
			records[i].MissCount++
			continue
		}
		index[m.ItemID] = len(records)
		records = append(records, domain.MissRecord{
			ItemID:     m.ItemID,
			SourceText: m.SourceText,
			TargetText: m.TargetText,
			MissCount:  1,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].MissCount > records[j].MissCount
	})
	return records
}

// Hardest returns at most n of the highest-ranked records.
func Hardest(records []domain.MissRecord, n int) []domain.MissRecord {
	if len(records) > n {
		records = records[:n]
	}
	out := make([]domain.MissRecord, len(records))
	copy(out, records)
	return out
}

// Store persists miss records per kind.
type Store interface {
	ListMissRecords(kind domain.Kind) ([]domain.MissRecord, error)
	PersistMissRecords(kind domain.Kind, records []domain.MissRecord) error
}

// Tracker applies RecordMisses against a Store.
type Tracker struct {
	store Store
}

// NewTracker returns a tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// RecordMisses loads the records of kind, applies missed and persists the
// result.
func (t *Tracker) RecordMisses(kind domain.Kind, missed []domain.MissedItem) ([]domain.MissRecord, error) {
	existing, err := t.store.ListMissRecords(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s miss records: %w", kind, err)
	}

	records := RecordMisses(existing, missed)
	if err := t.store.PersistMissRecords(kind, records); err != nil {
		return nil, fmt.Errorf("failed to persist %s miss records: %w", kind, err)
	}

	slog.Debug("recorded misses", "kind", kind, "missed", len(missed), "records", len(records))
	return records, nil
}

// Hardest returns the top DashboardSize records of kind.
func (t *Tracker) Hardest(kind domain.Kind) ([]domain.MissRecord, error) {
	records, err := t.store.ListMissRecords(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s miss records: %w", kind, err)
	}
	return Hardest(records, DashboardSize), nil
}
