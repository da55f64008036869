package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

// Snapshot reads the complete data set.
func (db *DB) Snapshot() (domain.Snapshot, error) {
	snap := domain.Snapshot{Misses: make(map[domain.Kind][]domain.MissRecord)}

	var err error
	if snap.Words, err = listItems(db.conn, domain.Word); err != nil {
		return snap, err
	}
	if snap.Expressions, err = listItems(db.conn, domain.Expression); err != nil {
		return snap, err
	}
	for _, kind := range domain.Kinds {
		if snap.Misses[kind], err = listMissRecords(db.conn, kind); err != nil {
			return snap, err
		}
	}
	if snap.Streak, err = loadStreak(db.conn); err != nil {
		return snap, err
	}
	if snap.Notes, _, err = getValue(db.conn, notesKey); err != nil {
		return snap, err
	}
	return snap, nil
}

// Restore replaces the complete data set in one transaction. Items restored
// this way are no longer linked to a deck source.
func (db *DB) Restore(snap domain.Snapshot) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM items`); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		for _, kind := range domain.Kinds {
			for _, item := range snap.Items(kind) {
				item.Kind = kind
				if err := insertItem(tx, item, "", 0); err != nil {
					return err
				}
			}
			if err := replaceMissRecords(tx, kind, snap.Misses[kind]); err != nil {
				return err
			}
		}

		if snap.Streak == nil {
			if err := deleteValue(tx, streakKey); err != nil {
				return err
			}
		} else if err := saveStreak(tx, *snap.Streak); err != nil {
			return err
		}

		return setValue(tx, notesKey, snap.Notes)
	})
}
