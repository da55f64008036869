package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

func listMissRecords(q queryer, kind domain.Kind) ([]domain.MissRecord, error) {
	rows, err := q.Query(`
		SELECT item_id, source_text, target_text, miss_count
		FROM miss_records WHERE kind = ?
		ORDER BY position
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s miss records: %w", kind, err)
	}
	defer rows.Close()

	var records []domain.MissRecord
	for rows.Next() {
		var r domain.MissRecord
		if err := rows.Scan(&r.ItemID, &r.SourceText, &r.TargetText, &r.MissCount); err != nil {
			return nil, fmt.Errorf("failed to scan miss record row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func replaceMissRecords(tx *sql.Tx, kind domain.Kind, records []domain.MissRecord) error {
	if _, err := tx.Exec(`DELETE FROM miss_records WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("failed to clear %s miss records: %w", kind, err)
	}
	for i, r := range records {
		_, err := tx.Exec(`
			INSERT INTO miss_records (kind, item_id, source_text, target_text, miss_count, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, kind, r.ItemID, r.SourceText, r.TargetText, r.MissCount, i)
		if err != nil {
			return fmt.Errorf("failed to insert miss record for %s %d: %w", kind, r.ItemID, err)
		}
	}
	return nil
}

// ListMissRecords returns the ranked miss records of kind.
func (db *DB) ListMissRecords(kind domain.Kind) ([]domain.MissRecord, error) {
	return listMissRecords(db.conn, kind)
}

// PersistMissRecords replaces the miss records of kind, keeping their order.
func (db *DB) PersistMissRecords(kind domain.Kind, records []domain.MissRecord) error {
	return db.inTx(func(tx *sql.Tx) error {
		return replaceMissRecords(tx, kind, records)
	})
}
