package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

const itemColumns = `kind, id, source_text, target_text, example, notes`

func scanItems(rows *sql.Rows) ([]domain.LearningItem, error) {
	defer rows.Close()

	var items []domain.LearningItem
	for rows.Next() {
		var it domain.LearningItem
		if err := rows.Scan(&it.Kind, &it.ID, &it.SourceText, &it.TargetText, &it.Example, &it.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}
	return items, nil
}

func listItems(q queryer, kind domain.Kind) ([]domain.LearningItem, error) {
	rows, err := q.Query(`SELECT `+itemColumns+` FROM items WHERE kind = ? ORDER BY id`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", kind, err)
	}
	return scanItems(rows)
}

// ListItems returns every item of kind in creation order.
func (db *DB) ListItems(kind domain.Kind) ([]domain.LearningItem, error) {
	return listItems(db.conn, kind)
}

// nextID returns the current time in milliseconds, or one past the largest
// id of kind when the clock has not moved past it.
func (db *DB) nextID(tx *sql.Tx, kind domain.Kind) (int64, error) {
	var maxID int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM items WHERE kind = ?`, kind).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to read max %s id: %w", kind, err)
	}
	id := db.now().UnixMilli()
	if id <= maxID {
		id = maxID + 1
	}
	return id, nil
}

func insertItem(e execer, item domain.LearningItem, hash string, sourceID int64) error {
	var h sql.NullString
	var src sql.NullInt64
	if hash != "" {
		h = sql.NullString{String: hash, Valid: true}
		src = sql.NullInt64{Int64: sourceID, Valid: true}
	}
	_, err := e.Exec(`
		INSERT INTO items (kind, id, source_text, target_text, example, notes, hash, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.Kind,
		item.ID,
		item.SourceText,
		item.TargetText,
		item.Example,
		item.Notes,
		h,
		src,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s %d: %w", item.Kind, item.ID, err)
	}
	return nil
}

// AddItem stores item under kind with a freshly assigned id and returns it.
func (db *DB) AddItem(kind domain.Kind, item domain.LearningItem) (domain.LearningItem, error) {
	return db.addItem(kind, item, "", 0)
}

func (db *DB) addItem(kind domain.Kind, item domain.LearningItem, hash string, sourceID int64) (domain.LearningItem, error) {
	err := db.inTx(func(tx *sql.Tx) error {
		id, err := db.nextID(tx, kind)
		if err != nil {
			return err
		}
		item.ID = id
		item.Kind = kind
		return insertItem(tx, item, hash, sourceID)
	})
	if err != nil {
		return domain.LearningItem{}, err
	}
	return item, nil
}

// DeleteItem removes an item and reports whether it existed. Miss records
// that reference it are left alone.
func (db *DB) DeleteItem(kind domain.Kind, id int64) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM items WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return n > 0, nil
}

// DeckItem is an item read from a deck source, identified by its content hash.
type DeckItem struct {
	Item domain.LearningItem
	Hash string
}

// InsertDeckItem stores an item parsed from a deck source.
func (db *DB) InsertDeckItem(item domain.LearningItem, hash string, sourceID int64) (domain.LearningItem, error) {
	return db.addItem(item.Kind, item, hash, sourceID)
}

// FindDeckItem retrieves the item of a source with the given hash.
func (db *DB) FindDeckItem(sourceID int64, hash string) (*DeckItem, error) {
	var di DeckItem
	row := db.conn.QueryRow(`
		SELECT `+itemColumns+`, hash
		FROM items WHERE source_id = ? AND hash = ?
	`, sourceID, hash)

	err := row.Scan(
		&di.Item.Kind,
		&di.Item.ID,
		&di.Item.SourceText,
		&di.Item.TargetText,
		&di.Item.Example,
		&di.Item.Notes,
		&di.Hash,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Item not found
		}
		return nil, fmt.Errorf("failed to find deck item %s: %w", hash, err)
	}
	return &di, nil
}

// GetDeckItems retrieves all items that came from a source.
func (db *DB) GetDeckItems(sourceID int64) ([]DeckItem, error) {
	rows, err := db.conn.Query(`
		SELECT `+itemColumns+`, hash
		FROM items WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var items []DeckItem
	for rows.Next() {
		var di DeckItem
		if err := rows.Scan(
			&di.Item.Kind,
			&di.Item.ID,
			&di.Item.SourceText,
			&di.Item.TargetText,
			&di.Item.Example,
			&di.Item.Notes,
			&di.Hash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item row for source ID %d: %w", sourceID, err)
		}
		items = append(items, di)
	}
	return items, rows.Err()
}

// DeleteDeckItem removes an item of a source by its hash.
func (db *DB) DeleteDeckItem(sourceID int64, hash string) error {
	_, err := db.conn.Exec(`
		DELETE FROM items
		WHERE source_id = ? AND hash = ?
	`, sourceID, hash)
	if err != nil {
		return fmt.Errorf("failed to delete item with hash %s: %w", hash, err)
	}
	return nil
}
