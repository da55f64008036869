package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/conorfennell/lexiquiz/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

const (
	streakKey = "streak"
	notesKey  = "notes"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// inTx runs fn inside a transaction, rolling back on error.
func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func getValue(q queryer, key string) (string, bool, error) {
	var value string
	err := q.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func setValue(e execer, key, value string) error {
	_, err := e.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func deleteValue(e execer, key string) error {
	if _, err := e.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

type streakRecord struct {
	Streak   int    `json:"streak"`
	LastUsed string `json:"lastUsed"`
}

func loadStreak(q queryer) (*domain.StreakState, error) {
	raw, ok, err := getValue(q, streakKey)
	if err != nil || !ok {
		return nil, err
	}
	var rec streakRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode streak: %w", err)
	}
	last, err := time.Parse(time.RFC3339Nano, rec.LastUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse streak date %q: %w", rec.LastUsed, err)
	}
	return &domain.StreakState{CurrentStreak: rec.Streak, LastActive: last}, nil
}

func saveStreak(e execer, state domain.StreakState) error {
	raw, err := json.Marshal(streakRecord{
		Streak:   state.CurrentStreak,
		LastUsed: state.LastActive.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode streak: %w", err)
	}
	return setValue(e, streakKey, string(raw))
}

// LoadStreakState returns the saved streak, or nil if none was saved.
func (db *DB) LoadStreakState() (*domain.StreakState, error) {
	return loadStreak(db.conn)
}

// PersistStreakState saves the streak.
func (db *DB) PersistStreakState(state domain.StreakState) error {
	return saveStreak(db.conn, state)
}

// LoadNotes returns the free-form notes text.
func (db *DB) LoadNotes() (string, error) {
	notes, _, err := getValue(db.conn, notesKey)
	return notes, err
}

// SaveNotes replaces the notes text.
func (db *DB) SaveNotes(notes string) error {
	return setValue(db.conn, notesKey, notes)
}
