// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/tata/internal/chat"
)

// =============================================================================
// DATABASE
// =============================================================================

// schema holds the persisted collections. Rows are JSON documents
// keyed by id; position orders the session list.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stickers (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS worldbooks (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
);
`

// DB wraps the SQLite handle used for write-through persistence.
type DB struct {
	db *sql.DB
}

// OpenDB opens (creating if needed) the store database at path.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent session generation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveSession upserts one session document at the given position.
func (d *DB) SaveSession(s *chat.Session, position int) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}
	_, err = d.db.Exec(
		`INSERT INTO sessions (id, position, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET position = excluded.position, data = excluded.data`,
		s.ID, position, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

// DeleteSession removes one session document.
func (d *DB) DeleteSession(id string) error {
	if _, err := d.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// LoadSessions returns all persisted sessions in position order.
func (d *DB) LoadSessions() ([]*chat.Session, error) {
	rows, err := d.db.Query("SELECT data FROM sessions ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*chat.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var s chat.Session
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			// A corrupt row should not take the whole store down.
			continue
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// SaveStickers replaces the persisted sticker tree roots.
func (d *DB) SaveStickers(roots []StickerNode) error {
	return d.replaceCollection("stickers", len(roots), func(i int) (string, any) {
		return roots[i].ID, roots[i]
	})
}

// LoadStickers returns the persisted sticker tree roots.
func (d *DB) LoadStickers() ([]StickerNode, error) {
	rows, err := d.db.Query("SELECT data FROM stickers ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load stickers: %w", err)
	}
	defer rows.Close()

	var roots []StickerNode
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan sticker row: %w", err)
		}
		var node StickerNode
		if err := json.Unmarshal([]byte(data), &node); err != nil {
			continue
		}
		roots = append(roots, node)
	}
	return roots, rows.Err()
}

// SaveWorldbooks replaces the persisted worldbook entries.
func (d *DB) SaveWorldbooks(books []Worldbook) error {
	return d.replaceCollection("worldbooks", len(books), func(i int) (string, any) {
		return books[i].ID, books[i]
	})
}

// LoadWorldbooks returns the persisted worldbook entries.
func (d *DB) LoadWorldbooks() ([]Worldbook, error) {
	rows, err := d.db.Query("SELECT data FROM worldbooks ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load worldbooks: %w", err)
	}
	defer rows.Close()

	var books []Worldbook
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan worldbook row: %w", err)
		}
		var wb Worldbook
		if err := json.Unmarshal([]byte(data), &wb); err != nil {
			continue
		}
		books = append(books, wb)
	}
	return books, rows.Err()
}

// replaceCollection swaps a whole table's contents in one transaction.
func (d *DB) replaceCollection(table string, n int, row func(i int) (string, any)) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		id, doc := row(i)
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s row: %w", table, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO "+table+" (id, position, data) VALUES (?, ?, ?)",
			id, i, string(data),
		); err != nil {
			return fmt.Errorf("failed to insert %s row: %w", table, err)
		}
	}
	return tx.Commit()
}
