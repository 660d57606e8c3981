package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoWorkspace is returned when the database holds no loadable save
var ErrNoWorkspace = errors.New("no saved workspace")

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func readMeta(q querier) (*Meta, error) {
	var m Meta
	err := q.QueryRow(`SELECT version, save_id, selected FROM save_meta WHERE id = 1`).
		Scan(&m.Version, &m.SaveID, &m.Selected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading save meta: %w", err)
	}
	return &m, nil
}

func readSlot(q querier, slot string) ([]TabRow, error) {
	rows, err := q.Query(`SELECT `+tabColumns+` FROM tabs WHERE slot = ? ORDER BY position`, slot)
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	defer rows.Close()

	var tabs []TabRow
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, t)
	}
	return tabs, rows.Err()
}

// nextSlot picks the slot a save should write: the one meta does not name
func nextSlot(m *Meta) string {
	if m != nil && m.Version == SaveVersion && m.SaveID == SlotA {
		return SlotB
	}
	return SlotA
}

// SaveWorkspace writes all tabs into the inactive slot and points the meta
// row at it, in one transaction. Positions are taken from slice order.
// Returns the slot written.
func (d *DB) SaveWorkspace(tabs []TabRow, selected int) (string, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	meta, err := readMeta(tx)
	if err != nil {
		return "", err
	}
	slot := nextSlot(meta)

	if _, err := tx.Exec(`DELETE FROM tabs WHERE slot = ?`, slot); err != nil {
		return "", fmt.Errorf("clearing slot %s: %w", slot, err)
	}

	now := time.Now().UnixMilli()
	for i, t := range tabs {
		_, err := tx.Exec(`
			INSERT INTO tabs (slot, position, id, name, data, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, slot, i, t.ID, t.Name, t.Data, now)
		if err != nil {
			return "", fmt.Errorf("writing tab %s: %w", t.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO save_meta (id, version, save_id, selected) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			save_id = excluded.save_id,
			selected = excluded.selected
	`, SaveVersion, slot, selected)
	if err != nil {
		return "", fmt.Errorf("writing save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing save: %w", err)
	}
	return slot, nil
}

// LoadWorkspace reads the slot the meta row points at
func (d *DB) LoadWorkspace() (*Snapshot, error) {
	meta, err := readMeta(d.conn)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrNoWorkspace
	}
	if meta.Version != SaveVersion {
		return nil, fmt.Errorf("%w: unsupported save version %d", ErrNoWorkspace, meta.Version)
	}

	tabs, err := readSlot(d.conn, meta.SaveID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Meta: *meta, Tabs: tabs}, nil
}
