package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fablecraft/loom/internal/version"
)

// SaveVersions writes the full version set and the current pointer in one
// transaction. Change rows are append-only in spirit; the whole set is
// rewritten because the CLI owns a single-writer database.
func (d *DB) SaveVersions(versions []*version.Version, currentID string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("saving versions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM changes"); err != nil {
		return fmt.Errorf("clearing changes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM versions"); err != nil {
		return fmt.Errorf("clearing versions: %w", err)
	}

	for _, v := range versions {
		orderJSON, err := json.Marshal(v.ChapterOrder)
		if err != nil {
			return fmt.Errorf("encoding order for version %s: %w", v.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO versions (id, name, description, chapter_order, created_at, is_base, parent_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Name, v.Description, string(orderJSON), v.Created.UnixMilli(), v.IsBase, v.ParentID); err != nil {
			return fmt.Errorf("saving version %s: %w", v.ID, err)
		}
		for _, c := range v.Changes {
			if _, err := tx.Exec(`
				INSERT INTO changes (id, version_id, change_type, chapter_id, old_position, new_position, description, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, c.ID, v.ID, c.Type, c.ChapterID, c.OldPosition, c.NewPosition, c.Description, c.Timestamp.UnixMilli()); err != nil {
				return fmt.Errorf("saving change %s: %w", c.ID, err)
			}
		}
	}

	if _, err := tx.Exec(`UPDATE manuscript SET current_version_id = ? WHERE id = 'manuscript'`, currentID); err != nil {
		return fmt.Errorf("saving current version pointer: %w", err)
	}

	return tx.Commit()
}

// LoadVersions reads all versions in creation order plus the current pointer.
// Returns an empty slice when no versions exist yet.
func (d *DB) LoadVersions() ([]*version.Version, string, error) {
	rows, err := d.conn.Query(`
		SELECT id, name, COALESCE(description, ''), chapter_order, created_at, is_base, COALESCE(parent_id, '')
		FROM versions ORDER BY created_at, id
	`)
	if err != nil {
		return nil, "", fmt.Errorf("loading versions: %w", err)
	}
	defer rows.Close()

	var versions []*version.Version
	byID := make(map[string]*version.Version)
	for rows.Next() {
		var v version.Version
		var orderJSON string
		var createdMs int64
		if err := rows.Scan(&v.ID, &v.Name, &v.Description, &orderJSON, &createdMs, &v.IsBase, &v.ParentID); err != nil {
			return nil, "", fmt.Errorf("loading versions: %w", err)
		}
		if err := json.Unmarshal([]byte(orderJSON), &v.ChapterOrder); err != nil {
			return nil, "", fmt.Errorf("decoding order for version %s: %w", v.ID, err)
		}
		v.Created = time.UnixMilli(createdMs)
		v.Changes = []version.Change{}
		versions = append(versions, &v)
		byID[v.ID] = &v
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("loading versions: %w", err)
	}

	crows, err := d.conn.Query(`
		SELECT id, version_id, change_type, chapter_id, old_position, new_position, COALESCE(description, ''), created_at
		FROM changes ORDER BY created_at, id
	`)
	if err != nil {
		return nil, "", fmt.Errorf("loading changes: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c version.Change
		var versionID string
		var createdMs int64
		if err := crows.Scan(&c.ID, &versionID, &c.Type, &c.ChapterID, &c.OldPosition, &c.NewPosition, &c.Description, &createdMs); err != nil {
			return nil, "", fmt.Errorf("loading changes: %w", err)
		}
		c.Timestamp = time.UnixMilli(createdMs)
		if v, ok := byID[versionID]; ok {
			v.Changes = append(v.Changes, c)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, "", fmt.Errorf("loading changes: %w", err)
	}

	var currentID sql.NullString
	err = d.conn.QueryRow(`SELECT current_version_id FROM manuscript WHERE id = 'manuscript'`).Scan(&currentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, "", fmt.Errorf("loading current version pointer: %w", err)
	}

	return versions, currentID.String, nil
}
