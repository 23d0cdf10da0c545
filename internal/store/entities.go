package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marchglen/lorekeep/internal/apperr"
	"github.com/marchglen/lorekeep/internal/models"
)

// SearchResult is one full-text search hit.
type SearchResult struct {
	ID      string            `json:"id"`
	Type    models.EntityType `json:"type"`
	Name    string            `json:"name"`
	Snippet string            `json:"snippet"`
}

// CreateEntity inserts a new entity. searchBody is the plain-text rendering
// of the entity's searchable fields, used for full-text indexing.
func (db *DB) CreateEntity(e *models.Entity, searchBody string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("store: marshal fields: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO entities (id, type, name, fields, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.Name, string(fieldsJSON), searchBody, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert entity: %w", err)
	}

	if err := ftsUpsert(tx, e.ID, e.Name, string(e.Type), searchBody); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateEntity replaces an entity's name and fields and refreshes the FTS
// entry.
func (db *DB) UpdateEntity(e *models.Entity, searchBody string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("store: marshal fields: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE entities SET name = ?, fields = ?, body = ?, updated_at = ? WHERE id = ?
	`, e.Name, string(fieldsJSON), searchBody, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("store: update entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}

	if err := ftsUpsert(tx, e.ID, e.Name, string(e.Type), searchBody); err != nil {
		return err
	}
	return tx.Commit()
}

// GetEntity returns one entity by id.
func (db *DB) GetEntity(id string) (*models.Entity, error) {
	row := db.conn.QueryRow(`
		SELECT id, type, name, fields, created_at, updated_at FROM entities WHERE id = ?
	`, id)
	return scanEntity(row)
}

// FindByName returns the first entity of the given type whose name matches
// case-insensitively. A miss is apperr.ErrNotFound.
func (db *DB) FindByName(t models.EntityType, name string) (*models.Entity, error) {
	row := db.conn.QueryRow(`
		SELECT id, type, name, fields, created_at, updated_at
		FROM entities
		WHERE type = ? AND name = ? COLLATE NOCASE
		ORDER BY created_at
		LIMIT 1
	`, string(t), name)
	return scanEntity(row)
}

// DeleteEntity removes an entity, its FTS entry, and every relationship that
// touches it.
func (db *DB) DeleteEntity(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	_, _ = tx.Exec(`DELETE FROM relationships WHERE source_id = ? OR target_id = ?`, id, id)
	ftsDelete(tx, id)

	return tx.Commit()
}

// ListEntities returns a page of entities, optionally filtered by type,
// ordered by name, plus the unfiltered-page total.
func (db *DB) ListEntities(t models.EntityType, limit, offset int) ([]models.Entity, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if t != "" {
		where = "WHERE type = ?"
		args = append(args, string(t))
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM entities `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count entities: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, type, name, fields, created_at, updated_at
		FROM entities %s
		ORDER BY name COLLATE NOCASE
		LIMIT ? OFFSET ?
	`, where)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list entities: %w", err)
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		e, err := scanEntityRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// EntityRef is a minimal entity reference used for graph nodes.
type EntityRef struct {
	ID   string            `json:"id"`
	Type models.EntityType `json:"type"`
	Name string            `json:"name"`
}

// EntityRefs returns id, type, and name for every entity.
func (db *DB) EntityRefs() ([]EntityRef, error) {
	rows, err := db.conn.Query(`SELECT id, type, name FROM entities ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("store: entity refs: %w", err)
	}
	defer rows.Close()

	var out []EntityRef
	for rows.Next() {
		var ref EntityRef
		var typ string
		if err := rows.Scan(&ref.ID, &typ, &ref.Name); err != nil {
			return nil, fmt.Errorf("store: scan entity ref: %w", err)
		}
		ref.Type = models.EntityType(typ)
		out = append(out, ref)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (*models.Entity, error) {
	var e models.Entity
	var typ, fieldsJSON string
	if err := s.Scan(&e.ID, &typ, &e.Name, &fieldsJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan entity: %w", err)
	}
	e.Type = models.EntityType(typ)
	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return nil, fmt.Errorf("store: decode fields for %s: %w", e.ID, err)
	}
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	return &e, nil
}

func scanEntity(row *sql.Row) (*models.Entity, error) { return scanRow(row) }
func scanEntityRows(rows *sql.Rows) (*models.Entity, error) { return scanRow(rows) }

// Touch normalizes timestamps for a new entity.
func Touch(e *models.Entity) {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}
