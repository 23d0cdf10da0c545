package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marchglen/lorekeep/internal/apperr"
	"github.com/marchglen/lorekeep/internal/models"
)

// CreateRelationship inserts a relationship between two existing entities.
// Inserting a duplicate (same source, target, and type) is a conflict.
func (db *DB) CreateRelationship(r *models.Relationship) error {
	_, err := db.conn.Exec(`
		INSERT INTO relationships (id, source_id, target_id, type, description, bidirectional, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SourceID, r.TargetID, r.Type, r.Description, boolToInt(r.Bidirectional), r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("store: insert relationship: %w", err)
	}
	return nil
}

// DeleteRelationship removes one relationship by id.
func (db *DB) DeleteRelationship(id string) error {
	res, err := db.conn.Exec(`DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete relationship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// RelationshipsFor returns every relationship where the entity is the source,
// or the target of a bidirectional edge, with endpoint names and types
// denormalized for display.
func (db *DB) RelationshipsFor(entityID string) ([]models.Relationship, error) {
	rows, err := db.conn.Query(`
		SELECT r.id, r.source_id, s.type, s.name,
		       r.target_id, t.type, t.name,
		       r.type, r.description, r.bidirectional, r.created_at
		FROM relationships r
		JOIN entities s ON s.id = r.source_id
		JOIN entities t ON t.id = r.target_id
		WHERE r.source_id = ? OR (r.target_id = ? AND r.bidirectional = 1)
		ORDER BY r.created_at
	`, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("store: relationships: %w", err)
	}
	defer rows.Close()

	var out []models.Relationship
	for rows.Next() {
		var r models.Relationship
		var sType, tType string
		var bidi int
		if err := rows.Scan(&r.ID, &r.SourceID, &sType, &r.SourceName,
			&r.TargetID, &tType, &r.TargetName,
			&r.Type, &r.Description, &bidi, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan relationship: %w", err)
		}
		r.SourceType = models.EntityType(sType)
		r.TargetType = models.EntityType(tType)
		r.Bidirectional = bidi != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllRelationships returns every relationship, with endpoint names and types
// denormalized. Used to build the relationship graph.
func (db *DB) AllRelationships() ([]models.Relationship, error) {
	rows, err := db.conn.Query(`
		SELECT r.id, r.source_id, s.type, s.name,
		       r.target_id, t.type, t.name,
		       r.type, r.description, r.bidirectional, r.created_at
		FROM relationships r
		JOIN entities s ON s.id = r.source_id
		JOIN entities t ON t.id = r.target_id
		ORDER BY r.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("store: all relationships: %w", err)
	}
	defer rows.Close()

	var out []models.Relationship
	for rows.Next() {
		var r models.Relationship
		var sType, tType string
		var bidi int
		if err := rows.Scan(&r.ID, &r.SourceID, &sType, &r.SourceName,
			&r.TargetID, &tType, &r.TargetName,
			&r.Type, &r.Description, &bidi, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan relationship: %w", err)
		}
		r.SourceType = models.EntityType(sType)
		r.TargetType = models.EntityType(tType)
		r.Bidirectional = bidi != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRelationship returns one relationship by id.
func (db *DB) GetRelationship(id string) (*models.Relationship, error) {
	row := db.conn.QueryRow(`
		SELECT r.id, r.source_id, s.type, s.name,
		       r.target_id, t.type, t.name,
		       r.type, r.description, r.bidirectional, r.created_at
		FROM relationships r
		JOIN entities s ON s.id = r.source_id
		JOIN entities t ON t.id = r.target_id
		WHERE r.id = ?
	`, id)

	var r models.Relationship
	var sType, tType string
	var bidi int
	if err := row.Scan(&r.ID, &r.SourceID, &sType, &r.SourceName,
		&r.TargetID, &tType, &r.TargetName,
		&r.Type, &r.Description, &bidi, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan relationship: %w", err)
	}
	r.SourceType = models.EntityType(sType)
	r.TargetType = models.EntityType(tType)
	r.Bidirectional = bidi != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation matches the sqlite unique-constraint error without
// depending on driver error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
