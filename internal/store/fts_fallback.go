//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"

	"github.com/marchglen/lorekeep/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search falls back to LIKE over entities.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error {
	// Body is already stored on the entities table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, type, name, substr(body, 1, 200)
		FROM entities
		WHERE name LIKE ? OR body LIKE ?
		ORDER BY name COLLATE NOCASE
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var typ string
		if err := rows.Scan(&r.ID, &typ, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		r.Type = models.EntityType(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}
