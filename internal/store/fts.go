package store

import (
	"database/sql"
	"fmt"
)

// UpdateFullText syncs the ServiceFullText index for serviceID with a
// delete-then-insert upsert, the same pattern internal/storage/fts_index.go
// uses since FTS5 has no native INSERT OR REPLACE.
func UpdateFullText(tx *sql.Tx, serviceID int64, content string) error {
	if _, err := tx.Exec(`DELETE FROM ServiceFullText WHERE ServiceID = ?`, serviceID); err != nil {
		return fmt.Errorf("failed to delete fulltext entry for service %d: %w", serviceID, err)
	}
	if content == "" {
		return nil
	}
	if _, err := tx.Exec(`INSERT INTO ServiceFullText (ServiceID, content) VALUES (?, ?)`, serviceID, content); err != nil {
		return fmt.Errorf("failed to insert fulltext entry for service %d: %w", serviceID, err)
	}
	return nil
}

// QueryFullText runs a BM25-ranked MATCH lookup against ServiceFullText
// and returns the matching ServiceIDs.
func QueryFullText(db *sql.DB, matchExpr string, limit int) ([]int64, error) {
	rows, err := db.Query(`
		SELECT ServiceID FROM ServiceFullText
		WHERE ServiceFullText MATCH ?
		ORDER BY rank
		LIMIT ?`, matchExpr, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
