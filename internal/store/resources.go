package store

import (
	"database/sql"
	"fmt"
)

// ResolveOrCreateResource interns uri, returning its stable Resource.ID,
// creating the row on first sight. Call sites that already hold a
// transaction (the update executor) must pass tx; read-only callers pass
// a *sql.DB, both of which satisfy execer.
func ResolveOrCreateResource(q execer, uri string) (int64, error) {
	var id int64
	err := q.QueryRow(`SELECT ID FROM Resource WHERE URI = ?`, uri).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("resolve resource %q: %w", uri, err)
	}

	res, err := q.Exec(`INSERT INTO Resource (URI) VALUES (?)`, uri)
	if err != nil {
		return 0, fmt.Errorf("create resource %q: %w", uri, err)
	}
	return res.LastInsertId()
}

// CreateService inserts a new Service row for resourceID under
// serviceTypeID/serviceURI and returns its ID.
func CreateService(q execer, resourceID, serviceTypeID int64, serviceURI string) (int64, error) {
	res, err := q.Exec(
		`INSERT INTO Service (ResourceID, ServiceTypeID, ServiceURI, Enabled) VALUES (?, ?, ?, 1)`,
		resourceID, serviceTypeID, serviceURI)
	if err != nil {
		return 0, fmt.Errorf("create service for resource %d: %w", resourceID, err)
	}
	return res.LastInsertId()
}

// ServiceByResource looks up the Service row owned by a given resource.
func ServiceByResource(q execer, resourceID int64) (*Service, error) {
	var s Service
	var enabled int
	err := q.QueryRow(
		`SELECT ID, ResourceID, ServiceTypeID, ServiceURI, Enabled FROM Service WHERE ResourceID = ?`,
		resourceID,
	).Scan(&s.ID, &s.ResourceID, &s.ServiceTypeID, &s.ServiceURI, &enabled)
	if err != nil {
		return nil, err
	}
	s.Enabled = enabled != 0
	return &s, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting store helpers
// run inside or outside an explicit transaction without duplicating logic
// for each, the same dual-mode helper shape
// internal/files/validator.go's Validator keeps for its nested validate*
// helpers (registry lookups that work the same whether called standalone
// or as part of a larger Validate walk).
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}
