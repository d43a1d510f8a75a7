package engine

import (
	"context"
	"database/sql"

	"github.com/maypok86/otter"

	"github.com/trackerd/core/internal/trackererr"
)

// Query is a prepared, not-yet-executed SPARQL SELECT, returned by
// Engine.PrepareQuery. Prepared queries are cheap to hold onto and
// re-execute (e.g. a saved search re-run on a timer), since the
// underlying *sql.Stmt is cached by the engine's statement cache rather
// than re-prepared on every Execute call.
type Query struct {
	engine  *Engine
	sqlText string
	args    []any
}

// SQL returns the compiled SQL text, printed by `tracker query --verbose`.
func (q *Query) SQL() string {
	return q.sqlText
}

// Cursor streams result rows from an executed Query. Callers must call
// Close (directly, or by exhausting Next) so the engine's active-cursor
// count drops and a pending collation reset can observe quiescence.
type Cursor struct {
	engine *Engine
	rows   *sql.Rows
	cols   []string
	closed bool
}

// Execute runs the query and returns a Cursor over its result rows. The
// statement is fetched from (or inserted into) the engine's
// prepared-statement cache rather than prepared fresh on every call.
func (q *Query) Execute(ctx context.Context) (*Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, trackererr.New(trackererr.KindInterrupted, "engine.Query.Execute", err)
	}

	stmt, err := q.engine.statementCache.preparedSelect(ctx, q.engine.db, q.sqlText)
	if err != nil {
		return nil, trackererr.New(trackererr.KindQuery, "engine.Query.Execute", err)
	}

	rows, err := stmt.QueryContext(ctx, q.args...)
	if err != nil {
		return nil, trackererr.New(trackererr.KindQuery, "engine.Query.Execute", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, trackererr.New(trackererr.KindQuery, "engine.Query.Execute", err)
	}

	q.engine.activeCursors.Add(1)
	return &Cursor{engine: q.engine, rows: rows, cols: cols}, nil
}

// Columns returns the ordered projection column names.
func (c *Cursor) Columns() []string {
	return c.cols
}

// Next advances to the next row, returning false when the result set is
// exhausted or an error occurred (check Err to distinguish the two).
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	ok := c.rows.Next()
	if !ok {
		c.Close()
	}
	return ok
}

// Scan copies the current row's columns into dest, in projection order.
func (c *Cursor) Scan(dest ...any) error {
	return c.rows.Scan(dest...)
}

// Err returns the first error encountered by Next, if any.
func (c *Cursor) Err() error {
	return c.rows.Err()
}

// Close releases the underlying *sql.Rows and decrements the engine's
// active-cursor count. Safe to call multiple times.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.engine.activeCursors.Add(-1)
	c.engine.maybeHandleCollationReset()
	return c.rows.Close()
}

// statementCache wraps an otter LRU cache of prepared SELECT statements,
// keyed by SQL text, mirroring internal/cache's otter-backed file-hash
// cache but specialized to *sql.Stmt and scoped per-Engine instead of a
// shared global — consistent with the Engine value-type design's ban on
// package-level mutable state.
type statementCache struct {
	selects otter.Cache[string, *sql.Stmt]
}

func newStatementCache(capacity int) (*statementCache, error) {
	c, err := otter.MustBuilder[string, *sql.Stmt](capacity).
		Build()
	if err != nil {
		return nil, trackererr.New(trackererr.KindIO, "engine.newStatementCache", err)
	}
	return &statementCache{selects: c}, nil
}

func (sc *statementCache) preparedSelect(ctx context.Context, db *sql.DB, sqlText string) (*sql.Stmt, error) {
	if stmt, ok := sc.selects.Get(sqlText); ok {
		return stmt, nil
	}
	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	sc.selects.Set(sqlText, stmt)
	return stmt, nil
}

// Close releases the cache. Individual *sql.Stmt handles are not closed
// explicitly: closing the owning *sql.DB (which always happens alongside
// this call, see Engine.Close) invalidates them all at once.
func (sc *statementCache) Close() {
	sc.selects.Clear()
}
