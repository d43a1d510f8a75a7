// Package engine ties the ontology registry, the metadata store, the
// inverted word index, and the SPARQL translator together behind one
// value type, matching the engine's anti-singleton stance: every caller
// — the CLI, a future embedder — holds its own *Engine, never a shared
// package-level global.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/trackerd/core/internal/invindex"
	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/sparql/sqlfuncs"
	"github.com/trackerd/core/internal/sparql/translate"
	"github.com/trackerd/core/internal/store"
	"github.com/trackerd/core/internal/termparser"
	"github.com/trackerd/core/internal/trackconfig"
	"github.com/trackerd/core/internal/trackererr"
	"github.com/trackerd/core/internal/update"
)

// Engine is the single handle every public operation hangs off. It owns
// its *sql.DB, its ontology Registry, its inverted-index Store, and its
// translator/executor, plus a collation-reset flag that is checked when
// a cursor closes rather than acted on from inside an in-flight cursor,
// avoiding the need for any lock around the statement cache during
// normal query execution.
type Engine struct {
	db     *sql.DB
	reg    *ontology.Registry
	index  *invindex.Store
	parser *termparser.Parser
	tr     *translate.Translator
	exec   *update.Executor
	log    *slog.Logger

	// collationResetPending is set by ReloadCollation and cleared by
	// maybeHandleCollationReset, which Cursor.Close calls, once
	// activeCursors is zero — a flag-and-poll-at-quiescence pattern used in place of
	// invalidating prepared statements out from under an open cursor.
	collationResetPending atomic.Bool
	activeCursors         atomic.Int64

	statementCache *statementCache
}

// Open loads the ontology from ontologyDir, opens (or creates) the
// SQLite store at cfg.Database.Path, opens the inverted index at
// cfg.Index.Path, and returns a ready-to-use Engine.
func Open(cfg *trackconfig.Config, ontologyDir string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	reg, err := ontology.Load(ontologyDir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(sqlfuncs.DriverName(), cfg.Database.Path)
	if err != nil {
		return nil, trackererr.New(trackererr.KindIO, "engine.Open", err)
	}
	if err := store.CreateSchema(db); err != nil {
		return nil, trackererr.New(trackererr.KindIO, "engine.Open", err)
	}

	idx, err := invindex.Open(cfg.Index)
	if err != nil {
		db.Close()
		return nil, err
	}

	stopWords, err := termparser.LoadStopWords(cfg.Parser.StopWordsPath)
	if err != nil {
		db.Close()
		idx.Close()
		return nil, err
	}
	parser := termparser.New(cfg.Parser, stopWords)

	stmtCache, err := newStatementCache(256)
	if err != nil {
		db.Close()
		idx.Close()
		return nil, err
	}

	e := &Engine{
		db:             db,
		reg:            reg,
		index:          idx,
		parser:         parser,
		tr:             translate.New(reg),
		exec:           update.New(db, reg, idx, parser),
		log:            log,
		statementCache: stmtCache,
	}
	log.Info("engine opened", "database", cfg.Database.Path, "index", cfg.Index.Path)
	return e, nil
}

// Close releases the database and index file handles.
func (e *Engine) Close() error {
	e.statementCache.Close()
	idxErr := e.index.Close()
	dbErr := e.db.Close()
	if dbErr != nil {
		return trackererr.New(trackererr.KindIO, "engine.Close", dbErr)
	}
	return idxErr
}

// ReloadCollation requests that the next quiescent point (zero active
// cursors) reset whatever depends on the database's collation sequence —
// currently a no-op placeholder for a future locale-aware ORDER BY, kept
// here so the flag-and-poll shape exists before anything consumes it and
// later additions don't have to re-architect the Engine's concurrency
// story.
func (e *Engine) ReloadCollation() {
	e.collationResetPending.Store(true)
}

func (e *Engine) maybeHandleCollationReset() {
	if e.activeCursors.Load() != 0 {
		return
	}
	if e.collationResetPending.CompareAndSwap(true, false) {
		e.log.Debug("collation reset observed at quiescence")
	}
}

// PrepareQuery translates query and returns a Query ready to Execute.
func (e *Engine) PrepareQuery(query *ast.Query) (*Query, error) {
	sqlText, args, err := e.tr.Translate(query)
	if err != nil {
		return nil, err
	}
	return &Query{engine: e, sqlText: sqlText, args: args}, nil
}

// ExecuteUpdate resolves and applies a SPARQL update request. Any
// DeleteWhere operation is first resolved into a Modify against the
// engine's own query path (internal/update has no translator of its
// own), then every operation is applied in one transaction.
func (e *Engine) ExecuteUpdate(ctx context.Context, ops []update.Operation) error {
	resolved := make([]update.Operation, len(ops))
	for i, op := range ops {
		r, err := e.resolveOperation(ctx, op)
		if err != nil {
			return err
		}
		resolved[i] = r
	}
	return e.exec.ExecuteUpdate(ctx, resolved)
}

// Optimize triggers a synchronous inverted-index compaction, exposed for
// `tracker index optimize`.
func (e *Engine) Optimize() error {
	return e.index.Optimize()
}

// IndexStats reports the inverted index's record and bucket counts,
// exposed for `tracker index stats`.
func (e *Engine) IndexStats() (invindex.Stats, error) {
	return e.index.Stats()
}

// MaybeOptimizeAsync exposes the background-optimize decision for callers
// (the daemon-less CLI included) that want to trigger it opportunistically
// after a large update batch.
func (e *Engine) MaybeOptimizeAsync() (scheduled bool, done <-chan struct{}) {
	return e.index.MaybeOptimizeAsync()
}

// SearchWords runs a ranked inverted-index lookup across one or more
// terms, the engine-level entry point the CLI's `tracker search` command
// calls into.
func (e *Engine) SearchWords(ctx context.Context, terms []string, offset, limit int) ([]invindex.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, trackererr.New(trackererr.KindInterrupted, "engine.SearchWords", err)
	}
	hits, err := e.index.GetHitsMulti(terms, offset, limit)
	if err != nil {
		return nil, trackererr.New(trackererr.KindIO, "engine.SearchWords", err)
	}
	return hits, nil
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine.Engine{%s}", e.reg)
}
