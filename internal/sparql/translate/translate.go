// Package translate compiles a parsed SPARQL ast.Query into SQLite SQL
// plus its positional parameter list, the way internal/graph/searcher_sql.go
// compiles a fixed set of query shapes into SQL with buildXSQL methods —
// generalized here to an arbitrary SPARQL graph pattern instead of a
// fixed operation enum, since every SPARQL SELECT is one shape compiled
// by the same visitor rather than one of eight hand-written builders.
package translate

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
	sctx "github.com/trackerd/core/internal/sparql/context"
	"github.com/trackerd/core/internal/trackererr"
)

// Translator compiles ast.Query values against a fixed ontology Registry.
// It holds no per-query state itself — every translation gets its own
// *sctx.Arena — so one Translator is safe to reuse (and share) across
// concurrent Translate calls, matching the Engine-as-value-type design
// that disallows package-level mutable translator state.
type Translator struct {
	Registry *ontology.Registry
}

// New returns a Translator bound to reg.
func New(reg *ontology.Registry) *Translator {
	return &Translator{Registry: reg}
}

// bindingKind tags the storage domain a varBinding's SQL expression holds,
// driving the projection-time wrapping the Projection transforms apply
// (resource ids surfaced as URIs, booleans as 'true'/'false', dates and
// datetimes formatted from their stored epoch-seconds form).
type bindingKind int

const (
	kindPlain bindingKind = iota
	kindResource
	kindBoolean
	kindDate
	kindDateTime
)

// varBinding records where in the SQL a projected variable's value comes
// from: either a tracker_triples-derived alias.column, or a CTE's object
// column when the last hop into it was a property path.
type varBinding struct {
	expr string // fully qualified SQL expression, e.g. "t2.object"
	kind bindingKind
}

// compileState is threaded by pointer through every compile* method, the
// per-call half of translation state that isn't the long-lived Arena
// (which also survives into the final SQL assembly step).
type compileState struct {
	arena    *sctx.Arena
	builder  squirrel.SelectBuilder
	bindings map[string]varBinding
	wheres   []string
}

// Translate compiles query into a ready-to-prepare SQL string and its
// positional '?' parameters.
func (t *Translator) Translate(query *ast.Query) (string, []any, error) {
	arena := sctx.New()
	cs := &compileState{
		arena:    arena,
		bindings: make(map[string]varBinding),
	}

	base := squirrel.Select().From("Resource r0").PlaceholderFormat(squirrel.Question)
	cs.builder = base

	if err := t.compileGroupGraphPattern(cs, query.Where, true); err != nil {
		return "", nil, err
	}

	if cond, err := t.anchorResourceCondition(cs, query.Where); err != nil {
		return "", nil, err
	} else if cond != "" {
		cs.wheres = append(cs.wheres, cond)
	}

	cols, err := t.projectionColumns(cs, query)
	if err != nil {
		return "", nil, err
	}
	cs.builder = cs.builder.Columns(cols...)
	if query.Distinct {
		cs.builder = cs.builder.Distinct()
	}

	for _, w := range cs.wheres {
		cs.builder = cs.builder.Where(w)
	}

	if len(query.GroupBy) > 0 {
		groupCols := make([]string, 0, len(query.GroupBy))
		for _, e := range query.GroupBy {
			sqlExpr, err := t.compileExpr(cs, e)
			if err != nil {
				return "", nil, err
			}
			groupCols = append(groupCols, sqlExpr)
		}
		cs.builder = cs.builder.GroupBy(groupCols...)
	}

	for _, h := range query.Having {
		sqlExpr, err := t.compileExpr(cs, h)
		if err != nil {
			return "", nil, err
		}
		cs.builder = cs.builder.Having(sqlExpr)
	}

	for _, oc := range query.OrderBy {
		sqlExpr, err := t.compileExpr(cs, oc.Expr)
		if err != nil {
			return "", nil, err
		}
		if oc.Descending {
			sqlExpr += " DESC"
		}
		cs.builder = cs.builder.OrderBy(sqlExpr)
	}

	if query.Limit > 0 {
		cs.builder = cs.builder.Limit(uint64(query.Limit))
	}
	if query.Offset > 0 {
		cs.builder = cs.builder.Offset(uint64(query.Offset))
	}

	// Every '?' placeholder in cs.builder originates from a raw condition
	// string this package assembled itself (bindTerm, compileExpr, the
	// path and union/minus subquery builders), with its bound value
	// appended to the shared arena in the same left-to-right order the
	// placeholder was written — never from squirrel's own arg-binding
	// calls, since this translator only uses squirrel for clause assembly.
	// So the positional parameter list is the arena's, not whatever
	// (always empty here) ToSql would report.
	sqlBody, _, err := cs.builder.ToSql()
	if err != nil {
		return "", nil, trackererr.New(trackererr.KindQuery, "translate.Translate", err)
	}

	return assembleWithCTEs(arena, sqlBody), arena.Params(), nil
}

// anchorResourceCondition ties the unconstrained "Resource r0" base of
// Translate's FROM clause to the pattern's subject, so r0 contributes
// exactly one row per matching solution instead of cross-joining every
// triple match against every resource in the store. The anchor is taken
// from the first required (non-OPTIONAL, top-level) triple pattern, whose
// subject is always a Resource id in the same domain as r0.ID; patterns
// built entirely from MINUS/UNION/GRAPH already constrain r0 themselves
// and need no anchor.
func (t *Translator) anchorResourceCondition(cs *compileState, pattern ast.GroupGraphPattern) (string, error) {
	subject, ok := firstTopLevelSubject(pattern)
	if !ok {
		return "", nil
	}

	switch subject.Kind {
	case ast.TermVar:
		b, ok := cs.bindings[subject.Value]
		if !ok {
			return "", nil
		}
		return fmt.Sprintf("r0.ID = %s", b.expr), nil
	case ast.TermIRI, ast.TermBlank:
		cs.arena.AddParam(subject.Value)
		return "r0.ID = (SELECT ID FROM Resource WHERE URI = ?)", nil
	default:
		return "", nil
	}
}

// firstTopLevelSubject returns the subject of the first triple pattern
// appearing directly in pattern's element list, skipping over (not
// descending into) OPTIONAL/MINUS/UNION/GRAPH sub-patterns: only a
// directly-required triple can safely anchor r0 without over-constraining
// rows an OPTIONAL is meant to preserve even when unmatched.
func firstTopLevelSubject(pattern ast.GroupGraphPattern) (ast.Term, bool) {
	for _, el := range pattern.Elements {
		if tp, ok := el.(ast.TriplePattern); ok {
			return tp.Subject, true
		}
	}
	return ast.Term{}, false
}

// assembleWithCTEs prepends a WITH clause for every CTE a property-path
// expansion declared, in declaration order (later CTEs may reference
// earlier ones, never the reverse, so order must be preserved exactly as
// go-ordered-map recorded it).
func assembleWithCTEs(arena *sctx.Arena, body string) string {
	ctes := arena.CTEs()
	if len(ctes) == 0 {
		return body
	}
	parts := make([]string, 0, len(ctes))
	for _, c := range ctes {
		parts = append(parts, fmt.Sprintf("%s AS (%s)", c.Name, c.Body))
	}
	return "WITH RECURSIVE " + strings.Join(parts, ",\n") + "\n" + body
}

// projectionColumns resolves the SELECT list: either the query's explicit
// projection terms, or every variable bound anywhere in the pattern when
// the query used SELECT *.
func (t *Translator) projectionColumns(cs *compileState, query *ast.Query) ([]string, error) {
	if len(query.Projection) == 0 {
		cols := make([]string, 0, len(cs.bindings))
		for name, b := range cs.bindings {
			cols = append(cols, projectedColumn(b, name)...)
		}
		return cols, nil
	}

	cols := make([]string, 0, len(query.Projection))
	for _, term := range query.Projection {
		if term.Expr == nil {
			b, ok := cs.bindings[term.Var]
			if !ok {
				return nil, trackererr.Newf(trackererr.KindParse, "translate.projectionColumns",
					"variable %q is projected but never bound in WHERE", term.Var)
			}
			cols = append(cols, projectedColumn(b, term.Var)...)
			continue
		}
		sqlExpr, err := t.compileExpr(cs, term.Expr)
		if err != nil {
			return nil, err
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", sqlExpr, quoteIdent(term.Var)))
	}
	return cols, nil
}

// projectedColumn renders the SQL for one projected variable per the
// Projection transforms: resource-typed variables surface their URI via a
// Resource lookup rather than the raw internal id, booleans map their
// stored 1/0 to 'true'/'false', dates format as 'YYYY-MM-DD', and
// datetimes gain both a formatted column and a "name:local" twin carrying
// the pre-formatting local epoch value, the way a local-time-aware
// timestamp is commonly surfaced alongside its canonical form.
func projectedColumn(b varBinding, name string) []string {
	switch b.kind {
	case kindResource:
		return []string{fmt.Sprintf("(SELECT URI FROM Resource WHERE ID = CAST(%s AS INTEGER)) AS %s", b.expr, quoteIdent(name))}
	case kindBoolean:
		return []string{fmt.Sprintf("(CASE WHEN %s THEN 'true' ELSE 'false' END) AS %s", b.expr, quoteIdent(name))}
	case kindDate:
		return []string{fmt.Sprintf("strftime('%%Y-%%m-%%d', %s, 'unixepoch') AS %s", b.expr, quoteIdent(name))}
	case kindDateTime:
		return []string{
			fmt.Sprintf("sparqlformattime(%s) AS %s", b.expr, quoteIdent(name)),
			fmt.Sprintf("%s AS %s", b.expr, quoteIdent(name+":local")),
		}
	default:
		return []string{fmt.Sprintf("%s AS %s", b.expr, quoteIdent(name))}
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
