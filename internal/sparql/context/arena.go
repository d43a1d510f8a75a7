// Package context holds the translator's working state: the variable
// arena, the CTE declaration list, and the SQL parameter list, all
// addressed by stable integer indices rather than pointers so the
// translator's state graph can never form a reference cycle, per the
// engine's anti-singleton, value-oriented design (mirroring the
// teacher's *ContextExtractor held by value alongside *sql.DB in
// internal/graph/searcher_sql.go's sqlSearcher struct, rather than a
// package-level global).
package context

import (
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// VarRef is a stable handle to a projected SPARQL variable, valid for the
// lifetime of one Arena.
type VarRef int

// Arena is the per-query translation scratchpad threaded by pointer
// through every visitor method in internal/sparql/translate. It owns:
//   - the variable table (name -> VarRef, and the reverse mapping)
//   - the ordered, deduplicated list of property-path CTEs (insertion
//     order matters: a CTE may only reference CTEs declared earlier in
//     the same WITH clause)
//   - the positional SQL parameter list bound to '?' placeholders
type Arena struct {
	vars      []string
	varIndex  map[string]VarRef
	ctes      *orderedmap.OrderedMap[string, string] // cte name -> cte body
	params    []any
	nextAlias int
}

// New returns an empty Arena ready for one query translation.
func New() *Arena {
	return &Arena{
		varIndex: make(map[string]VarRef),
		ctes:     orderedmap.New[string, string](),
	}
}

// VarFor interns name (without its leading '?') and returns its stable
// VarRef, allocating one on first use.
func (a *Arena) VarFor(name string) VarRef {
	if ref, ok := a.varIndex[name]; ok {
		return ref
	}
	ref := VarRef(len(a.vars))
	a.vars = append(a.vars, name)
	a.varIndex[name] = ref
	return ref
}

// VarName returns the variable name a VarRef was allocated for.
func (a *Arena) VarName(ref VarRef) string {
	return a.vars[ref]
}

// AddParam appends v to the positional parameter list and returns the
// '?' placeholder's 1-based ordinal, used purely for error messages —
// database/sql itself only needs the params in call order.
func (a *Arena) AddParam(v any) int {
	a.params = append(a.params, v)
	return len(a.params)
}

// Params returns the accumulated positional parameter list in bind order.
func (a *Arena) Params() []any {
	return a.params
}

// DeclareCTE registers a property-path CTE body under name if not already
// present, preserving first-registration order for emission. It returns
// whether this call newly inserted the entry, so callers can skip
// re-deriving a path expression's CTE body when the same path expression
// recurs in one query (e.g. the same `foaf:knows+` path used twice).
func (a *Arena) DeclareCTE(name, body string) (inserted bool) {
	if _, exists := a.ctes.Get(name); exists {
		return false
	}
	a.ctes.Set(name, body)
	return true
}

// CTEs returns the declared CTEs in declaration order, each as a
// "name AS (body)" pair ready for WITH-clause assembly.
func (a *Arena) CTEs() []CTE {
	out := make([]CTE, 0, a.ctes.Len())
	for pair := a.ctes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, CTE{Name: pair.Key, Body: pair.Value})
	}
	return out
}

// CTE is one emitted WITH-clause entry.
type CTE struct {
	Name string
	Body string
}

// NextAlias returns a fresh, query-unique SQL table alias, e.g. "t3", used
// whenever the translator needs to join the same table more than once
// (repeated properties, self-joins for property paths).
func (a *Arena) NextAlias(prefix string) string {
	a.nextAlias++
	return prefix + strconv.Itoa(a.nextAlias)
}
