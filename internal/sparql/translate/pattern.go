package translate

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/trackererr"
)

// compileGroupGraphPattern walks one "{ }" block's elements in order,
// mutating cs.builder with the joins/conditions each element contributes.
// required is false inside an OPTIONAL sub-pattern, where triple joins
// must be LEFT JOINs instead of INNER.
func (t *Translator) compileGroupGraphPattern(cs *compileState, pattern ast.GroupGraphPattern, required bool) error {
	for _, el := range pattern.Elements {
		switch e := el.(type) {
		case ast.TriplePattern:
			if err := t.compileTriple(cs, e, required); err != nil {
				return err
			}
		case ast.OptionalGroup:
			if err := t.compileGroupGraphPattern(cs, e.Pattern, false); err != nil {
				return err
			}
		case ast.FilterElement:
			sqlExpr, err := t.compileExpr(cs, e.Expr)
			if err != nil {
				return err
			}
			cs.wheres = append(cs.wheres, sqlExpr)
		case ast.Bind:
			sqlExpr, err := t.compileExpr(cs, e.Expr)
			if err != nil {
				return err
			}
			cs.bindings[e.Var] = varBinding{expr: fmt.Sprintf("(%s)", sqlExpr)}
		case ast.MinusGroup:
			if err := t.compileMinus(cs, e); err != nil {
				return err
			}
		case ast.UnionGroup:
			if err := t.compileUnion(cs, e); err != nil {
				return err
			}
		case ast.GraphGroup:
			if err := t.compileGraph(cs, e); err != nil {
				return err
			}
		default:
			return trackererr.Newf(trackererr.KindUnsupported, "translate.compileGroupGraphPattern",
				"unsupported pattern element %T", el)
		}
	}
	return nil
}

// compileTriple emits the join for one triple pattern and records any new
// variable bindings it introduces. A property path predicate (anything
// beyond a plain IRI or a variable) is compiled by path.go into a derived
// table or, for *, + and ?, a recursive CTE, and joined against that
// instead of tracker_triples directly.
func (t *Translator) compileTriple(cs *compileState, tp ast.TriplePattern, required bool) error {
	alias := cs.arena.NextAlias("t")

	fromExpr := "tracker_triples"
	if tp.Predicate.Op != ast.PathIRI {
		cteName, err := t.compilePath(cs, tp.Predicate)
		if err != nil {
			return err
		}
		fromExpr = cteName
	}

	joinSQL := fmt.Sprintf("%s %s ON %s", fromExpr, alias, "1=1")
	if required {
		cs.builder = cs.builder.Join(joinSQL)
	} else {
		cs.builder = cs.builder.LeftJoin(joinSQL)
	}

	conds, err := t.bindTerm(cs, tp.Subject, alias, "subject", kindResource)
	if err != nil {
		return err
	}
	for _, c := range conds {
		cs.wheres = append(cs.wheres, c)
	}

	if fromExpr == "tracker_triples" && tp.Predicate.IRI != "" {
		cs.arena.AddParam(tp.Predicate.IRI)
		cs.wheres = append(cs.wheres, fmt.Sprintf("%s.predicate = ?", alias))
	} else if tp.Predicate.Var != "" {
		cs.bindings[tp.Predicate.Var] = varBinding{expr: alias + ".predicate"}
	}

	conds, err = t.bindTerm(cs, tp.Object, alias, "object", t.objectKind(fromExpr, tp.Predicate))
	if err != nil {
		return err
	}
	for _, c := range conds {
		cs.wheres = append(cs.wheres, c)
	}

	return nil
}

// objectKind reports the storage domain a triple's object column holds:
// every property-path traversal (fromExpr is a path CTE, chaining
// Resource ids hop to hop) and every plain predicate whose registered
// DataType is "resource" yields a Resource id; rdf:type's object is a
// class URI string already, not a Resource id, so it is left untagged;
// any other registered DataType drives the matching projection-time
// transform (boolean/date/datetime); an unregistered predicate (no
// Registry, or a variable predicate) is left untagged.
func (t *Translator) objectKind(fromExpr string, predicate ast.PathExpr) bindingKind {
	if fromExpr != "tracker_triples" {
		return kindResource
	}
	if t.Registry == nil || predicate.IRI == "" || predicate.IRI == "rdf:type" {
		return kindPlain
	}
	prop, err := t.Registry.PropertyOf(predicate.IRI)
	if err != nil {
		return kindPlain
	}
	switch prop.DataType {
	case ontology.DataTypeResource:
		return kindResource
	case ontology.DataTypeBoolean:
		return kindBoolean
	case ontology.DataTypeDate:
		return kindDate
	case ontology.DataTypeDateTime:
		return kindDateTime
	default:
		return kindPlain
	}
}

// bindTerm resolves one triple position (subject or object) against
// alias.column: a variable seen for the first time records a new binding
// (tagged with kind, so projection can apply the right transform later)
// and contributes no condition; a variable seen again contributes an
// equality condition against its first binding; a literal contributes an
// equality condition against a bound parameter; an IRI or blank node
// against a column tagged kindResource is resolved through Resource.URI
// first, since the column holds a Resource id, not the URI text itself.
func (t *Translator) bindTerm(cs *compileState, term ast.Term, alias, column string, kind bindingKind) ([]string, error) {
	qualified := alias + "." + column

	switch term.Kind {
	case ast.TermVar:
		existing, ok := cs.bindings[term.Value]
		if !ok {
			cs.bindings[term.Value] = varBinding{expr: qualified, kind: kind}
			return nil, nil
		}
		return []string{fmt.Sprintf("%s = %s", qualified, existing.expr)}, nil

	case ast.TermIRI, ast.TermBlank:
		cs.arena.AddParam(term.Value)
		if kind == kindResource {
			return []string{fmt.Sprintf("CAST(%s AS INTEGER) = (SELECT ID FROM Resource WHERE URI = ?)", qualified)}, nil
		}
		return []string{fmt.Sprintf("%s = ?", qualified)}, nil

	case ast.TermLiteral:
		cs.arena.AddParam(term.Value)
		return []string{fmt.Sprintf("%s = ?", qualified)}, nil

	default:
		return nil, trackererr.Newf(trackererr.KindParse, "translate.bindTerm", "unknown term kind %d", term.Kind)
	}
}

// compileMinus subtracts solutions compatible with e's sub-pattern by
// requiring the outer pattern's first-bound subject resource id not
// appear among the sub-pattern's matching resource ids.
func (t *Translator) compileMinus(cs *compileState, e ast.MinusGroup) error {
	sub := &compileState{arena: cs.arena, bindings: make(map[string]varBinding)}
	sub.builder = squirrel.Select("t0.subject").From("tracker_triples t0").PlaceholderFormat(squirrel.Question)
	if err := t.compileGroupGraphPattern(sub, e.Pattern, true); err != nil {
		return err
	}
	for _, w := range sub.wheres {
		sub.builder = sub.builder.Where(w)
	}
	subSQL, _, err := sub.builder.ToSql()
	if err != nil {
		return trackererr.New(trackererr.KindQuery, "translate.compileMinus", err)
	}
	cs.wheres = append(cs.wheres, fmt.Sprintf("r0.ID NOT IN (%s)", subSQL))
	return nil
}

// compileUnion compiles each alternative as an independent subquery
// selecting the resource id column and combines them with SQL UNION,
// then restricts the outer pattern to resource ids present in that union
// — a resource-id-based approximation of SPARQL's solution-mapping union
// that is exact whenever (as in every case this engine's ontology
// produces) "subject" uniquely identifies the solution's binding of
// interest.
func (t *Translator) compileUnion(cs *compileState, e ast.UnionGroup) error {
	var parts []string
	for _, alt := range e.Alternatives {
		sub := &compileState{arena: cs.arena, bindings: make(map[string]varBinding)}
		sub.builder = squirrel.Select("t0.subject").From("tracker_triples t0").PlaceholderFormat(squirrel.Question)
		if err := t.compileGroupGraphPattern(sub, alt, true); err != nil {
			return err
		}
		for _, w := range sub.wheres {
			sub.builder = sub.builder.Where(w)
		}
		subSQL, _, err := sub.builder.ToSql()
		if err != nil {
			return trackererr.New(trackererr.KindQuery, "translate.compileUnion", err)
		}
		parts = append(parts, subSQL)
	}

	unionSQL := ""
	for i, p := range parts {
		if i > 0 {
			unionSQL += " UNION "
		}
		unionSQL += p
	}
	cs.wheres = append(cs.wheres, fmt.Sprintf("r0.ID IN (%s)", unionSQL))
	return nil
}

// compileGraph scopes e.Pattern to resources belonging to a specific
// named service context, implementing "GRAPH <iri> { ... }" as an added
// Service.ServiceURI equality condition alongside the sub-pattern.
func (t *Translator) compileGraph(cs *compileState, e ast.GraphGroup) error {
	if e.Graph.Kind == ast.TermIRI {
		alias := cs.arena.NextAlias("g")
		cs.builder = cs.builder.Join(fmt.Sprintf("Service %s ON %s.ResourceID = r0.ID", alias, alias))
		cs.arena.AddParam(e.Graph.Value)
		cs.wheres = append(cs.wheres, fmt.Sprintf("%s.ServiceURI = ?", alias))
	}
	return t.compileGroupGraphPattern(cs, e.Pattern, true)
}
