package engine

import (
	"context"

	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/trackererr"
	"github.com/trackerd/core/internal/update"
)

// resolveDeleteWhere runs dw.Pattern as a SELECT over every variable its
// top-level triple patterns mention, then substitutes each result row's
// bindings back into those triple patterns to produce a concrete delete
// list, turning "DELETE WHERE { pattern }" into the
// Modify{Delete: boundTriples} shape internal/update actually executes.
// Only direct ast.TriplePattern elements of pattern participate in the
// delete template; OPTIONAL/UNION/MINUS/GRAPH sub-patterns may still
// narrow which rows match but are not themselves deleted from, matching
// SPARQL 1.1's requirement that DELETE WHERE's template come from BGP
// triples.
func (e *Engine) resolveDeleteWhere(ctx context.Context, dw update.DeleteWhere) (update.Modify, error) {
	var templates []ast.TriplePattern
	varSet := make(map[string]bool)
	var varOrder []string

	collectVar := func(t ast.Term) {
		if t.Kind != ast.TermVar {
			return
		}
		if !varSet[t.Value] {
			varSet[t.Value] = true
			varOrder = append(varOrder, t.Value)
		}
	}

	for _, el := range dw.Pattern.Elements {
		tp, ok := el.(ast.TriplePattern)
		if !ok {
			continue
		}
		templates = append(templates, tp)
		collectVar(tp.Subject)
		collectVar(tp.Object)
	}

	if len(templates) == 0 {
		return update.Modify{}, trackererr.Newf(trackererr.KindUnsupported, "engine.resolveDeleteWhere",
			"DELETE WHERE pattern has no top-level triple pattern to delete from")
	}

	projection := make([]ast.ProjectionTerm, 0, len(varOrder))
	for _, v := range varOrder {
		projection = append(projection, ast.ProjectionTerm{Var: v})
	}

	query := &ast.Query{Projection: projection, Where: dw.Pattern}
	prepared, err := e.PrepareQuery(query)
	if err != nil {
		return update.Modify{}, err
	}

	cursor, err := prepared.Execute(ctx)
	if err != nil {
		return update.Modify{}, trackererr.New(trackererr.KindQuery, "engine.resolveDeleteWhere", err)
	}
	defer cursor.Close()

	var deletes []update.Triple
	vals := make([]string, len(varOrder))
	dest := make([]any, len(varOrder))
	for i := range dest {
		dest[i] = &vals[i]
	}

	for cursor.Next() {
		if err := cursor.Scan(dest...); err != nil {
			return update.Modify{}, trackererr.New(trackererr.KindQuery, "engine.resolveDeleteWhere", err)
		}
		row := make(map[string]string, len(varOrder))
		for i, v := range varOrder {
			row[v] = vals[i]
		}
		for _, tp := range templates {
			if tp.Predicate.Op != ast.PathIRI {
				return update.Modify{}, trackererr.Newf(trackererr.KindUnsupported, "engine.resolveDeleteWhere",
					"DELETE WHERE only supports plain-IRI predicates, got path op %v", tp.Predicate.Op)
			}
			deletes = append(deletes, update.Triple{
				Subject:   e.bindDeleteTerm(tp.Subject, row, ""),
				Predicate: tp.Predicate.IRI,
				Object:    e.bindDeleteTerm(tp.Object, row, tp.Predicate.IRI),
			})
		}
	}
	if err := cursor.Err(); err != nil {
		return update.Modify{}, trackererr.New(trackererr.KindQuery, "engine.resolveDeleteWhere", err)
	}

	return update.Modify{Delete: deletes, Where: dw.Pattern}, nil
}

// bindDeleteTerm resolves a (possibly variable) pattern term against a
// result row. A bound subject is always an IRI (it is always a resource
// identity); a bound object's kind follows the predicate's registered
// DataType when known (resource properties and rdf:type bind an IRI,
// everything else binds a literal), falling back to literal for an
// unknown predicate.
func (e *Engine) bindDeleteTerm(t ast.Term, row map[string]string, predicate string) ast.Term {
	if t.Kind != ast.TermVar {
		return t
	}
	value := row[t.Value]

	if predicate == "" || predicate == "rdf:type" {
		return ast.Term{Kind: ast.TermIRI, Value: value}
	}
	if prop, err := e.reg.PropertyOf(predicate); err == nil && prop.DataType == ontology.DataTypeResource {
		return ast.Term{Kind: ast.TermIRI, Value: value}
	}
	return ast.Term{Kind: ast.TermLiteral, Value: value}
}

func (e *Engine) resolveOperation(ctx context.Context, op update.Operation) (update.Operation, error) {
	dw, ok := op.(update.DeleteWhere)
	if !ok {
		return op, nil
	}
	return e.resolveDeleteWhere(ctx, dw)
}
