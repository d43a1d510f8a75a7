// Package update executes SPARQL 1.1 Update operations (INSERT DATA,
// DELETE DATA, DELETE WHERE, DELETE/INSERT ... WHERE) against the store,
// maintaining the inverted word index differentially as it writes,
// mirroring the write side of tracker-indexer.c's
// tracker_indexer_update_word / commit flow in Go.
package update

import "github.com/trackerd/core/internal/sparql/ast"

// Triple is one RDF triple as it appears in an update request's data
// block: Predicate is always a plain IRI here (update data blocks never
// carry property-path expressions, only query WHERE clauses do).
type Triple struct {
	Subject   ast.Term
	Predicate string
	Object    ast.Term
}

// Operation is the sum type for the four update forms this executor
// supports; CONSTRUCT-like forms with a non-trivial WHERE are modeled by
// Modify with a nil Insert or Delete list for the DELETE WHERE / INSERT-
// only shapes.
type Operation interface{ isOperation() }

// InsertData is "INSERT DATA { triples }": every subject/object/blank
// node is data, never matched against existing state.
type InsertData struct{ Triples []Triple }

func (InsertData) isOperation() {}

// DeleteData is "DELETE DATA { triples }": every triple must already
// exist with concrete terms (no blank nodes, no variables).
type DeleteData struct{ Triples []Triple }

func (DeleteData) isOperation() {}

// DeleteWhere is "DELETE WHERE { pattern }": the pattern is both the
// delete template and the match condition (every variable in it is
// bound by matching, then deleted using those bindings).
type DeleteWhere struct{ Pattern ast.GroupGraphPattern }

func (DeleteWhere) isOperation() {}

// Modify is "[WITH g] DELETE {...} INSERT {...} WHERE { pattern }":
// either Delete or Insert may be empty (an insert-only or delete-only
// modify). The Executor does not evaluate Where: it deletes every Delete
// triple and then inserts every Insert triple exactly as given, with no
// variable substitution.
type Modify struct {
	Delete  []Triple
	Insert  []Triple
	Where   ast.GroupGraphPattern
}

func (Modify) isOperation() {}
