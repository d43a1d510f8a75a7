package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/trackconfig"
	"github.com/trackerd/core/internal/update"
)

const testOntologyYAML = `
properties:
  - uri: nie:title
    dataType: string
    weight: 5
  - uri: nie:plainTextContent
    dataType: fulltext
    weight: 10
  - uri: nco:knows
    dataType: resource
    multipleValues: true
services:
  - uri: nfo:Document
    hasMetadata: true
    hasFulltext: true
    keyMetadata: [nie:title]
  - uri: nco:Contact
    hasMetadata: true
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yml"), []byte(testOntologyYAML), 0o644))

	cfg := trackconfig.Default()
	cfg.Database.Path = filepath.Join(dir, "meta.db")
	cfg.Index.Path = filepath.Join(dir, "words.idx")
	cfg.Index.Divisions = 1
	cfg.Parser.StopWordsPath = filepath.Join(dir, "missing-stopwords.yml")

	e, err := Open(cfg, dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func varTerm(name string) ast.Term { return ast.Term{Kind: ast.TermVar, Value: name} }
func directPath(iri string) ast.PathExpr {
	return ast.PathExpr{Op: ast.PathIRI, IRI: iri}
}

func insertReportTriples() []update.Operation {
	return []update.Operation{
		update.InsertData{Triples: []update.Triple{
			{
				Subject:   ast.Term{Kind: ast.TermIRI, Value: "file:///tmp/report.txt"},
				Predicate: "rdf:type",
				Object:    ast.Term{Kind: ast.TermIRI, Value: "nfo:Document"},
			},
			{
				Subject:   ast.Term{Kind: ast.TermIRI, Value: "file:///tmp/report.txt"},
				Predicate: "nie:title",
				Object:    ast.Term{Kind: ast.TermLiteral, Value: "Quarterly Report"},
			},
			{
				Subject:   ast.Term{Kind: ast.TermIRI, Value: "file:///tmp/report.txt"},
				Predicate: "nie:plainTextContent",
				Object:    ast.Term{Kind: ast.TermLiteral, Value: "quarterly revenue numbers"},
			},
		}},
	}
}

func TestEngineInsertAndQueryRoundTrip(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.ExecuteUpdate(ctx, insertReportTriples()))

	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "title"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   varTerm("f"),
					Predicate: directPath("nie:title"),
					Object:    varTerm("title"),
				},
			},
		},
	}

	prepared, err := e.PrepareQuery(query)
	require.NoError(t, err)

	cursor, err := prepared.Execute(ctx)
	require.NoError(t, err)
	defer cursor.Close()

	var titles []string
	for cursor.Next() {
		var title string
		require.NoError(t, cursor.Scan(&title))
		titles = append(titles, title)
	}
	require.NoError(t, cursor.Err())
	require.Contains(t, titles, "Quarterly Report")
}

func TestEngineSearchWordsRanksResults(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.ExecuteUpdate(ctx, insertReportTriples()))

	hits, err := e.SearchWords(ctx, []string{"quarterli"}, 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}

func TestEngineDeleteWhereRemovesBoundTriples(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.ExecuteUpdate(ctx, insertReportTriples()))

	dw := update.DeleteWhere{
		Pattern: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   varTerm("f"),
					Predicate: directPath("nie:title"),
					Object:    varTerm("title"),
				},
			},
		},
	}
	require.NoError(t, e.ExecuteUpdate(ctx, []update.Operation{dw}))

	var count int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM ServiceMetaData WHERE PropertyURI = 'nie:title'`).Scan(&count))
	require.Equal(t, 0, count)
}

func insertContactGraphTriples() []update.Operation {
	contact := func(uri string) update.Triple {
		return update.Triple{
			Subject:   ast.Term{Kind: ast.TermIRI, Value: uri},
			Predicate: "rdf:type",
			Object:    ast.Term{Kind: ast.TermIRI, Value: "nco:Contact"},
		}
	}
	knows := func(from, to string) update.Triple {
		return update.Triple{
			Subject:   ast.Term{Kind: ast.TermIRI, Value: from},
			Predicate: "nco:knows",
			Object:    ast.Term{Kind: ast.TermIRI, Value: to},
		}
	}
	return []update.Operation{update.InsertData{Triples: []update.Triple{
		contact("urn:contact:alice"),
		contact("urn:contact:bob"),
		contact("urn:contact:carol"),
		knows("urn:contact:alice", "urn:contact:bob"),
		knows("urn:contact:bob", "urn:contact:carol"),
	}}}
}

func TestEngineResourceEdgeRoundTrip(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.ExecuteUpdate(ctx, insertContactGraphTriples()))

	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "known"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   ast.Term{Kind: ast.TermIRI, Value: "urn:contact:alice"},
					Predicate: directPath("nco:knows"),
					Object:    varTerm("known"),
				},
			},
		},
	}
	prepared, err := e.PrepareQuery(query)
	require.NoError(t, err)

	cursor, err := prepared.Execute(ctx)
	require.NoError(t, err)
	defer cursor.Close()

	var known []string
	for cursor.Next() {
		var uri string
		require.NoError(t, cursor.Scan(&uri))
		known = append(known, uri)
	}
	require.NoError(t, cursor.Err())
	require.Equal(t, []string{"urn:contact:bob"}, known)
}

func TestEngineResourcePropertyPathTraversal(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.ExecuteUpdate(ctx, insertContactGraphTriples()))

	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "reached"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject: ast.Term{Kind: ast.TermIRI, Value: "urn:contact:alice"},
					Predicate: ast.PathExpr{
						Op:  ast.PathOneOrMore,
						Sub: []ast.PathExpr{directPath("nco:knows")},
					},
					Object: varTerm("reached"),
				},
			},
		},
	}
	prepared, err := e.PrepareQuery(query)
	require.NoError(t, err)

	cursor, err := prepared.Execute(ctx)
	require.NoError(t, err)
	defer cursor.Close()

	var reached []string
	for cursor.Next() {
		var uri string
		require.NoError(t, cursor.Scan(&uri))
		reached = append(reached, uri)
	}
	require.NoError(t, cursor.Err())
	require.ElementsMatch(t, []string{"urn:contact:bob", "urn:contact:carol"}, reached)
}

func TestEngineCursorTracksActiveCount(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.ExecuteUpdate(ctx, insertReportTriples()))

	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "f"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   varTerm("f"),
					Predicate: directPath("nie:title"),
					Object:    varTerm("title"),
				},
			},
		},
	}
	prepared, err := e.PrepareQuery(query)
	require.NoError(t, err)

	cursor, err := prepared.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), e.activeCursors.Load())

	for cursor.Next() {
		var f string
		require.NoError(t, cursor.Scan(&f))
	}
	require.Equal(t, int64(0), e.activeCursors.Load())
}
