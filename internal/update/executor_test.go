package update

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/trackerd/core/internal/invindex"
	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/store"
	"github.com/trackerd/core/internal/termparser"
	"github.com/trackerd/core/internal/trackconfig"
)

const testOntologyYAML = `
properties:
  - uri: nie:title
    dataType: string
    weight: 5
  - uri: nie:plainTextContent
    dataType: fulltext
    weight: 10
services:
  - uri: nfo:Document
    hasMetadata: true
    hasFulltext: true
    keyMetadata: [nie:title]
`

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yml"), []byte(testOntologyYAML), 0o644))
	reg, err := ontology.Load(dir)
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.CreateSchema(db))

	idxCfg := trackconfig.Default().Index
	idxCfg.Path = filepath.Join(dir, "words.idx")
	idxCfg.Divisions = 1
	idx, err := invindex.Open(idxCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	parser := termparser.New(trackconfig.Default().Parser, nil)

	return New(db, reg, idx, parser)
}

func TestExecuteUpdateInsertDataCreatesResourceAndService(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)
	ops := []Operation{
		InsertData{Triples: []Triple{
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

	require.NoError(t, e.ExecuteUpdate(context.Background(), ops))

	var title string
	err := e.db.QueryRow(`SELECT MetaDataValue FROM ServiceMetaData WHERE PropertyURI = 'nie:title'`).Scan(&title)
	require.NoError(t, err)
	require.Equal(t, "Quarterly Report", title)

	hits, err := e.index.GetHitsSingle("quarterli", 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}

func TestExecuteUpdateInsertDataWithBlankNode(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)
	ops := []Operation{
		InsertData{Triples: []Triple{
			{
				Subject:   ast.Term{Kind: ast.TermBlank, Value: "b0"},
				Predicate: "rdf:type",
				Object:    ast.Term{Kind: ast.TermIRI, Value: "nfo:Document"},
			},
		}},
	}
	require.NoError(t, e.ExecuteUpdate(context.Background(), ops))

	var count int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM Resource WHERE URI LIKE 'urn:uuid:%'`).Scan(&count))
	require.Equal(t, 1, count)
}
