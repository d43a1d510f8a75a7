package translate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
)

const typedPropertiesYAML = `
properties:
  - uri: nco:knows
    dataType: resource
  - uri: nco:isOnline
    dataType: boolean
  - uri: nco:birthDate
    dataType: date
  - uri: nco:lastContacted
    dataType: datetime
services:
  - uri: nco:Contact
    hasMetadata: true
`

func loadTypedRegistry(t *testing.T) *ontology.Registry {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yml"), []byte(typedPropertiesYAML), 0o644))
	reg, err := ontology.Load(dir)
	require.NoError(t, err)
	return reg
}

func varTerm(name string) ast.Term  { return ast.Term{Kind: ast.TermVar, Value: name} }
func iriTerm(iri string) ast.Term   { return ast.Term{Kind: ast.TermIRI, Value: iri} }
func directPath(iri string) ast.PathExpr {
	return ast.PathExpr{Op: ast.PathIRI, IRI: iri}
}

func TestTranslateSimpleTriplePattern(t *testing.T) {
	t.Parallel()

	tr := New(nil)
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

	sqlText, args, err := tr.Translate(query)
	require.NoError(t, err)
	assert.Contains(t, sqlText, "tracker_triples")
	assert.Contains(t, sqlText, `AS "title"`)
	require.Len(t, args, 1)
	assert.Equal(t, "nie:title", args[0])
}

func TestTranslateFilterAddsWhereClause(t *testing.T) {
	t.Parallel()

	tr := New(nil)
	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "f"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   varTerm("f"),
					Predicate: directPath("nie:title"),
					Object:    varTerm("title"),
				},
				ast.FilterElement{
					Expr: ast.BinaryExpr{
						Op:    "=",
						Left:  ast.VarExpr{Name: "title"},
						Right: ast.LiteralExpr{Term: ast.Term{Kind: ast.TermLiteral, Value: "Quarterly Report"}},
					},
				},
			},
		},
	}

	sqlText, args, err := tr.Translate(query)
	require.NoError(t, err)
	assert.True(t, strings.Contains(sqlText, "WHERE"))
	require.Len(t, args, 2)
	assert.Equal(t, "Quarterly Report", args[1])
}

func TestTranslateOneOrMorePathDeclaresRecursiveCTE(t *testing.T) {
	t.Parallel()

	tr := New(nil)
	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "ancestor"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject: varTerm("f"),
					Predicate: ast.PathExpr{
						Op:  ast.PathOneOrMore,
						Sub: []ast.PathExpr{directPath("nie:isPartOf")},
					},
					Object: varTerm("ancestor"),
				},
			},
		},
	}

	sqlText, _, err := tr.Translate(query)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sqlText, "WITH RECURSIVE"))
}

func TestTranslateUnknownProjectedVariableErrors(t *testing.T) {
	t.Parallel()

	tr := New(nil)
	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "nowhere"}},
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

	_, _, err := tr.Translate(query)
	assert.Error(t, err)
}

func TestTranslateResourceTypedProjectionResolvesURI(t *testing.T) {
	t.Parallel()

	tr := New(loadTypedRegistry(t))
	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "known"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   varTerm("f"),
					Predicate: directPath("nco:knows"),
					Object:    varTerm("known"),
				},
			},
		},
	}

	sqlText, _, err := tr.Translate(query)
	require.NoError(t, err)
	assert.Contains(t, sqlText, `(SELECT URI FROM Resource WHERE ID = CAST(t1.object AS INTEGER)) AS "known"`)
}

func TestTranslateBooleanDateAndDateTimeProjections(t *testing.T) {
	t.Parallel()

	tr := New(loadTypedRegistry(t))

	newQuery := func(predicate, varName string) *ast.Query {
		return &ast.Query{
			Projection: []ast.ProjectionTerm{{Var: varName}},
			Where: ast.GroupGraphPattern{
				Elements: []ast.PatternElement{
					ast.TriplePattern{
						Subject:   varTerm("f"),
						Predicate: directPath(predicate),
						Object:    varTerm(varName),
					},
				},
			},
		}
	}

	sqlText, _, err := tr.Translate(newQuery("nco:isOnline", "online"))
	require.NoError(t, err)
	assert.Contains(t, sqlText, `CASE WHEN t1.object THEN 'true' ELSE 'false' END`)

	sqlText, _, err = tr.Translate(newQuery("nco:birthDate", "born"))
	require.NoError(t, err)
	assert.Contains(t, sqlText, `strftime('%Y-%m-%d', t1.object, 'unixepoch') AS "born"`)

	sqlText, _, err = tr.Translate(newQuery("nco:lastContacted", "seen"))
	require.NoError(t, err)
	assert.Contains(t, sqlText, `sparqlformattime(t1.object) AS "seen"`)
	assert.Contains(t, sqlText, `AS "seen:local"`)
}

func TestTranslateAnchorsResourceBaseToConstantSubject(t *testing.T) {
	t.Parallel()

	tr := New(nil)
	query := &ast.Query{
		Projection: []ast.ProjectionTerm{{Var: "title"}},
		Where: ast.GroupGraphPattern{
			Elements: []ast.PatternElement{
				ast.TriplePattern{
					Subject:   iriTerm("file:///tmp/report.txt"),
					Predicate: directPath("nie:title"),
					Object:    varTerm("title"),
				},
			},
		},
	}

	sqlText, args, err := tr.Translate(query)
	require.NoError(t, err)
	assert.Contains(t, sqlText, "r0.ID = (SELECT ID FROM Resource WHERE URI = ?)")
	// Params appear in compile order: the triple's own subject comparison,
	// then the predicate equality, then the r0 anchor's repeated subject.
	require.Len(t, args, 3)
	assert.Equal(t, "file:///tmp/report.txt", args[0])
	assert.Equal(t, "nie:title", args[1])
	assert.Equal(t, "file:///tmp/report.txt", args[2])
}
