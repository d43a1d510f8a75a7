package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trackerd/core/internal/sparql/ast"
)

var (
	queryTriples  []string
	queryProject  []string
	queryFilterEq []string
	queryLimit    int
	queryOffset   int
	queryDistinct bool
	queryJSON     bool
)

// queryCmd runs a SPARQL-shaped SELECT assembled from flags. Full SPARQL
// text parsing is out of scope for this engine (the ast package is built
// by an upstream grammar-generated parser); this command drives the same
// ast.Query/engine.PrepareQuery path a real parser's output would, using
// a flag-based shorthand for triple patterns instead.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a SELECT query against the metadata store",
	Long: `query assembles a SELECT from --triple and --project flags and runs it.

Each --triple has the shape subjectVar:predicateIRI:objectVar, e.g.:

  tracker query --triple f:nie:title:title --project title

--filter-eq var:value adds an equality FILTER on a projected or
pattern-bound variable.`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringArrayVar(&queryTriples, "triple", nil, "subjectVar:predicateIRI:objectVar triple pattern (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryProject, "project", nil, "variable to project (repeatable, default: all pattern variables)")
	queryCmd.Flags().StringArrayVar(&queryFilterEq, "filter-eq", nil, "var:value equality filter (repeatable)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "row limit (0 = unbounded)")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "row offset")
	queryCmd.Flags().BoolVar(&queryDistinct, "distinct", false, "SELECT DISTINCT")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "emit results as JSON instead of a table")
}

func parseTripleFlag(raw string) (ast.TriplePattern, error) {
	// The subject ends at the first colon and the object starts after the
	// last one, so the predicate IRI in between may itself contain colons.
	first := strings.Index(raw, ":")
	last := strings.LastIndex(raw, ":")
	if first < 0 || last == first {
		return ast.TriplePattern{}, fmt.Errorf("invalid --triple %q, expected subjectVar:predicateIRI:objectVar", raw)
	}
	return ast.TriplePattern{
		Subject:   ast.Term{Kind: ast.TermVar, Value: raw[:first]},
		Predicate: ast.PathExpr{Op: ast.PathIRI, IRI: raw[first+1 : last]},
		Object:    ast.Term{Kind: ast.TermVar, Value: raw[last+1:]},
	}, nil
}

func buildQuery() (*ast.Query, error) {
	if len(queryTriples) == 0 {
		return nil, fmt.Errorf("at least one --triple is required")
	}

	var elements []ast.PatternElement
	seenVars := make(map[string]bool)
	var varOrder []string
	trackVar := func(name string) {
		if !seenVars[name] {
			seenVars[name] = true
			varOrder = append(varOrder, name)
		}
	}

	for _, raw := range queryTriples {
		tp, err := parseTripleFlag(raw)
		if err != nil {
			return nil, err
		}
		elements = append(elements, tp)
		trackVar(tp.Subject.Value)
		trackVar(tp.Object.Value)
	}

	for _, raw := range queryFilterEq {
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --filter-eq %q, expected var:value", raw)
		}
		elements = append(elements, ast.FilterElement{
			Expr: ast.BinaryExpr{
				Op:   "=",
				Left: ast.VarExpr{Name: parts[0]},
				Right: ast.LiteralExpr{Term: ast.Term{
					Kind:  ast.TermLiteral,
					Value: parts[1],
				}},
			},
		})
	}

	projection := queryProject
	if len(projection) == 0 {
		projection = varOrder
	}
	projTerms := make([]ast.ProjectionTerm, 0, len(projection))
	for _, v := range projection {
		projTerms = append(projTerms, ast.ProjectionTerm{Var: v})
	}

	return &ast.Query{
		Distinct:   queryDistinct,
		Projection: projTerms,
		Where:      ast.GroupGraphPattern{Elements: elements},
		Limit:      queryLimit,
		Offset:     queryOffset,
	}, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	query, err := buildQuery()
	if err != nil {
		return err
	}

	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	prepared, err := e.PrepareQuery(query)
	if err != nil {
		return fmt.Errorf("query translation failed: %w", err)
	}
	if verbose {
		fmt.Fprintln(os.Stderr, prepared.SQL())
	}

	ctx := context.Background()
	cursor, err := prepared.Execute(ctx)
	if err != nil {
		return fmt.Errorf("query execution failed: %w", err)
	}
	defer cursor.Close()

	if queryJSON {
		return printRowsJSON(cursor)
	}
	return printRows(cursor)
}

type rowCursor interface {
	Columns() []string
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStringRows(cursor rowCursor) ([]string, [][]string, error) {
	cols := cursor.Columns()
	dest := make([]any, len(cols))
	vals := make([]string, len(cols))
	for i := range dest {
		dest[i] = &vals[i]
	}

	var rows [][]string
	for cursor.Next() {
		if err := cursor.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}
		row := make([]string, len(vals))
		copy(row, vals)
		rows = append(rows, row)
	}
	if err := cursor.Err(); err != nil {
		return nil, nil, fmt.Errorf("cursor error: %w", err)
	}
	return cols, rows, nil
}

func printRows(cursor rowCursor) error {
	cols, rows, err := scanStringRows(cursor)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "(%d rows)\n", len(rows))
	return nil
}

func printRowsJSON(cursor rowCursor) error {
	cols, rows, err := scanStringRows(cursor)
	if err != nil {
		return err
	}
	return writeQueryResultJSON(&queryResult{Columns: cols, Rows: rows})
}
