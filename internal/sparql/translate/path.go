package translate

import (
	"fmt"

	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/trackererr"
)

// compilePath lowers a property-path expression into something usable as
// a FROM-clause source presenting (subject, object) columns: a plain
// derived-table subquery for non-repeating shapes (inverse, sequence,
// alternative, negated property set), or a named recursive CTE — built
// with the same WITH RECURSIVE shape internal/graph/searcher_sql.go uses
// for its caller_chain/callee_chain traversals — for the three repeating
// shapes (*, +, ?).
func (t *Translator) compilePath(cs *compileState, path ast.PathExpr) (string, error) {
	switch path.Op {
	case ast.PathZeroOrMore, ast.PathOneOrMore, ast.PathZeroOrOne:
		return t.compileRepeatingPath(cs, path)
	default:
		sel, err := t.pathSelectSQL(cs, path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s)", sel), nil
	}
}

// pathSelectSQL returns a SELECT statement text (no trailing alias)
// producing (subject, object) rows satisfying path, for the non-repeating
// path shapes. Repeating shapes call this only for their base operand.
func (t *Translator) pathSelectSQL(cs *compileState, path ast.PathExpr) (string, error) {
	switch path.Op {
	case ast.PathIRI:
		cs.arena.AddParam(path.IRI)
		return "SELECT subject, object FROM tracker_triples WHERE predicate = ?", nil

	case ast.PathInverse:
		inner, err := t.pathSelectSQL(cs, path.Sub[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SELECT object AS subject, subject AS object FROM (%s)", inner), nil

	case ast.PathSeq:
		if len(path.Sub) != 2 {
			return "", trackererr.Newf(trackererr.KindParse, "translate.pathSelectSQL", "sequence path needs exactly two operands")
		}
		left, err := t.pathSelectSQL(cs, path.Sub[0])
		if err != nil {
			return "", err
		}
		right, err := t.pathSelectSQL(cs, path.Sub[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"SELECT l.subject AS subject, r.object AS object FROM (%s) l JOIN (%s) r ON l.object = r.subject",
			left, right), nil

	case ast.PathAlt:
		if len(path.Sub) != 2 {
			return "", trackererr.Newf(trackererr.KindParse, "translate.pathSelectSQL", "alternative path needs exactly two operands")
		}
		left, err := t.pathSelectSQL(cs, path.Sub[0])
		if err != nil {
			return "", err
		}
		right, err := t.pathSelectSQL(cs, path.Sub[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s UNION %s", left, right), nil

	case ast.PathNegated:
		placeholders := make([]string, 0, len(path.Sub))
		for _, alt := range path.Sub {
			cs.arena.AddParam(alt.IRI)
			placeholders = append(placeholders, "?")
		}
		in := "("
		for i, p := range placeholders {
			if i > 0 {
				in += ", "
			}
			in += p
		}
		in += ")"
		return "SELECT subject, object FROM tracker_triples WHERE predicate NOT IN " + in, nil

	default:
		return "", trackererr.Newf(trackererr.KindUnsupported, "translate.pathSelectSQL", "unsupported path operator %d", path.Op)
	}
}

// compileRepeatingPath handles *, +, and ? by declaring a recursive CTE
// whose base case is the operand's direct matches and whose recursive
// case extends a known (subject, reached) pair by one more hop, the same
// shape as searcher_sql.go's caller_chain CTE generalized from a fixed
// table join to an arbitrary base-path subquery.
func (t *Translator) compileRepeatingPath(cs *compileState, path ast.PathExpr) (string, error) {
	base, err := t.pathSelectSQL(cs, path.Sub[0])
	if err != nil {
		return "", err
	}

	name := cs.arena.NextAlias("path")
	var body string
	switch path.Op {
	case ast.PathZeroOrMore:
		body = fmt.Sprintf(`
			SELECT r.ID AS subject, r.ID AS object FROM Resource r
			UNION ALL
			SELECT p.subject, b.object FROM %s p JOIN (%s) b ON p.object = b.subject
		`, name, base)
	case ast.PathOneOrMore:
		step, err := t.pathSelectSQL(cs, path.Sub[0])
		if err != nil {
			return "", err
		}
		body = fmt.Sprintf(`
			%s
			UNION ALL
			SELECT p.subject, b.object FROM %s p JOIN (%s) b ON p.object = b.subject
		`, base, name, step)
	case ast.PathZeroOrOne:
		body = fmt.Sprintf(`
			SELECT r.ID AS subject, r.ID AS object FROM Resource r
			UNION
			%s
		`, base)
	}

	cs.arena.DeclareCTE(name, body)
	return name, nil
}
