package translate

import (
	"fmt"
	"strings"

	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/sparql/sqlfuncs"
	"github.com/trackerd/core/internal/trackererr"
)

// compileExpr recursively lowers a SPARQL filter/bind expression to a
// SQLite scalar expression string, binding every literal it encounters as
// a '?' placeholder via cs.arena so the same left-to-right ordering
// discipline as bindTerm holds.
func (t *Translator) compileExpr(cs *compileState, e ast.Expr) (string, error) {
	switch ex := e.(type) {
	case ast.VarExpr:
		b, ok := cs.bindings[ex.Name]
		if !ok {
			return "", trackererr.Newf(trackererr.KindParse, "translate.compileExpr",
				"variable %q used before being bound", ex.Name)
		}
		return b.expr, nil

	case ast.LiteralExpr:
		cs.arena.AddParam(literalSQLValue(ex.Term))
		return "?", nil

	case ast.UnaryExpr:
		operand, err := t.compileExpr(cs, ex.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s%s)", sqlUnaryOp(ex.Op), operand), nil

	case ast.BinaryExpr:
		left, err := t.compileExpr(cs, ex.Left)
		if err != nil {
			return "", err
		}
		right, err := t.compileExpr(cs, ex.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, sqlBinaryOp(ex.Op), right), nil

	case ast.CallExpr:
		return t.compileCall(cs, ex)

	default:
		return "", trackererr.Newf(trackererr.KindUnsupported, "translate.compileExpr", "unsupported expression %T", e)
	}
}

func literalSQLValue(term ast.Term) any {
	return term.Value
}

func sqlUnaryOp(op string) string {
	if op == "!" {
		return "NOT "
	}
	return op
}

func sqlBinaryOp(op string) string {
	switch op {
	case "&&":
		return "AND"
	case "||":
		return "OR"
	case "=":
		return "="
	default:
		return op
	}
}

// aggregateNames is the set of SPARQL aggregate functions, compiled
// directly to their SQLite equivalents rather than dispatched through
// sqlfuncs, since aggregates need GROUP BY context sqlfuncs has no
// visibility into.
var aggregateNames = map[string]string{
	"COUNT": "COUNT", "SUM": "SUM", "AVG": "AVG", "MIN": "MIN", "MAX": "MAX",
	"GROUP_CONCAT": "GROUP_CONCAT", "SAMPLE": "MAX",
}

func (t *Translator) compileCall(cs *compileState, call ast.CallExpr) (string, error) {
	name := strings.ToUpper(call.Name)

	if sqlName, ok := aggregateNames[name]; ok {
		if len(call.Args) != 1 {
			return "", trackererr.Newf(trackererr.KindParse, "translate.compileCall", "%s takes exactly one argument", name)
		}
		if name == "COUNT" {
			if _, isStar := call.Args[0].(ast.VarExpr); !isStar && len(call.Args) == 0 {
				return "COUNT(*)", nil
			}
		}
		arg, err := t.compileExpr(cs, call.Args[0])
		if err != nil {
			return "", err
		}
		if call.Distinct {
			return fmt.Sprintf("%s(DISTINCT %s)", sqlName, arg), nil
		}
		return fmt.Sprintf("%s(%s)", sqlName, arg), nil
	}

	if name == "EXISTS" || name == "NOT EXISTS" {
		return "", trackererr.Newf(trackererr.KindUnsupported, "translate.compileCall", "%s is not supported", name)
	}

	args := make([]string, 0, len(call.Args))
	for _, a := range call.Args {
		sqlExpr, err := t.compileExpr(cs, a)
		if err != nil {
			return "", err
		}
		args = append(args, sqlExpr)
	}

	if template, ok := sqlfuncs.InlineForm(name); ok {
		if strings.Count(template, "%s") > 1 || strings.Contains(template, "%[1]s") {
			return fmt.Sprintf(template, args[0]), nil
		}
		if len(args) != 1 {
			return "", trackererr.Newf(trackererr.KindParse, "translate.compileCall", "%s takes exactly one argument", name)
		}
		return fmt.Sprintf(template, args[0]), nil
	}

	if sqlExpr, ok := sqlfuncs.VariadicInlineForm(name, args); ok {
		return sqlExpr, nil
	}

	if sqlfuncs.IsRuntimeFunction(name) {
		return fmt.Sprintf("%s(%s)", strings.ToLower(name), strings.Join(args, ", ")), nil
	}

	return "", trackererr.Newf(trackererr.KindUnsupported, "translate.compileCall", "unknown built-in %q", call.Name)
}
