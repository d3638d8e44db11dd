package expression

import (
	"fmt"
	"strings"
)

// PrintAST renders expr in fully parenthesized prefix form, e.g.
// (* (- 123) (group 45.67)). Literals print their display form.
func PrintAST(expr Expr) string {
	var b strings.Builder
	renderAST(&b, expr)
	return b.String()
}

func renderAST(b *strings.Builder, expr Expr) {
	switch ex := expr.(type) {
	case *LiteralExpr:
		b.WriteString(ex.Value.String())

	case *GroupingExpr:
		b.WriteString("(group ")
		renderAST(b, ex.Expr)
		b.WriteByte(')')

	case *UnaryExpr:
		b.WriteByte('(')
		b.WriteString(ex.Operator.String())
		b.WriteByte(' ')
		renderAST(b, ex.Right)
		b.WriteByte(')')

	case *BinaryExpr:
		b.WriteByte('(')
		b.WriteString(ex.Operator.String())
		b.WriteByte(' ')
		renderAST(b, ex.Left)
		b.WriteByte(' ')
		renderAST(b, ex.Right)
		b.WriteByte(')')

	case nil:
		b.WriteString("nil")

	default:
		fmt.Fprintf(b, "<%T>", expr)
	}
}
