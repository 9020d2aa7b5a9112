package ast

import (
	"strings"

	"github.com/lemonberrylabs/treewalk/pkg/types"
)

const indentUnit = "  "

// Format renders a node as indented pseudocode. A top-level Block renders
// its statements one per line without braces.
func Format(node Node) string {
	switch n := node.(type) {
	case nil:
		return "<nil>"
	case Expression:
		return formatExpression(n)
	case *Block:
		if n == nil {
			return "{}"
		}
		var sb strings.Builder
		for i, stmt := range n.Statements {
			if i > 0 {
				sb.WriteByte('\n')
			}
			writeCommand(&sb, stmt, 0)
		}
		return sb.String()
	case Command:
		var sb strings.Builder
		writeCommand(&sb, n, 0)
		return sb.String()
	default:
		return "<" + node.Kind() + ">"
	}
}

func formatExpression(e Expression) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *Number:
		return types.FormatNumber(n.Value)
	case *Boolean:
		if n.Value {
			return "true"
		}
		return "false"
	case *Variable:
		if n == nil {
			return "<nil>"
		}
		return n.Name
	case *UnaryOperation:
		if n.Operator == OpNot {
			return "not " + formatExpression(n.Operand)
		}
		return n.Operator.String() + formatExpression(n.Operand)
	case *BinaryOperation:
		return "(" + formatExpression(n.Left) + " " + n.Operator.String() + " " + formatExpression(n.Right) + ")"
	default:
		return "<" + e.Kind() + ">"
	}
}

func writeCommand(sb *strings.Builder, c Command, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	sb.WriteString(indent)

	switch n := c.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Assignment:
		var target Expression
		if n.Target != nil {
			target = n.Target
		}
		sb.WriteString(formatExpression(target))
		sb.WriteString(" = ")
		sb.WriteString(formatExpression(n.Value))
	case *Print:
		sb.WriteString("print ")
		sb.WriteString(formatExpression(n.Expression))
	case *Exit:
		sb.WriteString("exit")
	case *Block:
		writeBody(sb, n, depth)
	case *If:
		sb.WriteString("if ")
		sb.WriteString(formatExpression(n.Condition))
		sb.WriteByte(' ')
		writeBody(sb, n.Then, depth)
		if n.Else != nil {
			sb.WriteString(" else ")
			writeBody(sb, n.Else, depth)
		}
	case *While:
		sb.WriteString("while ")
		sb.WriteString(formatExpression(n.Condition))
		sb.WriteByte(' ')
		writeBody(sb, n.Body, depth)
	default:
		sb.WriteString("<" + c.Kind() + ">")
	}
}

// writeBody writes a braced block whose closing brace sits at depth.
func writeBody(sb *strings.Builder, b *Block, depth int) {
	if b == nil || len(b.Statements) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{\n")
	for _, stmt := range b.Statements {
		writeCommand(sb, stmt, depth+1)
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat(indentUnit, depth))
	sb.WriteByte('}')
}
