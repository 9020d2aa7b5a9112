package runtime

import (
	"fmt"

	"github.com/lemonberrylabs/treewalk/pkg/ast"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

// Evaluate computes the value of an expression. Binary operands are always
// evaluated left to right, and both are evaluated even for And and Or.
func (in *Interpreter) Evaluate(expr ast.Expression) (types.Value, error) {
	switch n := expr.(type) {
	case *ast.Number:
		return types.NewNumber(n.Value), nil
	case *ast.Boolean:
		return types.NewBool(n.Value), nil
	case *ast.Variable:
		val, ok := in.env.Get(n.Name)
		if !ok {
			return types.Value{}, types.NewUndefinedVariableError(n.Name)
		}
		return val, nil
	case *ast.UnaryOperation:
		return in.evalUnary(n)
	case *ast.BinaryOperation:
		return in.evalBinary(n)
	default:
		return types.Value{}, fmt.Errorf("unsupported expression node type: %T", expr)
	}
}

func (in *Interpreter) evalUnary(n *ast.UnaryOperation) (types.Value, error) {
	operand, err := in.Evaluate(n.Operand)
	if err != nil {
		return types.Value{}, err
	}

	switch n.Operator {
	case ast.OpNegate:
		if !operand.IsNumber() {
			return types.Value{}, mismatch(n, n.Operator.String(), types.TypeNumber, operand)
		}
		return types.NewNumber(-operand.AsNumber()), nil
	case ast.OpNot:
		if !operand.IsBool() {
			return types.Value{}, mismatch(n, n.Operator.String(), types.TypeBool, operand)
		}
		return types.NewBool(!operand.AsBool()), nil
	default:
		return types.Value{}, types.NewUnsupportedOperatorError(fmt.Sprintf("unary(%d)", int(n.Operator))).WithNode(n.String())
	}
}

func (in *Interpreter) evalBinary(n *ast.BinaryOperation) (types.Value, error) {
	if n.Operator == ast.OpAssign {
		return in.evalAssign(n)
	}

	left, err := in.Evaluate(n.Left)
	if err != nil {
		return types.Value{}, err
	}
	right, err := in.Evaluate(n.Right)
	if err != nil {
		return types.Value{}, err
	}

	switch n.Operator {
	case ast.OpAdd:
		return evalArith(n, left, right, func(a, b float64) float64 { return a + b })
	case ast.OpSubtract:
		return evalArith(n, left, right, func(a, b float64) float64 { return a - b })
	case ast.OpMultiply:
		return evalArith(n, left, right, func(a, b float64) float64 { return a * b })
	case ast.OpDivide:
		// IEEE division: x/0 is ±Inf and 0/0 is NaN, not an error.
		return evalArith(n, left, right, func(a, b float64) float64 { return a / b })
	case ast.OpEquals:
		return types.NewBool(left.Equal(right)), nil
	case ast.OpNotEquals:
		return types.NewBool(!left.Equal(right)), nil
	case ast.OpGreaterThan:
		return evalCompare(n, left, right, func(a, b float64) bool { return a > b })
	case ast.OpLessThan:
		return evalCompare(n, left, right, func(a, b float64) bool { return a < b })
	case ast.OpGreaterOrEqual:
		return evalCompare(n, left, right, func(a, b float64) bool { return a >= b })
	case ast.OpLessOrEqual:
		return evalCompare(n, left, right, func(a, b float64) bool { return a <= b })
	case ast.OpAnd:
		return evalLogical(n, left, right, func(a, b bool) bool { return a && b })
	case ast.OpOr:
		return evalLogical(n, left, right, func(a, b bool) bool { return a || b })
	default:
		return types.Value{}, types.NewUnsupportedOperatorError(fmt.Sprintf("binary(%d)", int(n.Operator))).WithNode(n.String())
	}
}

// evalAssign binds the right operand to the variable on the left and yields
// the bound value. The left side is a target, so it is never evaluated.
func (in *Interpreter) evalAssign(n *ast.BinaryOperation) (types.Value, error) {
	target, ok := n.Left.(*ast.Variable)
	if !ok || target == nil {
		return types.Value{}, types.NewInvalidAssignmentTargetError(ast.Format(n.Left)).WithNode(n.String())
	}

	val, err := in.Evaluate(n.Right)
	if err != nil {
		return types.Value{}, err
	}
	in.env.Set(target.Name, val)
	return val, nil
}

func evalArith(n *ast.BinaryOperation, left, right types.Value, op func(float64, float64) float64) (types.Value, error) {
	if err := requireBoth(n, types.TypeNumber, left, right); err != nil {
		return types.Value{}, err
	}
	return types.NewNumber(op(left.AsNumber(), right.AsNumber())), nil
}

func evalCompare(n *ast.BinaryOperation, left, right types.Value, test func(float64, float64) bool) (types.Value, error) {
	if err := requireBoth(n, types.TypeNumber, left, right); err != nil {
		return types.Value{}, err
	}
	return types.NewBool(test(left.AsNumber(), right.AsNumber())), nil
}

func evalLogical(n *ast.BinaryOperation, left, right types.Value, op func(bool, bool) bool) (types.Value, error) {
	if err := requireBoth(n, types.TypeBool, left, right); err != nil {
		return types.Value{}, err
	}
	return types.NewBool(op(left.AsBool(), right.AsBool())), nil
}

// requireBoth checks the left operand first, then the right.
func requireBoth(n *ast.BinaryOperation, want types.ValueType, left, right types.Value) error {
	if left.Type() != want {
		return mismatch(n, n.Operator.String(), want, left)
	}
	if right.Type() != want {
		return mismatch(n, n.Operator.String(), want, right)
	}
	return nil
}

func mismatch(node ast.Expression, op string, want types.ValueType, got types.Value) error {
	return types.NewTypeMismatchError(op, want, got.Type()).WithNode(node.String())
}
