// Package ast defines the abstract syntax tree walked by the interpreter.
// Nodes form two closed families: expressions, which produce a value, and
// commands, which are executed for effect. Nodes hold structure only; all
// semantics live in package runtime.
package ast

// Node is the interface implemented by all AST nodes.
type Node interface {
	// Kind returns the node variant name (e.g. "BinaryOperation").
	Kind() string

	// String renders the node as pseudocode.
	String() string
}

// Expression is a node that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}

// Command is a node executed for its effects.
type Command interface {
	Node
	commandNode()
}

// UnaryOp is a unary operator.
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpNot
)

var unaryNames = [...]string{
	OpNegate: "-",
	OpNot:    "not",
}

// String returns the operator's pseudocode symbol.
func (op UnaryOp) String() string {
	if op < 0 || int(op) >= len(unaryNames) {
		return "?"
	}
	return unaryNames[op]
}

// BinaryOp is a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpEquals
	OpNotEquals
	OpGreaterThan
	OpLessThan
	OpGreaterOrEqual
	OpLessOrEqual
	OpAnd
	OpOr

	// OpAssign binds its right operand to the variable on its left and
	// yields the assigned value.
	OpAssign
)

var binaryNames = [...]string{
	OpAdd:            "+",
	OpSubtract:       "-",
	OpMultiply:       "*",
	OpDivide:         "/",
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreaterThan:    ">",
	OpLessThan:       "<",
	OpGreaterOrEqual: ">=",
	OpLessOrEqual:    "<=",
	OpAnd:            "and",
	OpOr:             "or",
	OpAssign:         "=",
}

// String returns the operator's pseudocode symbol.
func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryNames) {
		return "?"
	}
	return binaryNames[op]
}

// --- Expressions ---

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n *Number) Kind() string    { return "Number" }
func (n *Number) String() string  { return formatExpression(n) }
func (n *Number) expressionNode() {}

// Boolean is a boolean literal.
type Boolean struct {
	Value bool
}

func (n *Boolean) Kind() string    { return "Boolean" }
func (n *Boolean) String() string  { return formatExpression(n) }
func (n *Boolean) expressionNode() {}

// Variable is a reference to a variable, resolved when evaluated.
type Variable struct {
	Name string
}

func (n *Variable) Kind() string    { return "Variable" }
func (n *Variable) String() string  { return n.Name }
func (n *Variable) expressionNode() {}

// UnaryOperation applies a unary operator to an operand.
type UnaryOperation struct {
	Operator UnaryOp
	Operand  Expression
}

func (n *UnaryOperation) Kind() string    { return "UnaryOperation" }
func (n *UnaryOperation) String() string  { return formatExpression(n) }
func (n *UnaryOperation) expressionNode() {}

// BinaryOperation applies a binary operator to two operands. For OpAssign
// the left operand should be a *Variable; anything else is rejected when
// the operation is evaluated.
type BinaryOperation struct {
	Operator BinaryOp
	Left     Expression
	Right    Expression
}

func (n *BinaryOperation) Kind() string    { return "BinaryOperation" }
func (n *BinaryOperation) String() string  { return formatExpression(n) }
func (n *BinaryOperation) expressionNode() {}

// --- Commands ---

// Assignment binds the value of an expression to a variable.
type Assignment struct {
	Target *Variable
	Value  Expression
}

func (n *Assignment) Kind() string   { return "Assignment" }
func (n *Assignment) String() string { return Format(n) }
func (n *Assignment) commandNode()   {}

// Block is an ordered sequence of commands.
type Block struct {
	Statements []Command
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) String() string { return Format(n) }
func (n *Block) commandNode()   {}

// If runs Then when Condition is true, otherwise Else if present.
type If struct {
	Condition Expression
	Then      *Block
	Else      *Block // nil when there is no else branch
}

func (n *If) Kind() string   { return "If" }
func (n *If) String() string { return Format(n) }
func (n *If) commandNode()   {}

// While runs Body for as long as Condition evaluates to true.
type While struct {
	Condition Expression
	Body      *Block
}

func (n *While) Kind() string   { return "While" }
func (n *While) String() string { return Format(n) }
func (n *While) commandNode()   {}

// Print writes the value of an expression to the output sink.
type Print struct {
	Expression Expression
}

func (n *Print) Kind() string   { return "Print" }
func (n *Print) String() string { return Format(n) }
func (n *Print) commandNode()   {}

// Exit stops the program after reporting the final environment.
type Exit struct{}

func (n *Exit) Kind() string   { return "Exit" }
func (n *Exit) String() string { return "exit" }
func (n *Exit) commandNode()   {}
