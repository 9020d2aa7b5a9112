// Package parser decodes tree documents into AST programs. A tree document
// is a YAML (or JSON) serialization of the AST itself: every command and
// expression node is spelled out, so decoding is purely structural.
//
//	env:
//	  limit: 3
//	program:
//	  - assign: {x: 0}
//	  - while:
//	      cond: {lt: [x, limit]}
//	      do:
//	        - print: x
//	        - assign: {x: {add: [x, 1]}}
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lemonberrylabs/treewalk/pkg/ast"
	"github.com/lemonberrylabs/treewalk/pkg/types"
	"gopkg.in/yaml.v3"
)

// MaxSourceSize is the maximum tree document size in bytes (128 KB).
const MaxSourceSize = 128 * 1024

// MaxDepth is the maximum nesting depth of commands and expressions.
const MaxDepth = 256

// MaxNodes is the maximum number of commands and expressions a document may
// decode to. Aliases count once per reference.
const MaxNodes = 100000

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var binaryOps = map[string]ast.BinaryOp{
	"add":    ast.OpAdd,
	"sub":    ast.OpSubtract,
	"mul":    ast.OpMultiply,
	"div":    ast.OpDivide,
	"eq":     ast.OpEquals,
	"ne":     ast.OpNotEquals,
	"gt":     ast.OpGreaterThan,
	"lt":     ast.OpLessThan,
	"ge":     ast.OpGreaterOrEqual,
	"le":     ast.OpLessOrEqual,
	"and":    ast.OpAnd,
	"or":     ast.OpOr,
	"assign": ast.OpAssign,
}

var unaryOps = map[string]ast.UnaryOp{
	"neg": ast.OpNegate,
	"not": ast.OpNot,
}

// ParseError represents an error encountered while decoding a tree document.
type ParseError struct {
	Message  string
	Location string // e.g. "program[2].while.do[0]"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Program is a decoded tree document.
type Program struct {
	// Environment holds the document's initial bindings (may be empty).
	Environment map[string]types.Value

	// Body is the top-level block.
	Body *ast.Block
}

// Parse decodes a YAML or JSON tree document. The root is either a sequence
// of commands or a mapping with a required "program" sequence and an
// optional "env" mapping of initial bindings.
func Parse(source []byte) (*Program, error) {
	root, err := decodeRoot(source)
	if err != nil {
		return nil, err
	}

	d := &decoder{}
	prog := &Program{Environment: map[string]types.Value{}}

	switch root.Kind {
	case yaml.SequenceNode:
		stmts, err := d.parseCommands(root, "program")
		if err != nil {
			return nil, err
		}
		prog.Body = &ast.Block{Statements: stmts}

	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			val := root.Content[i+1]

			switch key {
			case "program":
				stmts, err := d.parseCommands(val, "program")
				if err != nil {
					return nil, err
				}
				prog.Body = &ast.Block{Statements: stmts}
			case "env":
				env, err := parseBindings(val, "env")
				if err != nil {
					return nil, err
				}
				prog.Environment = env
			default:
				return nil, &ParseError{Message: fmt.Sprintf("unknown key '%s' in document", key)}
			}
		}
		if prog.Body == nil {
			return nil, &ParseError{Message: "document must have a 'program'"}
		}

	default:
		return nil, &ParseError{Message: "document must be a sequence of commands or a mapping"}
	}

	return prog, nil
}

// ParseEnvironment decodes a standalone mapping of variable names to
// numbers or booleans.
func ParseEnvironment(source []byte) (map[string]types.Value, error) {
	root, err := decodeRoot(source)
	if err != nil {
		return nil, err
	}
	return parseBindings(root, "")
}

// ValidName reports whether name is a legal variable name.
func ValidName(name string) bool {
	return identPattern.MatchString(name)
}

// ParseBinding decodes a "name=value" pair such as "x=3" or "debug=true".
func ParseBinding(s string) (string, types.Value, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok {
		return "", types.Value{}, &ParseError{Message: fmt.Sprintf("binding '%s' must have the form name=value", s)}
	}
	if !identPattern.MatchString(name) {
		return "", types.Value{}, &ParseError{Message: fmt.Sprintf("invalid variable name '%s'", name)}
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil || node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return "", types.Value{}, &ParseError{Message: fmt.Sprintf("invalid value '%s'", raw), Location: name}
	}
	val, err := scalarValue(node.Content[0], name)
	if err != nil {
		return "", types.Value{}, err
	}
	return name, val, nil
}

func decodeRoot(source []byte) (*yaml.Node, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	// The root node is a document node containing the actual content
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty document"}
	}
	return raw.Content[0], nil
}

func parseBindings(node *yaml.Node, loc string) (map[string]types.Value, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "bindings must be a mapping", Location: loc}
	}

	env := make(map[string]types.Value, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		at := join(loc, name)
		if !identPattern.MatchString(name) {
			return nil, &ParseError{Message: fmt.Sprintf("invalid variable name '%s'", name), Location: at}
		}
		val, err := scalarValue(node.Content[i+1], at)
		if err != nil {
			return nil, err
		}
		env[name] = val
	}
	return env, nil
}

// scalarValue decodes a number or boolean scalar.
func scalarValue(node *yaml.Node, loc string) (types.Value, error) {
	node = resolve(node)
	if node.Kind == yaml.ScalarNode {
		switch node.ShortTag() {
		case "!!int", "!!float":
			var f float64
			if err := node.Decode(&f); err != nil {
				return types.Value{}, &ParseError{Message: fmt.Sprintf("invalid number '%s'", node.Value), Location: loc}
			}
			return types.NewNumber(f), nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return types.Value{}, &ParseError{Message: fmt.Sprintf("invalid boolean '%s'", node.Value), Location: loc}
			}
			return types.NewBool(b), nil
		}
	}
	return types.Value{}, &ParseError{Message: "value must be a number or a boolean", Location: loc}
}

// decoder tracks nesting depth and node count while walking commands and
// expressions.
type decoder struct {
	depth int
	nodes int
}

func (d *decoder) enter(loc string) error {
	d.nodes++
	if d.nodes > MaxNodes {
		return &ParseError{Message: fmt.Sprintf("document expands to more than %d nodes", MaxNodes), Location: loc}
	}
	d.depth++
	if d.depth > MaxDepth {
		return &ParseError{Message: fmt.Sprintf("nesting exceeds maximum depth of %d", MaxDepth), Location: loc}
	}
	return nil
}

func (d *decoder) leave() {
	d.depth--
}

func (d *decoder) parseCommands(node *yaml.Node, loc string) ([]ast.Command, error) {
	node = resolve(node)
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "commands must be a sequence", Location: loc}
	}

	stmts := make([]ast.Command, 0, len(node.Content))
	for i, item := range node.Content {
		cmd, err := d.parseCommand(item, fmt.Sprintf("%s[%d]", loc, i))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, cmd)
	}
	return stmts, nil
}

func (d *decoder) parseBlock(node *yaml.Node, loc string) (*ast.Block, error) {
	stmts, err := d.parseCommands(node, loc)
	if err != nil {
		return nil, err
	}
	return &ast.Block{Statements: stmts}, nil
}

func (d *decoder) parseCommand(node *yaml.Node, loc string) (ast.Command, error) {
	if err := d.enter(loc); err != nil {
		return nil, err
	}
	defer d.leave()

	node = resolve(node)
	if node.Kind == yaml.ScalarNode && node.Value == "exit" {
		return &ast.Exit{}, nil
	}
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, &ParseError{Message: "each command must be a single-key mapping", Location: loc}
	}

	key := node.Content[0].Value
	body := resolve(node.Content[1])
	at := join(loc, key)

	switch key {
	case "assign":
		if body.Kind != yaml.MappingNode || len(body.Content) != 2 {
			return nil, &ParseError{Message: "assign must be a single {name: expression} pair", Location: at}
		}
		name := body.Content[0].Value
		if !identPattern.MatchString(name) {
			return nil, &ParseError{Message: fmt.Sprintf("invalid variable name '%s'", name), Location: at}
		}
		value, err := d.parseExpression(body.Content[1], join(at, name))
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Target: &ast.Variable{Name: name}, Value: value}, nil

	case "print":
		e, err := d.parseExpression(body, at)
		if err != nil {
			return nil, err
		}
		return &ast.Print{Expression: e}, nil

	case "block":
		return d.parseBlock(body, at)

	case "if":
		fields, err := fieldsOf(body, at, []string{"cond", "then"}, []string{"else"})
		if err != nil {
			return nil, err
		}
		cond, err := d.parseExpression(fields["cond"], join(at, "cond"))
		if err != nil {
			return nil, err
		}
		then, err := d.parseBlock(fields["then"], join(at, "then"))
		if err != nil {
			return nil, err
		}
		cmd := &ast.If{Condition: cond, Then: then}
		if elseNode, ok := fields["else"]; ok {
			cmd.Else, err = d.parseBlock(elseNode, join(at, "else"))
			if err != nil {
				return nil, err
			}
		}
		return cmd, nil

	case "while":
		fields, err := fieldsOf(body, at, []string{"cond", "do"}, nil)
		if err != nil {
			return nil, err
		}
		cond, err := d.parseExpression(fields["cond"], join(at, "cond"))
		if err != nil {
			return nil, err
		}
		loop, err := d.parseBlock(fields["do"], join(at, "do"))
		if err != nil {
			return nil, err
		}
		return &ast.While{Condition: cond, Body: loop}, nil

	case "exit":
		if body.ShortTag() != "!!null" && !(body.Kind == yaml.MappingNode && len(body.Content) == 0) {
			return nil, &ParseError{Message: "exit takes no arguments", Location: at}
		}
		return &ast.Exit{}, nil

	default:
		return nil, &ParseError{Message: fmt.Sprintf("unknown command '%s'", key), Location: loc}
	}
}

func (d *decoder) parseExpression(node *yaml.Node, loc string) (ast.Expression, error) {
	if err := d.enter(loc); err != nil {
		return nil, err
	}
	defer d.leave()

	node = resolve(node)
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!str" {
			if !identPattern.MatchString(node.Value) {
				return nil, &ParseError{Message: fmt.Sprintf("invalid variable name '%s'", node.Value), Location: loc}
			}
			return &ast.Variable{Name: node.Value}, nil
		}
		val, err := scalarValue(node, loc)
		if err != nil {
			return nil, &ParseError{Message: "expression must be a number, a boolean, a variable name or an operation", Location: loc}
		}
		if val.IsBool() {
			return &ast.Boolean{Value: val.AsBool()}, nil
		}
		return &ast.Number{Value: val.AsNumber()}, nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, &ParseError{Message: "an operation must be a single-key mapping", Location: loc}
		}
		key := node.Content[0].Value
		arg := resolve(node.Content[1])
		at := join(loc, key)

		if key == "var" {
			if arg.Kind != yaml.ScalarNode || !identPattern.MatchString(arg.Value) {
				return nil, &ParseError{Message: fmt.Sprintf("invalid variable name '%s'", arg.Value), Location: at}
			}
			return &ast.Variable{Name: arg.Value}, nil
		}

		if op, ok := unaryOps[key]; ok {
			operand, err := d.parseExpression(arg, at)
			if err != nil {
				return nil, err
			}
			return &ast.UnaryOperation{Operator: op, Operand: operand}, nil
		}

		if op, ok := binaryOps[key]; ok {
			if arg.Kind != yaml.SequenceNode || len(arg.Content) != 2 {
				return nil, &ParseError{Message: fmt.Sprintf("'%s' takes a [left, right] pair", key), Location: at}
			}
			left, err := d.parseExpression(arg.Content[0], at+"[0]")
			if err != nil {
				return nil, err
			}
			right, err := d.parseExpression(arg.Content[1], at+"[1]")
			if err != nil {
				return nil, err
			}
			return &ast.BinaryOperation{Operator: op, Left: left, Right: right}, nil
		}

		return nil, &ParseError{Message: fmt.Sprintf("unknown operator '%s'", key), Location: loc}

	default:
		return nil, &ParseError{Message: "expression must be a scalar or a single-key mapping", Location: loc}
	}
}

// fieldsOf collects the values of a mapping, checking required and
// permitted keys.
func fieldsOf(node *yaml.Node, loc string, required, optional []string) (map[string]*yaml.Node, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "body must be a mapping", Location: loc}
	}

	allowed := make(map[string]bool, len(required)+len(optional))
	for _, k := range required {
		allowed[k] = true
	}
	for _, k := range optional {
		allowed[k] = true
	}

	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !allowed[key] {
			return nil, &ParseError{Message: fmt.Sprintf("unknown key '%s'", key), Location: loc}
		}
		fields[key] = node.Content[i+1]
	}
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return nil, &ParseError{Message: fmt.Sprintf("missing required key '%s'", k), Location: loc}
		}
	}
	return fields, nil
}

// resolve follows YAML aliases to their anchored node.
func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func join(loc, key string) string {
	if loc == "" {
		return key
	}
	return loc + "." + key
}
