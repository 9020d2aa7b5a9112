package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lemonberrylabs/treewalk/pkg/ast"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

// Outcome tells the enclosing command whether to proceed with subsequent
// statements or to halt the run.
type Outcome int

const (
	OutcomeContinue  Outcome = iota
	OutcomeTerminate         // an Exit command ran
)

func (o Outcome) String() string {
	if o == OutcomeTerminate {
		return "terminate"
	}
	return "continue"
}

// Status is how a successful run ended.
type Status int

const (
	StatusCompleted  Status = iota // ran off the end of the program
	StatusTerminated               // stopped by Exit
)

func (s Status) String() string {
	if s == StatusTerminated {
		return "terminated"
	}
	return "completed"
}

// Result describes a run that did not fail. Failures are reported through
// the error return instead.
type Result struct {
	Status Status

	// Steps is the number of commands executed.
	Steps int
}

// Options configures an Interpreter.
type Options struct {
	// Output receives one line per Print and per Exit report.
	// Defaults to os.Stdout.
	Output io.Writer

	// MaxSteps bounds the number of commands a run may execute.
	// Zero means unlimited.
	MaxSteps int
}

// Interpreter evaluates expressions and executes commands against a single
// Environment. It is not safe for concurrent use.
type Interpreter struct {
	env      *Environment
	out      io.Writer
	maxSteps int
	steps    int
}

// NewInterpreter creates an interpreter whose environment is seeded with a
// copy of initial (which may be nil).
func NewInterpreter(initial map[string]types.Value, opts Options) *Interpreter {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Interpreter{
		env:      NewEnvironment(initial),
		out:      out,
		maxSteps: opts.MaxSteps,
	}
}

// Environment returns the interpreter's live environment. It remains valid
// after a run completes, exits, or fails.
func (in *Interpreter) Environment() *Environment {
	return in.env
}

// Execute runs program to completion or until an Exit command. Output is
// written only when allowOutput is set; expressions are evaluated either way.
func (in *Interpreter) Execute(program *ast.Block, allowOutput bool) (Result, error) {
	return in.ExecuteContext(context.Background(), program, allowOutput)
}

// ExecuteContext is like Execute but stops at the next command boundary
// once ctx is done. It cannot interrupt an expression mid-evaluation.
func (in *Interpreter) ExecuteContext(ctx context.Context, program *ast.Block, allowOutput bool) (Result, error) {
	in.steps = 0

	outcome, err := in.execute(ctx, program, allowOutput)
	result := Result{Steps: in.steps}
	if err != nil {
		return result, err
	}
	if outcome == OutcomeTerminate {
		result.Status = StatusTerminated
	}
	return result, nil
}

// ExecuteCommand executes a single command.
func (in *Interpreter) ExecuteCommand(cmd ast.Command, allowOutput bool) (Outcome, error) {
	return in.execute(context.Background(), cmd, allowOutput)
}

func (in *Interpreter) execute(ctx context.Context, cmd ast.Command, allowOutput bool) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeContinue, err
	}
	in.steps++
	if in.maxSteps > 0 && in.steps > in.maxSteps {
		return OutcomeContinue, types.NewResourceLimitError(
			fmt.Sprintf("execution exceeded maximum step limit of %d", in.maxSteps)).WithNode(headline(cmd))
	}

	switch n := cmd.(type) {
	case *ast.Assignment:
		return OutcomeContinue, annotate(in.executeAssignment(n), n.String())

	case *ast.Print:
		val, err := in.Evaluate(n.Expression)
		if err != nil {
			return OutcomeContinue, annotate(err, n.String())
		}
		if allowOutput {
			return OutcomeContinue, in.emit(val.String())
		}
		return OutcomeContinue, nil

	case *ast.Block:
		return in.executeBlock(ctx, n, allowOutput)

	case *ast.If:
		cond, err := in.condition("if", n.Condition)
		if err != nil {
			return OutcomeContinue, err
		}
		if cond {
			return in.executeBranch(ctx, n.Then, allowOutput)
		}
		if n.Else != nil {
			return in.executeBranch(ctx, n.Else, allowOutput)
		}
		return OutcomeContinue, nil

	case *ast.While:
		return in.executeWhile(ctx, n, allowOutput)

	case *ast.Exit:
		if allowOutput {
			if err := in.emit("exit " + in.env.String()); err != nil {
				return OutcomeTerminate, err
			}
		}
		return OutcomeTerminate, nil

	default:
		return OutcomeContinue, fmt.Errorf("unsupported command node type: %T", cmd)
	}
}

func (in *Interpreter) executeAssignment(n *ast.Assignment) error {
	if n.Target == nil {
		return types.NewInvalidAssignmentTargetError("<nil>").WithNode(n.String())
	}
	val, err := in.Evaluate(n.Value)
	if err != nil {
		return err
	}
	in.env.Set(n.Target.Name, val)
	return nil
}

// executeBlock runs statements in order, stopping at the first Terminate.
func (in *Interpreter) executeBlock(ctx context.Context, b *ast.Block, allowOutput bool) (Outcome, error) {
	if b == nil {
		return OutcomeContinue, nil
	}
	for _, stmt := range b.Statements {
		outcome, err := in.execute(ctx, stmt, allowOutput)
		if err != nil {
			return OutcomeContinue, err
		}
		if outcome == OutcomeTerminate {
			return OutcomeTerminate, nil
		}
	}
	return OutcomeContinue, nil
}

// executeBranch runs an If or While body through execute so that it is
// counted as a step and checked for cancellation.
func (in *Interpreter) executeBranch(ctx context.Context, b *ast.Block, allowOutput bool) (Outcome, error) {
	if b == nil {
		return OutcomeContinue, nil
	}
	return in.execute(ctx, b, allowOutput)
}

func (in *Interpreter) executeWhile(ctx context.Context, n *ast.While, allowOutput bool) (Outcome, error) {
	for {
		cond, err := in.condition("while", n.Condition)
		if err != nil {
			return OutcomeContinue, err
		}
		if !cond {
			return OutcomeContinue, nil
		}
		if err := ctx.Err(); err != nil {
			return OutcomeContinue, err
		}

		outcome, err := in.executeBranch(ctx, n.Body, allowOutput)
		if err != nil {
			return OutcomeContinue, err
		}
		if outcome == OutcomeTerminate {
			return OutcomeTerminate, nil
		}
	}
}

// condition evaluates an If or While condition, which must be a boolean.
func (in *Interpreter) condition(keyword string, e ast.Expression) (bool, error) {
	val, err := in.Evaluate(e)
	if err != nil {
		return false, annotate(err, keyword+" "+ast.Format(e))
	}
	if !val.IsBool() {
		return false, types.NewTypeMismatchError(keyword, types.TypeBool, val.Type()).WithNode(keyword + " " + ast.Format(e))
	}
	return val.AsBool(), nil
}

func (in *Interpreter) emit(line string) error {
	if _, err := fmt.Fprintln(in.out, line); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// annotate records where an evaluation error occurred unless a more
// specific node was already recorded.
func annotate(err error, where string) error {
	var ee *types.EvaluationError
	if errors.As(err, &ee) {
		ee.WithNode(where)
	}
	return err
}

// headline is the first line of a command's pseudocode.
func headline(cmd ast.Command) string {
	line, _, _ := strings.Cut(ast.Format(cmd), "\n")
	return line
}
