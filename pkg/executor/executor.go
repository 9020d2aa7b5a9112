// Package executor runs tree documents and records their outcome in a store.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lemonberrylabs/treewalk/pkg/parser"
	"github.com/lemonberrylabs/treewalk/pkg/runtime"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

// Config bounds every run started by an Executor. Zero values mean no limit.
type Config struct {
	MaxSteps int
	Timeout  time.Duration
}

// Request describes a single run.
type Request struct {
	Source      string
	AllowOutput bool
	// Environment overrides bindings declared in the document's env section.
	Environment map[string]types.Value
}

// Executor parses, runs, and records programs.
type Executor struct {
	store *store.Store
	cfg   Config
}

// New creates an executor that records runs in s.
func New(s *store.Store, cfg Config) *Executor {
	return &Executor{store: s, cfg: cfg}
}

// Store returns the underlying execution store.
func (e *Executor) Store() *store.Store {
	return e.store
}

// Run executes req synchronously and returns the finished record. A failing
// program still yields a record in the FAILED state; only an unparsable
// source or environment returns an error, and no record is created for it.
func (e *Executor) Run(ctx context.Context, req Request) (*store.Execution, error) {
	prog, err := parser.Parse([]byte(req.Source))
	if err != nil {
		return nil, err
	}
	for name, v := range req.Environment {
		if !parser.ValidName(name) {
			return nil, &parser.ParseError{
				Message:  fmt.Sprintf("invalid variable name '%s'", name),
				Location: "environment",
			}
		}
		prog.Environment[name] = v
	}

	exec := e.store.CreateExecution()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	interp := runtime.NewInterpreter(prog.Environment, runtime.Options{
		Output:   &out,
		MaxSteps: e.cfg.MaxSteps,
	})
	result, runErr := interp.ExecuteContext(ctx, prog.Body, req.AllowOutput)
	env := interp.Environment().Snapshot()
	lines := splitLines(out.String())

	if runErr != nil {
		log.Printf("execution %s failed after %d steps: %v", exec.Name, result.Steps, runErr)
		if err := e.store.FailExecution(exec.Name, runErr, result.Steps, env, lines); err != nil {
			return nil, err
		}
	} else {
		if err := e.store.CompleteExecution(exec.Name, result, env, lines); err != nil {
			return nil, err
		}
	}

	return e.store.GetExecution(exec.Name)
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
