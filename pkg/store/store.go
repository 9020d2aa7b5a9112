// Package store provides in-memory storage for execution records. Only the
// outcome of a run is kept; program sources are never stored.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lemonberrylabs/treewalk/pkg/runtime"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

// ExecutionState represents the state of an execution.
type ExecutionState string

const (
	ExecutionActive     ExecutionState = "ACTIVE"
	ExecutionSucceeded  ExecutionState = "SUCCEEDED"
	ExecutionTerminated ExecutionState = "TERMINATED"
	ExecutionFailed     ExecutionState = "FAILED"
)

// ErrNotFound is returned when an execution does not exist.
var ErrNotFound = errors.New("execution not found")

// Execution represents a stored program run.
type Execution struct {
	Name        string                 `json:"name"`
	State       ExecutionState         `json:"state"`
	Output      []string               `json:"output"`
	Environment map[string]types.Value `json:"environment"`
	Error       *ExecutionError        `json:"error,omitempty"`
	Steps       int                    `json:"steps"`
	StartTime   time.Time              `json:"startTime"`
	EndTime     time.Time              `json:"endTime,omitzero"`

	seq int64
}

// ExecutionError describes why an execution failed.
type ExecutionError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
}

// Store is a thread-safe in-memory storage for executions.
type Store struct {
	mu         sync.RWMutex
	executions map[string]*Execution

	// Counter for generating unique IDs
	execCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		executions: make(map[string]*Execution),
	}
}

// CreateExecution creates a new active execution record.
func (s *Store) CreateExecution() *Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.execCounter++
	exec := &Execution{
		Name:        fmt.Sprintf("executions/exec-%d", s.execCounter),
		State:       ExecutionActive,
		Output:      []string{},
		Environment: map[string]types.Value{},
		StartTime:   time.Now(),
		seq:         s.execCounter,
	}
	s.executions[exec.Name] = exec
	return exec
}

// GetExecution returns a copy of the execution with the given name.
func (s *Store) GetExecution(name string) (*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[name]
	if !ok {
		return nil, fmt.Errorf("execution '%s': %w", name, ErrNotFound)
	}
	return exec.clone(), nil
}

// ListExecutions returns copies of all executions, newest first.
func (s *Store) ListExecutions() []*Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Execution, 0, len(s.executions))
	for _, exec := range s.executions {
		result = append(result, exec.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].seq > result[j].seq
	})
	return result
}

// CompleteExecution records a run that finished without error. The state is
// TERMINATED when the program stopped through Exit.
func (s *Store) CompleteExecution(name string, result runtime.Result, env map[string]types.Value, output []string) error {
	return s.finish(name, func(exec *Execution) {
		exec.State = ExecutionSucceeded
		if result.Status == runtime.StatusTerminated {
			exec.State = ExecutionTerminated
		}
		exec.Steps = result.Steps
		exec.Environment = env
		exec.Output = output
	})
}

// FailExecution records a run that aborted with err. The environment and
// output are whatever the program produced before failing.
func (s *Store) FailExecution(name string, err error, steps int, env map[string]types.Value, output []string) error {
	return s.finish(name, func(exec *Execution) {
		exec.State = ExecutionFailed
		exec.Steps = steps
		exec.Environment = env
		exec.Output = output
		exec.Error = executionErrorFrom(err)
	})
}

// DeleteExecution removes an execution.
func (s *Store) DeleteExecution(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[name]; !ok {
		return fmt.Errorf("execution '%s': %w", name, ErrNotFound)
	}
	delete(s.executions, name)
	return nil
}

func (s *Store) finish(name string, update func(*Execution)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[name]
	if !ok {
		return fmt.Errorf("execution '%s': %w", name, ErrNotFound)
	}
	if exec.State != ExecutionActive {
		return fmt.Errorf("execution '%s' is not active (state: %s)", name, exec.State)
	}

	update(exec)
	if exec.Output == nil {
		exec.Output = []string{}
	}
	if exec.Environment == nil {
		exec.Environment = map[string]types.Value{}
	}
	exec.EndTime = time.Now()
	return nil
}

func executionErrorFrom(err error) *ExecutionError {
	var ee *types.EvaluationError
	if errors.As(err, &ee) {
		return &ExecutionError{Kind: string(ee.Kind), Message: ee.Message, Node: ee.Node}
	}
	return &ExecutionError{Kind: "Error", Message: err.Error()}
}

func (e *Execution) clone() *Execution {
	c := *e
	c.Output = append([]string(nil), e.Output...)
	if c.Output == nil {
		c.Output = []string{}
	}
	c.Environment = make(map[string]types.Value, len(e.Environment))
	for k, v := range e.Environment {
		c.Environment[k] = v
	}
	if e.Error != nil {
		errCopy := *e.Error
		c.Error = &errCopy
	}
	return &c
}
