package integration

import (
	"testing"
	"time"

	"github.com/lemonberrylabs/treewalk/pkg/executor"
)

func TestEvaluationErrors(t *testing.T) {
	ts := startServer(t, executor.Config{})

	tests := []struct {
		name   string
		source string
		kind   string
		node   string
	}{
		{"undefined variable", "- print: ghost\n", "UndefinedVariable", "print ghost"},
		{"type mismatch", "- assign: {x: {add: [1, true]}}\n", "TypeMismatch", "(1 + true)"},
		{"non-boolean condition", "- while: {cond: 1, do: []}\n", "TypeMismatch", "while 1"},
		{"invalid assignment target", "- print: {assign: [3, 4]}\n", "InvalidAssignmentTarget", "(3 = 4)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.runProgram(t, tt.source, nil)
			if rec["state"] != "FAILED" {
				t.Fatalf("got state %v, want FAILED", rec["state"])
			}
			errObj := rec["error"].(map[string]interface{})
			if errObj["kind"] != tt.kind {
				t.Errorf("got kind %v, want %s", errObj["kind"], tt.kind)
			}
			if errObj["node"] != tt.node {
				t.Errorf("got node %v, want %s", errObj["node"], tt.node)
			}
		})
	}
}

func TestFirstFailureAbortsRun(t *testing.T) {
	ts := startServer(t, executor.Config{})

	rec := ts.runProgram(t, "- print: 1\n- print: missing\n- print: 3\n", nil)
	if got := stringsOf(t, rec["output"]); len(got) != 1 || got[0] != "1" {
		t.Errorf("got output %v, want [1]", got)
	}
}

func TestRunBounds(t *testing.T) {
	t.Run("max steps", func(t *testing.T) {
		ts := startServer(t, executor.Config{MaxSteps: 1000})
		rec := ts.runProgram(t, "- while: {cond: true, do: []}\n", nil)
		errObj := rec["error"].(map[string]interface{})
		if errObj["kind"] != "ResourceLimit" {
			t.Errorf("got %v", errObj)
		}
		if rec["steps"] != 1001.0 {
			t.Errorf("got %v steps, want 1001", rec["steps"])
		}
	})

	t.Run("timeout", func(t *testing.T) {
		ts := startServer(t, executor.Config{Timeout: 50 * time.Millisecond})
		start := time.Now()
		rec := ts.runProgram(t, "- while: {cond: true, do: [{assign: {x: 1}}]}\n", nil)
		if rec["state"] != "FAILED" {
			t.Errorf("got state %v, want FAILED", rec["state"])
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("timeout took too long: %s", elapsed)
		}
	})
}

func TestBadSourceIs400(t *testing.T) {
	ts := startServer(t, executor.Config{})

	code, rec := ts.doRequest(t, "POST", "/v1/executions", map[string]interface{}{"source": "program: 3"})
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	if rec["error"].(map[string]interface{})["status"] != "INVALID_ARGUMENT" {
		t.Errorf("got %v", rec)
	}
}
