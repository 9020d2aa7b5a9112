package web

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/treewalk/pkg/runtime"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(s)
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	if !strings.Contains(html, "Dashboard") {
		t.Error("expected Dashboard in response")
	}
	if !strings.Contains(html, "treewalk") {
		t.Error("expected brand in response")
	}
	if !strings.Contains(html, "No executions yet") {
		t.Error("expected empty state message")
	}
}

func TestDashboardWithData(t *testing.T) {
	app, s := setupTestApp(t)

	ok := s.CreateExecution()
	if err := s.CompleteExecution(ok.Name, runtime.Result{Steps: 3}, nil, []string{"1"}); err != nil {
		t.Fatal(err)
	}
	bad := s.CreateExecution()
	if err := s.FailExecution(bad.Name, types.NewUndefinedVariableError("y"), 2, nil, nil); err != nil {
		t.Fatal(err)
	}

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"exec-1", "exec-2", "1 succeeded", "1 failed", "state-failed"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestExecutionDetail(t *testing.T) {
	app, s := setupTestApp(t)

	exec := s.CreateExecution()
	env := map[string]types.Value{
		"x":    types.NewNumber(3),
		"done": types.NewBool(true),
	}
	result := runtime.Result{Status: runtime.StatusTerminated, Steps: 7}
	if err := s.CompleteExecution(exec.Name, result, env, []string{"0", "1", "exit {done: true, x: 3}"}); err != nil {
		t.Fatal(err)
	}

	code, html := get(t, app, "/ui/executions/exec-1")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	for _, want := range []string{"Execution exec-1", "TERMINATED", "exit {done: true, x: 3}", "<td>done</td>", "<td>boolean</td>", "<td>number</td>"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
	if strings.Index(html, "<td>done</td>") > strings.Index(html, "<td>x</td>") {
		t.Error("expected environment sorted by name")
	}
}

func TestExecutionDetailShowsError(t *testing.T) {
	app, s := setupTestApp(t)

	exec := s.CreateExecution()
	evalErr := types.NewTypeMismatchError("+", types.TypeNumber, types.TypeBool).WithNode("print (1 + true)")
	if err := s.FailExecution(exec.Name, evalErr, 2, nil, nil); err != nil {
		t.Fatal(err)
	}

	_, html := get(t, app, "/ui/executions/exec-1")
	for _, want := range []string{"TypeMismatch", "expects number, got boolean", "print (1 + true)", "No output."} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestExecutionNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui/executions/exec-99")
	if code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
	if !strings.Contains(html, "not found") {
		t.Error("expected not found message")
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Errorf("expected redirect to /ui, got %q", loc)
	}
}

func TestTemplateHelpers(t *testing.T) {
	if got := executionID("executions/exec-4"); got != "exec-4" {
		t.Errorf("executionID: got %q", got)
	}
	if got := formatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("formatDuration: got %q", got)
	}
	if got := formatDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("formatDuration: got %q", got)
	}
	if got := timeAgo(time.Time{}); got != "-" {
		t.Errorf("timeAgo zero: got %q", got)
	}
	if got := timeAgo(time.Now().Add(-2 * time.Hour)); got != "2 hours ago" {
		t.Errorf("timeAgo: got %q", got)
	}
	if got := stateClass(store.ExecutionTerminated); got != "state-terminated" {
		t.Errorf("stateClass: got %q", got)
	}
}
