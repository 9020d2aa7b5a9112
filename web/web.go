// Package web provides the embedded web UI over the execution history.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store) *Handler {
	return &Handler{
		store: s,
		funcMap: template.FuncMap{
			"executionID": executionID,
			"timeAgo":     timeAgo,
			"formatTime":  formatTime,
			"duration":    duration,
			"stateClass":  stateClass,
			"stateIcon":   stateIcon,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed with the layout on its own so define blocks never
	// collide across pages.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/executions/:execution", h.executionDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Executions      []*store.Execution
	SucceededCount  int
	TerminatedCount int
	FailedCount     int
}

type binding struct {
	Name  string
	Value types.Value
}

type executionDetailContent struct {
	Execution   *store.Execution
	ExecID      string
	Environment []binding
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	execs := h.store.ListExecutions()

	content := dashboardContent{Executions: execs}
	for _, e := range execs {
		switch e.State {
		case store.ExecutionSucceeded:
			content.SucceededCount++
		case store.ExecutionTerminated:
			content.TerminatedCount++
		case store.ExecutionFailed:
			content.FailedCount++
		}
	}

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) executionDetail(c *fiber.Ctx) error {
	execID := c.Params("execution")

	exec, err := h.store.GetExecution("executions/" + execID)
	if err != nil {
		c.Status(404)
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Execution '%s' not found", execID),
		})
	}

	env := make([]binding, 0, len(exec.Environment))
	for _, name := range types.SortedNames(exec.Environment) {
		env = append(env, binding{Name: name, Value: exec.Environment[name]})
	}

	return h.render(c, "execution_detail.html", "dashboard", executionDetailContent{
		Execution:   exec,
		ExecID:      execID,
		Environment: env,
	})
}

// --- Template Helpers ---

func executionID(name string) string {
	return strings.TrimPrefix(name, "executions/")
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return fmt.Sprintf("%s (running)", formatDuration(time.Since(start)))
	}
	return formatDuration(end.Sub(start))
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

func stateClass(state store.ExecutionState) string {
	switch state {
	case store.ExecutionActive:
		return "state-active"
	case store.ExecutionSucceeded:
		return "state-succeeded"
	case store.ExecutionTerminated:
		return "state-terminated"
	case store.ExecutionFailed:
		return "state-failed"
	default:
		return ""
	}
}

func stateIcon(state store.ExecutionState) template.HTML {
	switch state {
	case store.ExecutionActive:
		return "&#9654;"
	case store.ExecutionSucceeded:
		return "&#10003;"
	case store.ExecutionTerminated:
		return "&#9632;"
	case store.ExecutionFailed:
		return "&#10007;"
	default:
		return "&#8226;"
	}
}
