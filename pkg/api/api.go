// Package api implements the REST API for submitting programs and inspecting
// their executions.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/treewalk/pkg/executor"
	"github.com/lemonberrylabs/treewalk/pkg/parser"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app  *fiber.App
	exec *executor.Executor
}

// New creates a new API server that runs programs through exec.
func New(exec *executor.Executor) *Server {
	srv := &Server{exec: exec}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             2 * parser.MaxSourceSize,
	})

	app.Post("/v1/executions", srv.createExecution)
	app.Get("/v1/executions", srv.listExecutions)
	app.Get("/v1/executions/:execution", srv.getExecution)
	app.Delete("/v1/executions/:execution", srv.deleteExecution)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Execution Handlers ---

type createExecutionRequest struct {
	Source      string                 `json:"source"`
	AllowOutput *bool                  `json:"allowOutput"`
	Environment map[string]types.Value `json:"environment"`
}

func (s *Server) createExecution(c *fiber.Ctx) error {
	var req createExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "source is required")
	}

	allowOutput := true
	if req.AllowOutput != nil {
		allowOutput = *req.AllowOutput
	}

	exec, err := s.exec.Run(c.UserContext(), executor.Request{
		Source:      req.Source,
		AllowOutput: allowOutput,
		Environment: req.Environment,
	})
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			return errorJSON(c, 400, "INVALID_ARGUMENT", err.Error())
		}
		return errorJSON(c, 500, "INTERNAL", err.Error())
	}

	log.Printf("Execution %s finished: %s", exec.Name, exec.State)
	return c.Status(200).JSON(exec)
}

func (s *Server) getExecution(c *fiber.Ctx) error {
	exec, err := s.exec.Store().GetExecution(buildExecutionName(c))
	if err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(exec)
}

func (s *Server) listExecutions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"executions": s.exec.Store().ListExecutions(),
	})
}

func (s *Server) deleteExecution(c *fiber.Ctx) error {
	if err := s.exec.Store().DeleteExecution(buildExecutionName(c)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorJSON(c, 404, "NOT_FOUND", err.Error())
		}
		return errorJSON(c, 500, "INTERNAL", err.Error())
	}
	return c.SendStatus(204)
}

// --- Directory Loading ---

// RunDir runs every .yaml, .yml and .json program in dir once, in file name
// order, and records each run. Files that cannot be read or parsed are
// skipped with a warning.
func (s *Server) RunDir(ctx context.Context, dir string, allowOutput bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading programs directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	ran := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", name, err)
			continue
		}

		exec, err := s.exec.Run(ctx, executor.Request{
			Source:      string(data),
			AllowOutput: allowOutput,
		})
		if err != nil {
			log.Printf("Warning: could not run %q: %v", name, err)
			continue
		}

		ran++
		log.Printf("Ran program %q as %s: %s", name, exec.Name, exec.State)
	}

	log.Printf("Ran %d program(s) from %s", ran, dir)
	return nil
}

// --- Helpers ---

func buildExecutionName(c *fiber.Ctx) string {
	return "executions/" + c.Params("execution")
}

func errorJSON(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}
