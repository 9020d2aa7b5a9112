// Package integration exercises the REST API, gRPC API and dashboard
// together, the way `treewalk serve` wires them.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lemonberrylabs/treewalk/pkg/api"
	grpcapi "github.com/lemonberrylabs/treewalk/pkg/api/grpc"
	"github.com/lemonberrylabs/treewalk/pkg/executor"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/web"
)

// programsDir holds the sample programs shipped with the repository.
var programsDir = filepath.Join("..", "..", "examples", "programs")

// testServer is one in-process instance of every surface, sharing a store.
type testServer struct {
	baseURL string
	rest    *api.Server
	grpc    *grpcapi.Client
}

func startServer(t *testing.T, cfg executor.Config) *testServer {
	t.Helper()

	s := store.New()
	exec := executor.New(s, cfg)

	rest := api.New(exec)
	web.New(s).Register(rest.App())
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go rest.App().Listener(httpLis)

	gs := grpcapi.New(exec)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go gs.ServeListener(grpcLis)

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		gs.GracefulStop()
		_ = rest.Shutdown()
	})

	return &testServer{
		baseURL: "http://" + httpLis.Addr().String(),
		rest:    rest,
		grpc:    grpcapi.NewClient(conn),
	}
}

func loadProgram(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(programsDir, name))
	if err != nil {
		t.Fatalf("failed to load program %s: %v", name, err)
	}
	return string(data)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// doRequest sends a JSON request and decodes a JSON object response.
func (ts *testServer) doRequest(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

// runProgram submits source through the REST API and returns the record.
func (ts *testServer) runProgram(t *testing.T, source string, env map[string]interface{}) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{"source": source}
	if env != nil {
		body["environment"] = env
	}
	code, rec := ts.doRequest(t, "POST", "/v1/executions", body)
	if code != 200 {
		t.Fatalf("POST /v1/executions: expected 200, got %d: %v", code, rec)
	}
	return rec
}

func stringsOf(t *testing.T, v interface{}) []string {
	t.Helper()
	raw, ok := v.([]interface{})
	if !ok {
		t.Fatalf("expected array, got %T", v)
	}
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = s.(string)
	}
	return out
}
