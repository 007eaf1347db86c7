package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	startupTimeout = 10 * time.Second
	pollInterval   = 50 * time.Millisecond
)

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// serverProc holds the running server subprocess and its output.
type serverProc struct {
	cmd    *exec.Cmd
	stdout *lockedBuffer
	url    string
	exited chan struct{}
}

type buildResult struct {
	once   sync.Once
	binary string
	err    error
}

var builds = map[string]*buildResult{
	"surveyd":    {},
	"testserver": {},
}

// getBinary builds ./cmd/<name> once per test run.
func getBinary(t *testing.T, name string) string {
	t.Helper()
	b := builds[name]
	b.once.Do(func() {
		dir, err := os.MkdirTemp("", "surveyd-e2e-*")
		if err != nil {
			b.err = err
			return
		}
		binary := filepath.Join(dir, name)
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/"+name)
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			b.err = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		b.binary = binary
	})
	if b.err != nil {
		t.Fatal(b.err)
	}
	return b.binary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root")
		}
		dir = parent
	}
}

func fixtureCSV(t *testing.T) string {
	t.Helper()
	return filepath.Join(findRepoRoot(t), "internal", "survey", "testdata", "survey.csv")
}

// startServer runs binary with the given extra environment and waits for
// /healthz to answer.
func startServer(t *testing.T, binary string, env ...string) *serverProc {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary)
	cmd.Env = append(os.Environ(),
		"SURVEYD_LISTEN_ADDR="+addr,
		"SURVEYD_CSV_PATH="+fixtureCSV(t),
		"SURVEYD_LOG_LEVEL=info",
	)
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	sp := &serverProc{
		cmd:    cmd,
		stdout: stdout,
		url:    "http://" + addr,
		exited: make(chan struct{}),
	}
	go func() {
		cmd.Wait()
		close(sp.exited)
	}()

	t.Cleanup(func() {
		cmd.Process.Kill()
		<-sp.exited
	})

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(sp.url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				return sp
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("server did not become ready within %v\nstdout:\n%s", startupTimeout, stdout.String())
	return nil
}

// submit posts a query and returns the assigned job id.
func (sp *serverProc) submit(t *testing.T, queryType, body string) string {
	t.Helper()
	resp, err := http.Post(sp.url+"/api/"+queryType, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/%s: %v", queryType, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST /api/%s status = %d\nbody: %s", queryType, resp.StatusCode, b)
	}

	var out struct {
		Status string `json:"status"`
		JobID  string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "done" || out.JobID == "" {
		t.Fatalf("submit response = %+v", out)
	}
	return out.JobID
}

// getJSON fetches path and decodes the body into out, returning the status code.
func (sp *serverProc) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(sp.url + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode
}

// waitResult polls get_results until the job is no longer running and returns
// the raw response body.
func (sp *serverProc) waitResult(t *testing.T, id string, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(sp.url + "/api/get_results/" + id)
		if err != nil {
			t.Fatalf("GET get_results: %v", err)
		}
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(b), `"status":"running"`) {
			return strings.TrimSpace(string(b))
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("job %s still running after %v", id, timeout)
	return ""
}
