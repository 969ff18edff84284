//go:build integration

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/rulesync/internal/testutil"
)

const (
	checkoutName   = "shared-rules"
	defaultTimeout = 5 * time.Minute
)

// Harness builds the rulesync binary once and drives it against a sandbox
// made of an upstream repository and a consuming project with a clone of it
type Harness struct {
	t        *testing.T
	binary   string
	Upstream string
	Project  string
	Checkout string
	env      []string
}

// NewHarness creates a new test harness rooted in a fresh temp directory
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	root := t.TempDir()
	h := &Harness{
		t:        t,
		Upstream: filepath.Join(root, "upstream"),
		Project:  filepath.Join(root, "project"),
	}
	h.Checkout = filepath.Join(h.Project, checkoutName)
	return h
}

// BuildBinary compiles cmd/rulesync into the sandbox
func (h *Harness) BuildBinary(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := testutil.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	h.binary = filepath.Join(h.t.TempDir(), "rulesync")
	h.t.Logf("Building %s", h.binary)

	cmd := exec.CommandContext(ctx, "go", "build", "-o", h.binary, "./cmd/rulesync")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	return nil
}

// SetupRepos creates the upstream repository with the given files and
// clones it into the project
func (h *Harness) SetupRepos(ctx context.Context, files map[string]string) {
	h.t.Helper()

	h.mustGit(ctx, "", "init", "-b", "main", h.Upstream)
	h.mustGit(ctx, h.Upstream, "config", "user.email", "test@test.com")
	h.mustGit(ctx, h.Upstream, "config", "user.name", "Test")
	h.Commit(ctx, "Initial assets", files)

	if err := os.MkdirAll(h.Project, 0755); err != nil {
		h.t.Fatalf("create project: %v", err)
	}
	h.mustGit(ctx, "", "clone", h.Upstream, h.Checkout)
}

// Commit writes files into the upstream repository and commits them
func (h *Harness) Commit(ctx context.Context, msg string, files map[string]string) {
	h.t.Helper()
	for name, content := range files {
		h.WriteFile(filepath.Join(h.Upstream, name), content)
	}
	h.mustGit(ctx, h.Upstream, "add", "-A")
	h.mustGit(ctx, h.Upstream, "commit", "-m", msg)
}

// Setenv adds an environment variable to every following Run
func (h *Harness) Setenv(key, value string) {
	h.env = append(h.env, key+"="+value)
}

// Run executes the binary in dir and returns its output and exit code
func (h *Harness) Run(ctx context.Context, dir string, args ...string) (string, string, int) {
	h.t.Helper()
	if h.binary == "" {
		h.t.Fatal("binary not built")
	}

	cmd := exec.CommandContext(ctx, h.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(append(os.Environ(), "NO_COLOR=1"), h.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			h.t.Fatalf("run rulesync: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return stdout.String(), stderr.String(), exitCode
}

// MustRun runs the binary from the checkout and fails the test on a non-zero exit
func (h *Harness) MustRun(ctx context.Context, args ...string) string {
	h.t.Helper()
	stdout, stderr, code := h.Run(ctx, h.Checkout, args...)
	if code != 0 {
		h.t.Fatalf("rulesync failed with exit code %d\nstdout: %s\nstderr: %s\nargs: %v",
			code, stdout, stderr, args)
	}
	return stdout
}

// WriteFile writes a file on the host, creating parent directories
func (h *Harness) WriteFile(path, content string) {
	h.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("write file: %v", err)
	}
}

// ReadFile reads a file relative to the project root
func (h *Harness) ReadFile(rel string) string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.Project, rel))
	if err != nil {
		h.t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

// FileExists checks if a file exists relative to the project root
func (h *Harness) FileExists(rel string) bool {
	_, err := os.Stat(filepath.Join(h.Project, rel))
	return err == nil
}

func (h *Harness) mustGit(ctx context.Context, dir string, args ...string) {
	h.t.Helper()
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	out, err := exec.CommandContext(ctx, "git", args...).CombinedOutput()
	if err != nil {
		h.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)
