package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/schaermu/rulesync/internal/config"
	"github.com/schaermu/rulesync/internal/git"
	"github.com/schaermu/rulesync/internal/testutil"
)

const workDir = "/work/project/shared-rules"

// mockGitClient implements git.Client for testing.
type mockGitClient struct {
	before      string
	after       string
	revisionErr error
	pullErr     error
	pulled      bool
	calls       int
}

func (m *mockGitClient) Revision(_ context.Context, _ string) (string, error) {
	m.calls++
	if m.revisionErr != nil {
		return "", m.revisionErr
	}
	if m.pulled {
		return m.after, nil
	}
	return m.before, nil
}

func (m *mockGitClient) Pull(_ context.Context, _ string) error {
	m.pulled = true
	return m.pullErr
}

func movedClient() *mockGitClient {
	return &mockGitClient{before: "aaaaaaaa", after: "bbbbbbbb"}
}

// seedCheckout writes a source checkout with rules, prompts and a config file.
func seedCheckout(t *testing.T, fs billy.Filesystem) {
	t.Helper()
	testutil.WriteTree(t, fs, workDir, map[string]string{
		"rules/go.mdc":        "go rules",
		"rules/testing.mdc":   "testing rules",
		"prompts/review.md":   "review prompt",
		"config/mcp.json":     `{"servers":{}}`,
		"README.md":           "not an asset",
		"rules/nested/x.mdc":  "ignored",
		"prompts/.keep":       "",
		"config/unrelated.md": "ignored",
	})
}

func newTestEngine(cfg *config.Config, client git.Client, fs billy.Filesystem, opts Options) *Engine {
	if opts.WorkDir == "" {
		opts.WorkDir = workDir
	}
	return NewEngine(cfg.Resolve(opts.WorkDir), client, fs, testLogger(), opts)
}

func TestRun_FullPropagation(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)
	client := movedClient()

	engine := newTestEngine(config.Default(), client, fs, Options{})
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.State != StateDone || engine.State() != StateDone {
		t.Errorf("state = %s/%s, want done", report.State, engine.State())
	}
	if !report.Version.Changed || report.Version.From != "aaaaaaaa" || report.Version.To != "bbbbbbbb" {
		t.Errorf("version = %+v", report.Version)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(report.Outcomes))
	}
	if report.Outcomes[0].Label != "cursor rules" || report.Outcomes[1].Label != "prompt templates" {
		t.Errorf("outcomes out of order: %s, %s", report.Outcomes[0].Label, report.Outcomes[1].Label)
	}
	assertCounts(t, report.Outcomes[0], 2, 0, 0)
	assertCounts(t, report.Outcomes[1], 2, 0, 0)
	if report.Added() != 4 || report.Updated() != 0 || report.Unchanged() != 0 {
		t.Errorf("totals = %d/%d/%d", report.Added(), report.Updated(), report.Unchanged())
	}
	if report.Config.Disposition != Copied {
		t.Errorf("config disposition = %s, want copied", report.Config.Disposition)
	}

	for path, want := range map[string]string{
		"/work/project/.cursor/rules/go.mdc":      "go rules",
		"/work/project/.cursor/rules/testing.mdc": "testing rules",
		"/work/project/.github/prompts/review.md": "review prompt",
		"/work/project/.cursor/mcp.json":          `{"servers":{}}`,
	} {
		if got := testutil.ReadFile(t, fs, path); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}

func TestRun_UpToDateShortCircuits(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)
	client := &mockGitClient{before: "cccccccc", after: "cccccccc"}

	report, err := newTestEngine(config.Default(), client, fs, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.UpToDate {
		t.Error("expected UpToDate report")
	}
	if report.State != StateDone {
		t.Errorf("state = %s, want done", report.State)
	}
	if len(report.Outcomes) != 0 || report.Config.Disposition != "" {
		t.Errorf("no propagation expected, got %+v", report)
	}
	if testutil.Exists(t, fs, "/work/project/.cursor") || testutil.Exists(t, fs, "/work/project/.github") {
		t.Error("no target should be touched when the source did not move")
	}
}

func TestRun_ForcePropagatesWithoutChange(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)
	client := &mockGitClient{before: "cccccccc", after: "cccccccc"}

	report, err := newTestEngine(config.Default(), client, fs, Options{Force: true}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.UpToDate {
		t.Error("forced run should not report UpToDate")
	}
	if report.Added() != 4 {
		t.Errorf("added = %d, want 4", report.Added())
	}
	if !client.pulled {
		t.Error("the gate must still run when forced")
	}
}

func TestRun_WrongInvocationContext(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)
	client := movedClient()

	report, err := newTestEngine(config.Default(), client, fs, Options{WorkDir: "/work/project"}).Run(context.Background())
	if !errors.Is(err, ErrWrongInvocationContext) {
		t.Fatalf("error = %v, want ErrWrongInvocationContext", err)
	}
	if report.State != StateFailed {
		t.Errorf("state = %s, want failed", report.State)
	}
	if client.calls != 0 || client.pulled {
		t.Error("version control must not be touched before the invocation check passes")
	}
	if testutil.Exists(t, fs, "/work/.cursor") || testutil.Exists(t, fs, "/work/project/.cursor") {
		t.Error("no files may be written")
	}
}

func TestRun_GateErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		client  *mockGitClient
		wantErr error
	}{
		{name: "revision unreadable", client: &mockGitClient{revisionErr: boom}, wantErr: git.ErrVersionRetrievalFailed},
		{name: "pull fails", client: &mockGitClient{before: "a", after: "b", pullErr: boom}, wantErr: git.ErrUpdateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			seedCheckout(t, fs)

			report, err := newTestEngine(config.Default(), tt.client, fs, Options{}).Run(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if report.State != StateFailed {
				t.Errorf("state = %s, want failed", report.State)
			}
			if testutil.Exists(t, fs, "/work/project/.cursor") {
				t.Error("no propagation may happen after a gate failure")
			}
		})
	}
}

func TestRun_HaltsOnFirstFailedDirectory(t *testing.T) {
	fs := memfs.New()
	// No rules directory: the first asset class fails.
	testutil.WriteTree(t, fs, workDir, map[string]string{
		"prompts/review.md": "review prompt",
		"config/mcp.json":   "{}",
	})

	report, err := newTestEngine(config.Default(), movedClient(), fs, Options{}).Run(context.Background())
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("error = %v, want ErrMissingSource", err)
	}
	if report.State != StateFailed {
		t.Errorf("state = %s, want failed", report.State)
	}
	if len(report.Outcomes) != 0 {
		t.Errorf("expected no completed outcomes, got %d", len(report.Outcomes))
	}
	if testutil.Exists(t, fs, "/work/project/.github/prompts") {
		t.Error("prompts must not be synced after rules failed")
	}
	if testutil.Exists(t, fs, "/work/project/.cursor/mcp.json") {
		t.Error("config must not be seeded after a failure")
	}
}

func TestRun_SecondDirectoryFailureKeepsFirst(t *testing.T) {
	fs := memfs.New()
	testutil.WriteTree(t, fs, workDir, map[string]string{"rules/go.mdc": "go rules"})
	if err := fs.MkdirAll(workDir+"/prompts", 0755); err != nil {
		t.Fatal(err)
	}

	report, err := newTestEngine(config.Default(), movedClient(), fs, Options{}).Run(context.Background())
	if !errors.Is(err, ErrEmptySource) {
		t.Fatalf("error = %v, want ErrEmptySource", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Added != 1 {
		t.Errorf("rules outcome should be kept in the report: %+v", report.Outcomes)
	}
	// No rollback of the completed directory.
	if got := testutil.ReadFile(t, fs, "/work/project/.cursor/rules/go.mdc"); got != "go rules" {
		t.Errorf("go.mdc = %q", got)
	}
}

func TestRun_ExistingConfigIsKept(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)
	testutil.WriteTree(t, fs, "/work/project/.cursor", map[string]string{"mcp.json": "my settings"})

	report, err := newTestEngine(config.Default(), movedClient(), fs, Options{}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Config.Disposition != SkippedExisting {
		t.Errorf("disposition = %s, want skipped-existing", report.Config.Disposition)
	}
	if got := testutil.ReadFile(t, fs, "/work/project/.cursor/mcp.json"); got != "my settings" {
		t.Errorf("config overwritten: %q", got)
	}
}

func TestRun_ConfigFileDisabled(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)
	cfg := config.Default()
	cfg.ConfigFile = config.ConfigFile{}

	report, err := newTestEngine(cfg, movedClient(), fs, Options{}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Config.Disposition != Disabled {
		t.Errorf("disposition = %s, want disabled", report.Config.Disposition)
	}
	if testutil.Exists(t, fs, "/work/project/.cursor/mcp.json") {
		t.Error("config must not be written when disabled")
	}
}

func TestRun_DryRun(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)

	report, err := newTestEngine(config.Default(), movedClient(), fs, Options{DryRun: true}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.DryRun {
		t.Error("report should be marked as dry run")
	}
	if report.Added() != 4 {
		t.Errorf("added = %d, want 4", report.Added())
	}
	if testutil.Exists(t, fs, "/work/project/.cursor") || testutil.Exists(t, fs, "/work/project/.github") {
		t.Error("dry run must not write anything")
	}
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	fs := memfs.New()
	seedCheckout(t, fs)

	if _, err := newTestEngine(config.Default(), movedClient(), fs, Options{}).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A later upstream move that did not touch these files.
	report, err := newTestEngine(config.Default(), movedClient(), fs, Options{}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Added() != 0 || report.Updated() != 0 || report.Unchanged() != 4 {
		t.Errorf("totals = %d/%d/%d, want 0/0/4", report.Added(), report.Updated(), report.Unchanged())
	}
	if report.Config.Disposition != SkippedExisting {
		t.Errorf("disposition = %s, want skipped-existing", report.Config.Disposition)
	}
}

func TestCheckInvocation(t *testing.T) {
	tests := []struct {
		name     string
		workDir  string
		expected string
		wantErr  bool
	}{
		{name: "match", workDir: "/a/b/shared-rules", expected: "shared-rules"},
		{name: "trailing slash", workDir: "/a/b/shared-rules/", expected: "shared-rules"},
		{name: "parent dir", workDir: "/a/b", expected: "shared-rules", wantErr: true},
		{name: "child dir", workDir: "/a/shared-rules/rules", expected: "shared-rules", wantErr: true},
		{name: "prefix only", workDir: "/a/shared-rules-old", expected: "shared-rules", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInvocation(tt.workDir, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckInvocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrWrongInvocationContext) {
				t.Errorf("error should match ErrWrongInvocationContext: %v", err)
			}
		})
	}
}
