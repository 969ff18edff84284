package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// FindProjectRoot walks up the directory tree from the current file to find go.mod
func FindProjectRoot() (string, error) {
	// Get the directory of the caller's source file
	_, filename, _, ok := runtime.Caller(1)
	if !ok {
		return "", fmt.Errorf("failed to get caller information")
	}

	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// WriteTree creates files under dir on fs. Keys are slash-separated paths
// relative to dir, values are file contents.
func WriteTree(t testing.TB, fs billy.Filesystem, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := fs.Join(dir, filepath.FromSlash(rel))
		if parent := filepath.Dir(path); parent != "/" && parent != "." {
			if err := fs.MkdirAll(parent, 0755); err != nil {
				t.Fatalf("mkdir for %s: %v", path, err)
			}
		}
		if err := util.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// ReadFile returns the content of path on fs, failing the test on error.
func ReadFile(t testing.TB, fs billy.Filesystem, path string) string {
	t.Helper()
	data, err := util.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists on fs.
func Exists(t testing.TB, fs billy.Filesystem, path string) bool {
	t.Helper()
	_, err := fs.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat %s: %v", path, err)
	return false
}
