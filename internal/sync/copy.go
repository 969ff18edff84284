package sync

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5"
)

// copyFile copies a file from src to dst with atomic write, creating it with
// perm. The destination directory must already exist.
func copyFile(fs billy.Filesystem, src, dst string, perm os.FileMode) error {
	// Open source
	srcFile, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpPath := tempPath(fs, dst)
	tmpFile, err := fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = fs.Remove(tmpPath)
		}
	}() // cleanup on error

	// Copy content
	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	if err := fs.Rename(tmpPath, dst); err != nil {
		return err
	}
	renamed = true

	return nil
}

// tempPath returns a hidden sibling of dst to stage a write in
func tempPath(fs billy.Filesystem, dst string) string {
	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	return fs.Join(filepath.Dir(dst), ".rulesync-tmp-"+filepath.Base(dst)+"-"+suffix)
}
