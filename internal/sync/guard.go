package sync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// Guard seeds the config singleton. It copies the source only when no
// target exists yet and never touches an existing target, whatever its
// content.
type Guard struct {
	fs     billy.Filesystem
	logger *slog.Logger
	dryRun bool
}

// NewGuard creates a new config guard
func NewGuard(fs billy.Filesystem, logger *slog.Logger, dryRun bool) *Guard {
	return &Guard{
		fs:     fs,
		logger: logger,
		dryRun: dryRun,
	}
}

// EnsureConfig copies sourceFile to targetFile if and only if targetFile
// does not exist. A missing sourceFile is not an error.
func (g *Guard) EnsureConfig(sourceFile, targetFile string) (Disposition, error) {
	srcInfo, err := g.fs.Stat(sourceFile)
	if os.IsNotExist(err) {
		g.logger.Info("config source not present, skipping", "source", sourceFile)
		return SkippedMissingSource, nil
	}
	if err != nil {
		return "", fmt.Errorf("config: stat source %s: %w", sourceFile, err)
	}

	exists, err := g.exists(targetFile)
	if err != nil {
		return "", fmt.Errorf("config: stat target %s: %w", targetFile, err)
	}
	if exists {
		g.logger.Info("config already present, leaving it untouched", "target", targetFile)
		return SkippedExisting, nil
	}

	if g.dryRun {
		g.logger.Info("[dry-run] would seed config", "source", sourceFile, "target", targetFile)
		return Copied, nil
	}

	if err := g.fs.MkdirAll(filepath.Dir(targetFile), 0755); err != nil {
		return "", fmt.Errorf("config: %w: %s: %v", ErrTargetUnwritable, filepath.Dir(targetFile), err)
	}

	if err := copyFile(g.fs, sourceFile, targetFile, srcInfo.Mode().Perm()); err != nil {
		return "", fmt.Errorf("config: %w", &CopyError{Name: filepath.Base(targetFile), Err: err})
	}

	g.logger.Info("config seeded", "source", sourceFile, "target", targetFile)
	return Copied, nil
}

func (g *Guard) exists(path string) (bool, error) {
	_, err := g.fs.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
