package sync

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/schaermu/rulesync/internal/asset"
)

// Synchronizer replicates the flat contents of a source directory into a
// target directory, overwriting only files whose content differs.
type Synchronizer struct {
	fs     billy.Filesystem
	logger *slog.Logger
	dryRun bool
}

// NewSynchronizer creates a new directory synchronizer
func NewSynchronizer(fs billy.Filesystem, logger *slog.Logger, dryRun bool) *Synchronizer {
	return &Synchronizer{
		fs:     fs,
		logger: logger,
		dryRun: dryRun,
	}
}

// Sync copies every regular file directly inside sourceDir into targetDir.
// Files missing from the target are added, files whose content differs are
// updated and identical files are left alone. The first failure aborts the
// call; files copied before it stay in place.
func (s *Synchronizer) Sync(sourceDir, targetDir, label string) (Outcome, error) {
	outcome := Outcome{Label: label}

	isDir, err := asset.IsDir(s.fs, sourceDir)
	if err != nil {
		return outcome, fmt.Errorf("%s: %w: %s: %v", label, ErrMissingSource, sourceDir, err)
	}
	if !isDir {
		return outcome, fmt.Errorf("%s: %w: %s", label, ErrMissingSource, sourceDir)
	}

	entries, err := asset.Discover(s.fs, sourceDir)
	if err != nil {
		return outcome, fmt.Errorf("%s: %w: %s: %v", label, ErrMissingSource, sourceDir, err)
	}
	if len(entries) == 0 {
		return outcome, fmt.Errorf("%s: %w: %s", label, ErrEmptySource, sourceDir)
	}

	s.logger.Info("syncing directory",
		"label", label,
		"source", sourceDir,
		"target", targetDir,
		"files", asset.Names(entries),
		"dry_run", s.dryRun)

	if !s.dryRun {
		if err := s.fs.MkdirAll(targetDir, 0755); err != nil {
			return outcome, fmt.Errorf("%s: %w: %s: %v", label, ErrTargetUnwritable, targetDir, err)
		}
	}

	for _, entry := range entries {
		dst := s.fs.Join(targetDir, entry.Name)

		action, err := s.classify(entry.Path, dst)
		if err != nil {
			return outcome, fmt.Errorf("%s: %w", label, err)
		}

		if action != ActionUnchanged && !s.dryRun {
			if err := copyFile(s.fs, entry.Path, dst, entry.Mode); err != nil {
				return outcome, fmt.Errorf("%s: %w", label, &CopyError{Name: entry.Name, Err: err})
			}
		}

		s.logger.Debug("file processed", "label", label, "file", entry.Name, "action", action)
		outcome.record(entry.Name, action)
	}

	s.logger.Info("directory synced",
		"label", label,
		"added", outcome.Added,
		"updated", outcome.Updated,
		"unchanged", outcome.Unchanged)

	return outcome, nil
}

// classify decides what to do with one source file
func (s *Synchronizer) classify(src, dst string) (Action, error) {
	if _, err := s.fs.Stat(dst); err != nil {
		if os.IsNotExist(err) {
			return ActionAdded, nil
		}
		return "", &ComparisonError{Path: dst, Err: err}
	}

	same, err := Identical(s.fs, src, dst)
	if err != nil {
		return "", err
	}
	if same {
		return ActionUnchanged, nil
	}
	return ActionUpdated, nil
}
