// Package report renders run results as colored status lines for humans.
package report

import (
	"errors"
	"io"

	"github.com/fatih/color"

	"github.com/schaermu/rulesync/internal/git"
	"github.com/schaermu/rulesync/internal/sync"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgHiBlue)
	dimColor  = color.New(color.FgHiBlack)
)

// Print writes the report of a run. For a failed run only the directories
// that completed are listed.
func Print(w io.Writer, r *sync.Report) {
	if r.DryRun {
		_, _ = warnColor.Fprintln(w, "dry run: no files were written")
	}

	if r.UpToDate {
		_, _ = okColor.Fprintf(w, "✓ already up to date (%s)\n", git.ShortRevision(r.Version.To))
		return
	}

	if r.Version.Changed {
		_, _ = infoColor.Fprintf(w, "updated source %s → %s\n",
			git.ShortRevision(r.Version.From), git.ShortRevision(r.Version.To))
	} else {
		_, _ = infoColor.Fprintf(w, "source unchanged at %s, propagating anyway\n", git.ShortRevision(r.Version.To))
	}

	for _, o := range r.Outcomes {
		printOutcome(w, o)
	}

	if r.State == sync.StateFailed {
		_, _ = warnColor.Fprintf(w, "stopped after %d of the configured directories\n", len(r.Outcomes))
		return
	}

	printConfig(w, r.Config)

	_, _ = okColor.Fprintf(w, "✓ done: %d added, %d updated, %d unchanged\n",
		r.Added(), r.Updated(), r.Unchanged())
}

func printOutcome(w io.Writer, o sync.Outcome) {
	header := dimColor
	if o.Changed() {
		header = infoColor
	}
	_, _ = header.Fprintf(w, "%s: %d added, %d updated, %d unchanged\n",
		o.Label, o.Added, o.Updated, o.Unchanged)
	for _, d := range o.Decisions {
		switch d.Action {
		case sync.ActionAdded:
			_, _ = okColor.Fprintf(w, "  + %s\n", d.Name)
		case sync.ActionUpdated:
			_, _ = warnColor.Fprintf(w, "  ~ %s\n", d.Name)
		default:
			_, _ = dimColor.Fprintf(w, "  = %s\n", d.Name)
		}
	}
}

func printConfig(w io.Writer, c sync.ConfigResult) {
	switch c.Disposition {
	case sync.Copied:
		_, _ = okColor.Fprintf(w, "config: created %s\n", c.Target)
	case sync.SkippedExisting:
		_, _ = dimColor.Fprintf(w, "config: kept existing %s\n", c.Target)
	case sync.SkippedMissingSource:
		_, _ = dimColor.Fprintln(w, "config: no source file, skipped")
	}
}

// PrintError writes a single status line describing why a run failed
func PrintError(w io.Writer, err error) {
	_, _ = errColor.Fprintf(w, "✗ %s: %v\n", Category(err), err)
}

// Category names the failure class of err for display
func Category(err error) string {
	switch {
	case errors.Is(err, sync.ErrWrongInvocationContext):
		return "wrong directory"
	case errors.Is(err, git.ErrVersionRetrievalFailed):
		return "cannot read source version"
	case errors.Is(err, git.ErrUpdateFailed):
		return "update failed"
	case errors.Is(err, sync.ErrMissingSource):
		return "missing source"
	case errors.Is(err, sync.ErrEmptySource):
		return "empty source"
	case errors.Is(err, sync.ErrTargetUnwritable):
		return "target not writable"
	case errors.Is(err, sync.ErrCopyFailed):
		return "copy failed"
	case errors.Is(err, sync.ErrComparison):
		return "comparison failed"
	default:
		return "error"
	}
}
