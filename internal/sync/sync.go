package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"github.com/schaermu/rulesync/internal/config"
	"github.com/schaermu/rulesync/internal/git"
)

// Options tune a single run
type Options struct {
	// WorkDir is the directory rulesync was started from
	WorkDir string
	// DryRun classifies every file without writing anything
	DryRun bool
	// Force propagates even when the source revision did not move
	Force bool
}

// Engine orchestrates the propagation run:
// init -> version-checked -> propagating -> done, or failed at any step.
type Engine struct {
	cfg    *config.Config
	gate   *git.Gate
	syncer *Synchronizer
	guard  *Guard
	logger *slog.Logger
	opts   Options
	state  State
}

// NewEngine creates a new engine. cfg must already be resolved against
// opts.WorkDir.
func NewEngine(cfg *config.Config, gitClient git.Client, fs billy.Filesystem, logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		cfg:    cfg,
		gate:   git.NewGate(gitClient, logger),
		syncer: NewSynchronizer(fs, logger, opts.DryRun),
		guard:  NewGuard(fs, logger, opts.DryRun),
		logger: logger,
		opts:   opts,
		state:  StateInit,
	}
}

// State returns the state the engine stopped in
func (e *Engine) State() State {
	return e.state
}

// Run executes the complete propagation. The returned report is never nil and
// reflects every step that completed, including on failure.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{State: StateInit, DryRun: e.opts.DryRun}

	if err := CheckInvocation(e.opts.WorkDir, e.cfg.Invocation.ExpectedDir); err != nil {
		return e.fail(report, err)
	}

	e.logger.Info("starting propagation",
		"source", e.cfg.Source.Dir,
		"backend", e.cfg.Source.Backend,
		"dry_run", e.opts.DryRun,
		"force", e.opts.Force)

	adv, err := e.gate.CheckAndAdvance(ctx, e.cfg.Source.Dir)
	report.Version = adv
	if err != nil {
		return e.fail(report, err)
	}
	e.transition(report, StateVersionChecked)

	if !adv.Changed && !e.opts.Force {
		report.UpToDate = true
		e.logger.Info("source already up to date, nothing to propagate", "revision", adv.To)
		e.transition(report, StateDone)
		return report, nil
	}

	e.transition(report, StatePropagating)

	for _, dir := range e.cfg.Assets {
		outcome, err := e.syncer.Sync(dir.Source, dir.Target, dir.Description)
		if err != nil {
			return e.fail(report, err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Config = ConfigResult{Target: e.cfg.ConfigFile.Target, Disposition: Disabled}
	if e.cfg.ConfigFile.Enabled() {
		disposition, err := e.guard.EnsureConfig(e.cfg.ConfigFile.Source, e.cfg.ConfigFile.Target)
		if err != nil {
			return e.fail(report, err)
		}
		report.Config.Disposition = disposition
	}

	e.transition(report, StateDone)
	e.logger.Info("propagation completed",
		"added", report.Added(),
		"updated", report.Updated(),
		"unchanged", report.Unchanged(),
		"config", report.Config.Disposition)

	return report, nil
}

// CheckInvocation verifies that workDir's last path element is expectedDir
func CheckInvocation(workDir, expectedDir string) error {
	if got := filepath.Base(filepath.Clean(workDir)); got != expectedDir {
		return fmt.Errorf("%w: running from %q, expected a directory named %q; cd into your %s checkout and run again",
			ErrWrongInvocationContext, workDir, expectedDir, expectedDir)
	}
	return nil
}

func (e *Engine) transition(report *Report, next State) {
	e.logger.Debug("state transition", "from", e.state, "to", next)
	e.state = next
	report.State = next
}

func (e *Engine) fail(report *Report, err error) (*Report, error) {
	e.transition(report, StateFailed)
	return report, err
}
