package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/schaermu/rulesync/internal/config"
	"github.com/schaermu/rulesync/internal/git"
	"github.com/schaermu/rulesync/internal/report"
	"github.com/schaermu/rulesync/internal/sync"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dryRun    bool
	force     bool
	noColor   bool
)

// usageError is a command-line mistake, reported without the status-line decoration
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the root command and maps its outcome to a process exit code
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		var uerr *usageError
		if errors.As(err, &uerr) {
			_, _ = fmt.Fprintf(stderr, "%s: %s\nRun '%s --help' for usage.\n", cmd.Name(), uerr.msg, cmd.Name())
			return 1
		}
		report.PrintError(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rulesync",
		Short: "Propagate shared rules, prompts and tool config into a project",
		Long: `rulesync updates the shared-rules checkout it is run from and copies its
assets into the surrounding project.

Rule and prompt files are copied flat into their target directories: new files
are added, files whose content differs are overwritten and identical files are
left alone. The tool configuration file is only created when the project does
not have one yet; an existing file is never modified.

Nothing is copied when the checkout is already at the newest revision.`,
		Args:          rejectArgs,
		RunE:          runPropagate,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("rulesync %s\n  commit: %s\n  built:  %s\n", version, commit, date))
	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultFileName+" if present, else built-in layout)")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flags.BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	flags.BoolVar(&force, "force", false, "propagate even if the source revision did not change")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func rejectArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{msg: "unknown option: " + args[0]}
	}
	return nil
}

func flagError(_ *cobra.Command, err error) error {
	msg := err.Error()
	for _, prefix := range []string{"unknown flag: ", "unknown shorthand flag: "} {
		if strings.HasPrefix(msg, prefix) {
			return &usageError{msg: "unknown option: " + strings.TrimPrefix(msg, prefix)}
		}
	}
	return &usageError{msg: "invalid option: " + msg}
}

func runPropagate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	if noColor {
		color.NoColor = true
	}

	logger := setupLogger(cmd.ErrOrStderr())

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	// The invocation context is checked before the configuration is
	// validated, so a broken config cannot mask a wrong directory.
	if err := sync.CheckInvocation(workDir, config.ExpectedDir(cfgFile, workDir)); err != nil {
		return err
	}

	cfg, err := loadConfig(logger, workDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine := sync.NewEngine(
		cfg.Resolve(workDir),
		newGitClient(cfg.Source),
		osfs.New("/"),
		logger,
		sync.Options{WorkDir: workDir, DryRun: dryRun, Force: force},
	)

	rep, err := engine.Run(ctx)
	if err != nil {
		logger.Debug("propagation stopped", "state", engine.State(), "error", err)
		if len(rep.Outcomes) > 0 {
			report.Print(cmd.OutOrStdout(), rep)
		}
		return err
	}

	report.Print(cmd.OutOrStdout(), rep)
	return nil
}

func newGitClient(src config.SourceConfig) git.Client {
	if src.Backend == config.BackendGoGit {
		return git.NewGoGitClient(src.Remote, src.Ref)
	}
	return git.NewShellClient(src.Remote, src.Ref)
}

func setupLogger(w io.Writer) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger, workDir string) (*config.Config, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile, workDir)
	if err != nil {
		return nil, err
	}

	if path == "" {
		logger.Info("no config file found, using built-in layout")
	} else {
		logger.Info("configuration loaded", "path", path)
	}

	logger.Debug("configuration",
		"expected_dir", cfg.Invocation.ExpectedDir,
		"source_dir", cfg.Source.Dir,
		"backend", cfg.Source.Backend,
		"assets", len(cfg.Assets),
		"config_file", cfg.ConfigFile.Enabled())

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
