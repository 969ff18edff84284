package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client is the version-control collaborator the gate depends on
type Client interface {
	// Revision returns the identifier of the revision currently checked out in dir
	Revision(ctx context.Context, dir string) (string, error)
	// Pull fetches the newest version and fast-forwards dir to it
	Pull(ctx context.Context, dir string) error
}

// ShellClient implements Client by shelling out to the git command
type ShellClient struct {
	remote string
	ref    string
}

// NewShellClient creates a new git client that uses the git command.
// Empty remote and ref make pull follow the branch's configured upstream.
func NewShellClient(remote, ref string) *ShellClient {
	return &ShellClient{
		remote: remote,
		ref:    ref,
	}
}

// Revision returns the commit hash of HEAD
func (c *ShellClient) Revision(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w%s", err, stderrOf(err))
	}

	commit := strings.TrimSpace(string(output))
	if commit == "" {
		return "", fmt.Errorf("git rev-parse returned an empty revision")
	}
	return commit, nil
}

// Pull runs a fast-forward-only pull
func (c *ShellClient) Pull(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "git", pullArgs(dir, c.remote, c.ref)...)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	if err := c.runCommand(cmd); err != nil {
		return fmt.Errorf("git pull failed: %w", err)
	}
	return nil
}

// pullArgs builds the git arguments for a fast-forward pull. A ref without a
// remote is ignored because git cannot take one on its own.
func pullArgs(dir, remote, ref string) []string {
	args := []string{"-C", dir, "pull", "--ff-only"}
	if remote != "" {
		args = append(args, remote)
		if ref != "" {
			args = append(args, ref)
		}
	}
	return args
}

// runCommand executes a command and returns an error with its output on failure
func (c *ShellClient) runCommand(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// stderrOf extracts captured stderr from an *exec.ExitError
func stderrOf(err error) string {
	if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
		return ": " + strings.TrimSpace(string(exitErr.Stderr))
	}
	return ""
}
