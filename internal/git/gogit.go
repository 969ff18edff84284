package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultRemoteName is used by the go-git client when no remote is configured
const DefaultRemoteName = "origin"

// GoGitClient implements Client in-process with go-git
type GoGitClient struct {
	remote string
	ref    string
}

// NewGoGitClient creates a client backed by go-git
func NewGoGitClient(remote, ref string) *GoGitClient {
	if remote == "" {
		remote = DefaultRemoteName
	}
	return &GoGitClient{
		remote: remote,
		ref:    ref,
	}
}

// Revision returns the hash HEAD points at
func (c *GoGitClient) Revision(_ context.Context, dir string) (string, error) {
	repo, err := c.open(dir)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// Pull fast-forwards the worktree in dir. Being already up to date is not an error.
func (c *GoGitClient) Pull(ctx context.Context, dir string) error {
	repo, err := c.open(dir)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	opts := &gogit.PullOptions{RemoteName: c.remote}
	if c.ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(c.ref)
		opts.SingleBranch = true
	}

	err = worktree.PullContext(ctx, opts)
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, gogit.ErrRemoteNotFound):
		return fmt.Errorf("remote %q not found: %w", c.remote, err)
	case errors.Is(err, gogit.ErrNonFastForwardUpdate):
		return fmt.Errorf("local branch has diverged from %s: %w", c.remote, err)
	default:
		return fmt.Errorf("failed to pull from %s: %w", c.remote, err)
	}
}

func (c *GoGitClient) open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	return repo, nil
}
