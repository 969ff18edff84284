package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrVersionRetrievalFailed is returned when the current revision cannot be read
	ErrVersionRetrievalFailed = errors.New("version retrieval failed")

	// ErrUpdateFailed is returned when pulling the latest version fails
	ErrUpdateFailed = errors.New("update failed")
)

// Advance is the before/after revision pair around an update
type Advance struct {
	From    string
	To      string
	Changed bool
}

// Gate updates the versioned source and reports whether it moved
type Gate struct {
	client Client
	logger *slog.Logger
}

// NewGate creates a new version gate
func NewGate(client Client, logger *slog.Logger) *Gate {
	return &Gate{
		client: client,
		logger: logger,
	}
}

// CheckAndAdvance records the revision in dir, pulls the latest version and
// records the revision again. Changed is true only when the two differ.
func (g *Gate) CheckAndAdvance(ctx context.Context, dir string) (Advance, error) {
	from, err := g.client.Revision(ctx, dir)
	if err != nil {
		return Advance{}, fmt.Errorf("%w: %v", ErrVersionRetrievalFailed, err)
	}
	g.logger.Info("current revision", "dir", dir, "revision", from)

	g.logger.Info("pulling latest version", "dir", dir)
	if err := g.client.Pull(ctx, dir); err != nil {
		return Advance{From: from}, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	to, err := g.client.Revision(ctx, dir)
	if err != nil {
		return Advance{From: from}, fmt.Errorf("%w: %v", ErrVersionRetrievalFailed, err)
	}

	adv := Advance{From: from, To: to, Changed: from != to}
	g.logger.Info("version checked", "from", from, "to", to, "changed", adv.Changed)
	return adv, nil
}

// ShortRevision trims a revision identifier for display
func ShortRevision(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
