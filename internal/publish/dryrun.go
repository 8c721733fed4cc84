package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// DryRunPublisher prints posts instead of sending them.
type DryRunPublisher struct {
	out    io.Writer
	logger *slog.Logger

	mu        sync.Mutex
	published []models.ContentArtifact
}

// NewDryRunPublisher writes each post to out, which may be nil.
func NewDryRunPublisher(out io.Writer, logger *slog.Logger) *DryRunPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunPublisher{out: out, logger: logger}
}

func (p *DryRunPublisher) Name() string { return "dry-run" }

func (p *DryRunPublisher) Publish(_ context.Context, artifact models.ContentArtifact) (string, error) {
	if artifact.IsEmpty() {
		return "", fmt.Errorf("%w: empty post body", ErrRejected)
	}
	id := "dryrun-" + uuid.NewString()

	p.mu.Lock()
	p.published = append(p.published, artifact)
	p.mu.Unlock()

	p.logger.Info("dry run: post not sent", "post_id", id, "headline", artifact.Headline, "chars", len([]rune(artifact.Body())))
	if p.out != nil {
		fmt.Fprintf(p.out, "----- %s -----\n%s\n\n", id, artifact.Body())
	}
	return id, nil
}

// Published returns the artifacts passed to Publish so far.
func (p *DryRunPublisher) Published() []models.ContentArtifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ContentArtifact(nil), p.published...)
}

var _ Publisher = (*DryRunPublisher)(nil)
