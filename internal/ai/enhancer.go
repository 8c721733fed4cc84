package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/tmc/langchaingo/llms"
)

// maxHashtags caps the hashtag set after enhancement.
const maxHashtags = 10

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "into": true, "your": true, "you": true, "are": true, "how": true,
	"why": true, "what": true, "new": true, "its": true, "about": true, "will": true,
	"has": true, "have": true, "over": true, "more": true, "after": true, "now": true,
	"can": true, "not": true, "but": true, "who": true, "out": true, "was": true,
}

// Enhancer augments a finished artifact with trend hashtags. It never changes
// a run's outcome: on failure the caller keeps the pre-enhancement artifact.
type Enhancer struct {
	trend   llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// EnhancerOption customizes an Enhancer.
type EnhancerOption func(*Enhancer)

// WithTrendModel asks model for trending hashtags in addition to keyword extraction.
func WithTrendModel(model llms.Model) EnhancerOption {
	return func(e *Enhancer) { e.trend = model }
}

// WithEnhancerLogger sets the logger.
func WithEnhancerLogger(l *slog.Logger) EnhancerOption {
	return func(e *Enhancer) { e.logger = l }
}

func NewEnhancer(timeout time.Duration, opts ...EnhancerOption) *Enhancer {
	e := &Enhancer{timeout: timeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enhance returns the augmented artifact, or the original artifact and the
// error when augmentation fails.
func (e *Enhancer) Enhance(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet, artifact models.ContentArtifact) (enhanced models.ContentArtifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in enhancer", "error", r)
			enhanced, err = artifact, fmt.Errorf("enhance: panic: %v", r)
		}
	}()

	out := artifact
	out.Hashtags = append([]string(nil), artifact.Hashtags...)
	out.AddHashtags(TrendKeywords(req.Topic, sources, 3)...)

	if e.trend != nil {
		tags, err := e.suggest(ctx, req, artifact)
		if err != nil {
			return artifact, fmt.Errorf("enhance: %w", Classify(err))
		}
		out.AddHashtags(tags...)
	}

	if len(out.Hashtags) > maxHashtags {
		out.Hashtags = out.Hashtags[:maxHashtags]
	}
	out.Provenance.Enhanced = true
	return out, nil
}

func (e *Enhancer) suggest(ctx context.Context, req models.ContentRequest, artifact models.ContentArtifact) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Suggest up to 5 currently trending LinkedIn hashtags for a post about %q titled %q. "+
			"Reply with the hashtags only, separated by spaces.", req.Topic, artifact.Headline)

	reply, err := llms.GenerateFromSinglePrompt(callCtx, e.trend, prompt, llms.WithMaxTokens(100))
	if err != nil {
		return nil, err
	}
	return ParseHashtags(reply), nil
}

// ParseHashtags extracts #tags from free text, at most five.
func ParseHashtags(reply string) []string {
	var tags []string
	for _, field := range strings.Fields(reply) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		if tag := models.NormalizeHashtag(strings.TrimRight(field, ".,;:!?")); tag != "" {
			tags = append(tags, tag)
		}
		if len(tags) == 5 {
			break
		}
	}
	return tags
}

// TrendKeywords returns up to n words that recur across snippet titles and
// are not part of the topic itself, most frequent first.
func TrendKeywords(topic string, sources []models.SourceSnippet, n int) []string {
	topicWords := make(map[string]bool)
	for _, w := range tokenize(topic) {
		topicWords[w] = true
	}

	counts := make(map[string]int)
	for _, s := range sources {
		seen := make(map[string]bool)
		for _, w := range tokenize(s.Title) {
			if len(w) < 3 || stopwords[w] || topicWords[w] || seen[w] {
				continue
			}
			seen[w] = true
			counts[w]++
		}
	}

	var words []string
	for w, c := range counts {
		if c >= 2 {
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
