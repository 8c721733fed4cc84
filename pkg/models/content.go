package models

import (
	"fmt"
	"strings"
	"time"
)

// ContentType is the shape of post produced for a run.
type ContentType string

const (
	ContentArticle     ContentType = "article"
	ContentSlideDeck   ContentType = "slide-deck"
	ContentGraph       ContentType = "graph"
	ContentInfographic ContentType = "infographic"
)

// ContentTypes lists every supported content type.
var ContentTypes = []ContentType{ContentArticle, ContentSlideDeck, ContentGraph, ContentInfographic}

// ParseContentType validates s as a content type. "slides" and "slide" are
// accepted as aliases for slide-deck.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "article":
		return ContentArticle, nil
	case "slide-deck", "slides", "slide":
		return ContentSlideDeck, nil
	case "graph":
		return ContentGraph, nil
	case "infographic":
		return ContentInfographic, nil
	default:
		return "", fmt.Errorf("unknown content type %q: must be one of article, slide-deck, graph, infographic", s)
	}
}

// Visual reports whether the type benefits from a rendered image.
func (t ContentType) Visual() bool {
	return t == ContentSlideDeck || t == ContentGraph || t == ContentInfographic
}

// ContentRequest is built once per run by the rotation policy.
type ContentRequest struct {
	Topic        string      `json:"topic"`
	ContentType  ContentType `json:"content_type"`
	MaxSources   int         `json:"max_sources"`
	TargetLength int         `json:"target_length"`
}

// SourceSnippet is one ranked research result.
type SourceSnippet struct {
	Origin      string    `json:"origin"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Excerpt     string    `json:"excerpt"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Relevance   float64   `json:"relevance"`
}

// Section is one ordered block of an artifact body.
type Section struct {
	Heading string   `json:"heading,omitempty"`
	Body    string   `json:"body,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

// Provenance records where an artifact came from.
type Provenance struct {
	Provider string   `json:"provider"`
	Sources  []string `json:"sources,omitempty"`
	Enhanced bool     `json:"enhanced,omitempty"`
}

// ContentArtifact is the finished post ready for publication.
type ContentArtifact struct {
	Headline   string      `json:"headline"`
	Sections   []Section   `json:"sections"`
	Hashtags   []string    `json:"hashtags,omitempty"`
	ImageRefs  []string    `json:"image_refs,omitempty"`
	Provenance Provenance  `json:"provenance"`
	Type       ContentType `json:"content_type,omitempty"`
}

// IsEmpty reports whether no section carries any text.
func (a ContentArtifact) IsEmpty() bool {
	for _, s := range a.Sections {
		if strings.TrimSpace(s.Body) != "" {
			return false
		}
		for _, b := range s.Bullets {
			if strings.TrimSpace(b) != "" {
				return false
			}
		}
	}
	return true
}

// AddHashtags merges tags into the artifact, ignoring duplicates (case-insensitive).
func (a *ContentArtifact) AddHashtags(tags ...string) {
	seen := make(map[string]bool, len(a.Hashtags))
	for _, h := range a.Hashtags {
		seen[strings.ToLower(h)] = true
	}
	for _, t := range tags {
		t = NormalizeHashtag(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		a.Hashtags = append(a.Hashtags, t)
	}
}

// Body renders the artifact as plain post text.
func (a ContentArtifact) Body() string {
	var b strings.Builder
	if a.Headline != "" {
		b.WriteString(a.Headline)
		b.WriteString("\n\n")
	}
	for _, s := range a.Sections {
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString("\n")
		}
		if s.Body != "" {
			b.WriteString(s.Body)
			b.WriteString("\n")
		}
		for _, bullet := range s.Bullets {
			b.WriteString("• ")
			b.WriteString(bullet)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(a.Hashtags) > 0 {
		b.WriteString(strings.Join(a.Hashtags, " "))
	}
	return strings.TrimSpace(b.String())
}

// NormalizeHashtag turns "quantum computing" or "#Quantum-Computing" into
// "#QuantumComputing". Returns "" if nothing usable remains.
func NormalizeHashtag(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}
