package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// TemplateName is the provider name recorded for template output.
const TemplateName = "template"

// maxTemplatePoints caps how many source titles become bullet points.
const maxTemplatePoints = 5

var templateProvider = NewTemplateProvider()

// TemplateProvider builds a deterministic artifact from the topic and any
// research snippets. It is offline, has no side effects and never fails.
type TemplateProvider struct{}

func NewTemplateProvider() *TemplateProvider { return &TemplateProvider{} }

func (p *TemplateProvider) Name() string { return TemplateName }

func (p *TemplateProvider) Synthesize(_ context.Context, req models.ContentRequest, sources []models.SourceSnippet) models.ProviderResult {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = "technology"
	}
	title := titleCase(topic)
	points := sourcePoints(sources)

	var a models.ContentArtifact
	switch req.ContentType {
	case models.ContentSlideDeck:
		a = slideDeckTemplate(topic, title, points)
	case models.ContentGraph:
		a = graphTemplate(topic, title, points)
	case models.ContentInfographic:
		a = infographicTemplate(topic, title, points)
	default:
		a = articleTemplate(topic, title, points)
	}

	a.Type = req.ContentType
	if a.Type == "" {
		a.Type = models.ContentArticle
	}
	a.Provenance = models.Provenance{Provider: TemplateName, Sources: sourceRefs(sources)}
	return models.Success(a)
}

func articleTemplate(topic, title string, points []string) models.ContentArtifact {
	if len(points) == 0 {
		points = []string{
			fmt.Sprintf("Current trends in %s are shaping the future", topic),
			fmt.Sprintf("Key players are investing heavily in %s technologies", topic),
			fmt.Sprintf("Market adoption of %s solutions is accelerating", topic),
		}
	}
	a := models.ContentArtifact{
		Headline: "Latest Insights on " + title,
		Sections: []models.Section{
			{Body: fmt.Sprintf("Exploring the latest developments in %s and their implications for the industry.", topic)},
			{Heading: "What's happening", Bullets: points},
			{Heading: "Key takeaways", Bullets: []string{
				fmt.Sprintf("%s is becoming increasingly important", title),
				"Organizations need to adapt to these changes",
				"Early adoption provides competitive advantages",
			}},
			{Body: fmt.Sprintf("Stay informed about %s developments to remain competitive. What are you seeing in your work?", topic)},
		},
	}
	a.AddHashtags(topic, "#Technology", "#Innovation", "#BusinessStrategy")
	return a
}

func slideDeckTemplate(topic, title string, points []string) models.ContentArtifact {
	if len(points) == 0 {
		points = []string{
			"Innovation in core technologies",
			"Integration with existing systems",
			"Focus on user experience",
		}
	}
	a := models.ContentArtifact{
		Headline: title + " Update: Latest trends and insights",
		Sections: []models.Section{
			{Heading: "Current state", Bullets: []string{
				fmt.Sprintf("%s is rapidly evolving", title),
				"Market adoption is increasing",
				"New technologies are emerging",
			}},
			{Heading: "Key trends", Bullets: points},
			{Heading: "Future outlook", Bullets: []string{
				"Continued growth expected",
				"New applications emerging",
				"Market consolidation likely",
			}},
			{Heading: "Key takeaways", Bullets: []string{
				fmt.Sprintf("%s is transforming industries", title),
				"Early adoption provides advantages",
				"Continuous learning is essential",
			}},
		},
	}
	a.AddHashtags(topic, "#TechTrends", "#Innovation")
	return a
}

func graphTemplate(topic, title string, points []string) models.ContentArtifact {
	a := models.ContentArtifact{
		Headline: title + " by the Numbers",
		Sections: []models.Section{
			{Heading: title + " adoption rates", Body: "Adoption rates across different sectors."},
			{Heading: title + " growth trend", Body: "How interest has grown over time."},
			{Heading: title + " market share", Body: "How the market is distributed across players."},
			{Heading: "Insights", Bullets: []string{
				fmt.Sprintf("%s adoption is accelerating", title),
				"Market leaders are emerging",
				"Investment is increasing significantly",
			}},
		},
	}
	if len(points) > 0 {
		a.Sections = append(a.Sections, models.Section{Heading: "In the news", Bullets: points})
	}
	a.AddHashtags(topic, "#DataVisualization", "#MarketTrends")
	return a
}

func infographicTemplate(topic, title string, points []string) models.ContentArtifact {
	if len(points) == 0 {
		points = []string{
			fmt.Sprintf("Why %s matters now", topic),
			fmt.Sprintf("Where %s is being adopted", topic),
			fmt.Sprintf("What to watch next in %s", topic),
		}
	}
	a := models.ContentArtifact{
		Headline: title + " Infographic",
		Sections: []models.Section{
			{Body: "Key insights and data, visualized."},
			{Heading: "Highlights", Bullets: points},
		},
	}
	a.AddHashtags(topic, "#Infographic", "#DataVisualization")
	return a
}

// sourcePoints turns snippet titles into bullets, keeping rank order.
func sourcePoints(sources []models.SourceSnippet) []string {
	var points []string
	for _, s := range sources {
		if len(points) == maxTemplatePoints {
			break
		}
		t := strings.TrimSpace(s.Title)
		if t == "" {
			continue
		}
		if s.Origin != "" {
			t = fmt.Sprintf("%s (%s)", t, s.Origin)
		}
		points = append(points, t)
	}
	return points
}

func sourceRefs(sources []models.SourceSnippet) []string {
	refs := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.URL != "" {
			refs = append(refs, s.URL)
		} else if s.Title != "" {
			refs = append(refs, s.Title)
		}
	}
	return refs
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

var _ models.Provider = (*TemplateProvider)(nil)
