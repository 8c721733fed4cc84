package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

const systemPrompt = `You are a professional LinkedIn content creator and data analyst.
Write accurate, engaging posts grounded in the sources you are given.
Respond with a single JSON object and nothing else, using this structure:
{
  "headline": "60-80 character headline",
  "sections": [{"heading": "optional", "body": "paragraph", "bullets": ["optional"]}],
  "hashtags": ["#Example"]
}`

// maxExcerptBytes bounds each source excerpt sent to a provider.
const maxExcerptBytes = 500

var typeGuidance = map[models.ContentType]string{
	models.ContentArticle: "Write an article post: an engaging introduction, 3-5 main points with short explanations, " +
		"key takeaways and a call-to-action conclusion.",
	models.ContentSlideDeck: "Write the outline of a 4-6 slide carousel: one section per slide with a heading and 2-4 bullets, " +
		"ending with a key takeaways slide.",
	models.ContentGraph: "Describe 2-3 charts that would illustrate the data in the sources: one section per chart with a heading " +
		"naming the chart and a body describing what it shows, then an insights section.",
	models.ContentInfographic: "Write infographic copy: a short subtitle section followed by 3-5 sections, each a single striking " +
		"fact or statistic.",
}

// BuildPrompt renders the user prompt for a request and its research.
func BuildPrompt(req models.ContentRequest, sources []models.SourceSnippet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	guidance, ok := typeGuidance[req.ContentType]
	if !ok {
		guidance = typeGuidance[models.ContentArticle]
	}
	b.WriteString(guidance)
	b.WriteString("\n")
	if req.TargetLength > 0 {
		fmt.Fprintf(&b, "Keep the whole post under %d characters.\n", req.TargetLength)
	}
	b.WriteString("Include 5-10 relevant hashtags.\n\n")

	if len(sources) == 0 {
		fmt.Fprintf(&b, "No recent sources were found. Write from general knowledge about %s and avoid specific statistics.\n", req.Topic)
		return b.String()
	}

	b.WriteString("Sources:\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s", i+1, s.Title)
		if s.Origin != "" {
			fmt.Fprintf(&b, " [%s]", s.Origin)
		}
		b.WriteString("\n")
		if s.Excerpt != "" {
			fmt.Fprintf(&b, "   %s\n", truncateString(s.Excerpt, maxExcerptBytes))
		}
	}
	return b.String()
}

// artifactJSON accepts both the sectioned shape and the flat
// introduction/main_points/takeaways/conclusion shape some models prefer.
type artifactJSON struct {
	Headline     string           `json:"headline"`
	Sections     []models.Section `json:"sections"`
	Introduction string           `json:"introduction"`
	MainPoints   []string         `json:"main_points"`
	Takeaways    []string         `json:"takeaways"`
	Conclusion   string           `json:"conclusion"`
	Hashtags     []string         `json:"hashtags"`
}

// ParseArtifact extracts an artifact from a model reply. The reply may wrap the
// JSON object in a markdown fence or surrounding prose.
func ParseArtifact(raw string) (models.ContentArtifact, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return models.ContentArtifact{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedOutput)
	}

	var parsed artifactJSON
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return models.ContentArtifact{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	a := models.ContentArtifact{Headline: strings.TrimSpace(parsed.Headline)}
	if parsed.Introduction != "" {
		a.Sections = append(a.Sections, models.Section{Body: parsed.Introduction})
	}
	for _, s := range parsed.Sections {
		if strings.TrimSpace(s.Heading+s.Body) == "" && len(s.Bullets) == 0 {
			continue
		}
		a.Sections = append(a.Sections, s)
	}
	if len(parsed.MainPoints) > 0 {
		a.Sections = append(a.Sections, models.Section{Bullets: parsed.MainPoints})
	}
	if len(parsed.Takeaways) > 0 {
		a.Sections = append(a.Sections, models.Section{Heading: "Key takeaways", Bullets: parsed.Takeaways})
	}
	if parsed.Conclusion != "" {
		a.Sections = append(a.Sections, models.Section{Body: parsed.Conclusion})
	}
	a.AddHashtags(parsed.Hashtags...)

	if a.Headline == "" {
		return models.ContentArtifact{}, fmt.Errorf("%w: missing headline", ErrMalformedOutput)
	}
	if a.IsEmpty() {
		return models.ContentArtifact{}, fmt.Errorf("%w: empty body", ErrMalformedOutput)
	}
	return a, nil
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
