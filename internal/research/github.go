package research

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// DefaultGitHubURL is the GitHub host scraped for trending repositories.
const DefaultGitHubURL = "https://github.com"

// trendingRepos bounds how many repositories are taken from the page.
const trendingRepos = 5

// GitHubTrendingStrategy reads github.com/trending.
type GitHubTrendingStrategy struct{}

func (GitHubTrendingStrategy) Name() string { return "github-trending" }

func (GitHubTrendingStrategy) Extract(doc *goquery.Document, base *url.URL) []models.SourceSnippet {
	var out []models.SourceSnippet
	doc.Find("article.Box-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		link := row.Find("h2 a").First()
		title := strings.ReplaceAll(collapse(link.Text()), " / ", "/")
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		out = append(out, models.SourceSnippet{
			Origin:    "github",
			Title:     title,
			URL:       resolve(base, href),
			Excerpt:   excerpt(row.Find("p").First().Text()),
			Relevance: popularity(starsToday(row)),
		})
		return len(out) < trendingRepos
	})
	return out
}

// starsToday parses the "1,234 stars today" counter; zero when absent.
func starsToday(row *goquery.Selection) int {
	text := collapse(row.Find("span.float-sm-right").Last().Text())
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// NewGitHubTrendingSource scrapes the trending page under baseURL. Trending
// repositories are kept regardless of topic and ranked by the aggregator.
func NewGitHubTrendingSource(baseURL string, opts ...HTTPOption) *HTMLSource {
	if baseURL == "" {
		baseURL = DefaultGitHubURL
	}
	return NewHTMLSource("github", strings.TrimRight(baseURL, "/")+"/trending",
		GitHubTrendingStrategy{}, Unfiltered(), WithHTTP(opts...))
}
