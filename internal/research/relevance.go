package research

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// relatedKeywords widens topic matching for the common default topics.
var relatedKeywords = map[string][]string{
	"artificial intelligence": {"ai", "machine learning", "deep learning", "neural", "llm", "gpt", "chatbot"},
	"ai":                      {"artificial intelligence", "machine learning", "llm", "gpt", "neural"},
	"machine learning":        {"ml", "ai", "neural", "algorithm", "model", "training", "data science"},
	"ml":                      {"machine learning", "neural", "model", "training"},
	"technology trends":       {"tech", "innovation", "startup", "digital", "cloud", "mobile", "web"},
	"blockchain":              {"crypto", "bitcoin", "ethereum", "defi", "nft", "web3"},
	"cybersecurity":           {"security", "hacking", "breach", "malware", "encryption", "vulnerability"},
	"security":                {"cybersecurity", "hacking", "breach", "malware", "encryption", "vulnerability"},
}

// Score rates how relevant a snippet is to topic, in [0,1]. A score the
// source already assigned is blended in.
func Score(topic string, s models.SourceSnippet, now time.Time) float64 {
	phrase := strings.Join(tokens(topic), " ")
	title := strings.Join(tokens(s.Title), " ")
	excerpt := strings.Join(tokens(s.Excerpt), " ")

	var score float64
	switch {
	case phrase == "":
	case containsPhrase(title, phrase):
		score += 0.6
	case containsPhrase(excerpt, phrase):
		score += 0.3
	}

	score += 0.2 * overlap(tokens(topic), title+" "+excerpt)

	for _, kw := range relatedKeywords[phrase] {
		if containsPhrase(title, kw) || containsPhrase(excerpt, kw) {
			score += 0.1
			break
		}
	}

	if !s.PublishedAt.IsZero() {
		switch age := now.Sub(s.PublishedAt); {
		case age < 24*time.Hour:
			score += 0.1
		case age < 72*time.Hour:
			score += 0.05
		}
	}

	if s.Relevance > 0 {
		score = 0.7*score + 0.3*s.Relevance
	}
	return math.Max(0, math.Min(1, score))
}

// Relevant reports whether text mentions topic or one of its related keywords.
func Relevant(text, topic string) bool {
	body := strings.Join(tokens(text), " ")
	phrase := strings.Join(tokens(topic), " ")
	if body == "" || phrase == "" {
		return false
	}
	if containsPhrase(body, phrase) {
		return true
	}
	for _, kw := range relatedKeywords[phrase] {
		if containsPhrase(body, kw) {
			return true
		}
	}
	return false
}

// overlap is the fraction of topic words present in text.
func overlap(topicWords []string, text string) float64 {
	if len(topicWords) == 0 {
		return 0
	}
	words := strings.Fields(text)
	hits := 0
	for _, w := range topicWords {
		if slices.Contains(words, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(topicWords))
}

// containsPhrase matches phrase on word boundaries within normalized text.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
