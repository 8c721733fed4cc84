package research

import (
	"net/url"
	"regexp"
	"strings"
)

// Title normalization regexes compiled once at package init.
var (
	reSiteSuffix = regexp.MustCompile(`\s+[-|–—]\s+[^-|–—]{1,40}$`)
	rePunct      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// NormalizeTitle reduces a headline to the form used for deduplication:
// trailing " - Site Name" dropped, lowercase, punctuation stripped and
// whitespace collapsed.
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	if stripped := reSiteSuffix.ReplaceAllString(t, ""); len(strings.Fields(stripped)) >= 3 {
		t = stripped
	}
	t = strings.ToLower(t)
	t = rePunct.ReplaceAllString(t, " ")
	t = reWhitespace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// NormalizeURL reduces a link to the form used for deduplication: scheme
// and fragment dropped, host lowercased without "www.", tracking parameters
// removed and trailing slashes trimmed. Unparseable or relative links
// normalize to "".
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	out := host + strings.TrimRight(u.EscapedPath(), "/")
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// tokens splits text into lowercase words without punctuation.
func tokens(s string) []string {
	return strings.Fields(rePunct.ReplaceAllString(strings.ToLower(s), " "))
}
