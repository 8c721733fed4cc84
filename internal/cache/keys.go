package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ResearchKey identifies cached research for a topic and result limit.
func ResearchKey(topic string, maxSources int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(topic))))
	return fmt.Sprintf("research:%x:%d", sum[:8], maxSources)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
