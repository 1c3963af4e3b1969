// Package ratelimit implements rate-limit detection and request pacing for
// the quote provider. The provider signals throttling through HTTP 429
// responses and through message text that may embed a wait hint, in English
// or Vietnamese ("vui lòng thử lại sau 30 giây").
package ratelimit

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Signal is the result of classifying a provider error.
// The zero value means "not rate-limited".
type Signal struct {
	// RateLimited is true when the error looks like provider throttling.
	RateLimited bool

	// Wait is the wait duration extracted from the error message.
	// Zero when the message carried no numeric hint; callers apply their
	// own fallback in that case.
	Wait time.Duration
}

// rateLimitMarkers are the known throttling phrasings across provider
// versions. Matching is case-insensitive substring search.
var rateLimitMarkers = []string{
	"rate limit",
	"too many request",
	"quá nhiều request",
	"process terminated",
}

// waitHintPatterns extract a numeric wait from the message. Specific
// phrasings come first; bare "N seconds" is the last resort.
var waitHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sau\s+(\d+)\s+giây`),
	regexp.MustCompile(`(?i)after\s+(\d+)\s+seconds?`),
	regexp.MustCompile(`(?i)(\d+)\s+giây`),
	regexp.MustCompile(`(?i)(\d+)\s+seconds?`),
}

// statusCoder is implemented by provider errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Classify inspects an error from a failed provider request and reports
// whether it indicates rate limiting, extracting the wait hint when one is
// embedded in the message. It never panics on malformed input; an
// unrecognized error yields the zero Signal.
func Classify(err error) Signal {
	if err == nil {
		return Signal{}
	}

	msg := err.Error()
	limited := false

	if sc, ok := err.(statusCoder); ok && sc.HTTPStatus() == http.StatusTooManyRequests {
		limited = true
	}
	if !limited {
		lower := strings.ToLower(msg)
		for _, marker := range rateLimitMarkers {
			if strings.Contains(lower, marker) {
				limited = true
				break
			}
		}
	}
	if !limited {
		return Signal{}
	}

	return Signal{RateLimited: true, Wait: extractWait(msg)}
}

// extractWait pulls a "retry after N seconds" style hint out of a message.
// Returns 0 when no pattern matches or the number does not parse.
func extractWait(msg string) time.Duration {
	for _, pattern := range waitHintPatterns {
		m := pattern.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		seconds, err := strconv.Atoi(m[1])
		if err != nil || seconds < 0 {
			continue
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}
