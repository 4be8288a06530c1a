// Package pathutil maps request paths to route templates so that metric
// labels stay bounded no matter how many ids clients send.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern maps paths matching Pattern to Template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/deliveries/count$`), Template: "/deliveries/count"},
	{Pattern: regexp.MustCompile(`^/deliveries/[^/]+$`), Template: "/deliveries/:id"},
	{Pattern: regexp.MustCompile(`^/feeds/[^/]+/deliveries$`), Template: "/feeds/:feedID/deliveries"},
}

var staticPaths = map[string]bool{
	"/attempts":        true,
	"/attempts/latest": true,
	"/attempts/exists": true,
	"/feeds/health":    true,
	"/health":          true,
	"/ready":           true,
	"/live":            true,
	"/metrics":         true,
}

// NormalizePath returns the route template for path. Paths that match no
// route collapse to "other".
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	if staticPaths[path] {
		return path
	}
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return "other"
}

// ExpectedCardinality is the number of distinct values NormalizePath can return.
func ExpectedCardinality() int {
	return len(staticPaths) + len(pathPatterns) + 1
}
