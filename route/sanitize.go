package route

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// safePathChars allow-lists the characters relay accepts in a request path
// after normalization, adapted from the teacher's security/path.go
// (RFC 3986 + common web-safe set).
var safePathChars = regexp.MustCompile(`^[a-zA-Z0-9/_\-.~ ]*$`)

// SanitizePath percent-decodes, cleans, and validates a raw request-line
// path before it reaches tree lookup, so "../" traversal and disallowed
// bytes never influence route matching. Returns "" for an invalid path;
// callers should treat that as a bad request.
func SanitizePath(raw string) string {
	if raw == "" {
		return "/"
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return ""
	}
	clean := path.Clean(decoded)
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if !safePathChars.MatchString(clean) {
		return ""
	}
	return clean
}
