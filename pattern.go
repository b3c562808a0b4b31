package cacheproxy

import "strings"

// httpMethodTokens are the method prefixes a Pattern may carry, per
// spec.md §3/§4.1. Order matters only for readability; matching below
// checks all nine.
var httpMethodTokens = [...]string{
	"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "CONNECT", "TRACE",
}

// parsePattern splits a trimmed pattern into an optional leading HTTP method
// and the remaining path-glob, per spec.md §4.1. A method prefix must be
// followed by at least one space or tab; anything else leaves the whole,
// trimmed string as the path-glob with no method constraint.
func parsePattern(pattern string) (method string, glob string) {
	trimmed := strings.TrimSpace(pattern)
	for _, m := range httpMethodTokens {
		if !strings.HasPrefix(trimmed, m) {
			continue
		}
		rest := trimmed[len(m):]
		if len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
			return m, strings.TrimLeft(rest, " \t")
		}
	}
	return "", trimmed
}

// matchGlob reports whether path matches a path-glob whose sole wildcard
// metacharacter is '*', matching any (possibly empty) substring. Matching is
// byte-oriented and case-sensitive, per spec.md §4.1.
func matchGlob(path, glob string) bool {
	segments := strings.Split(glob, "*")
	if len(segments) == 1 {
		return path == glob
	}

	pos := 0

	first := segments[0]
	if first != "" {
		if !strings.HasPrefix(path, first) {
			return false
		}
		pos = len(first)
	}

	last := segments[len(segments)-1]
	middle := segments[1 : len(segments)-1]

	for _, seg := range middle {
		if seg == "" {
			continue
		}
		idx := strings.Index(path[pos:], seg)
		if idx == -1 {
			return false
		}
		pos += idx + len(seg)
	}

	if last == "" {
		return true
	}
	if !strings.HasSuffix(path, last) {
		return false
	}
	// The suffix match must start no earlier than pos, otherwise a short
	// path could satisfy both the prefix and the suffix by overlapping the
	// same bytes that matched an earlier segment.
	return len(path)-len(last) >= pos
}

// matchPattern reports whether (method, path) matches pattern, applying both
// the method-prefix policy and the path-glob, per spec.md §4.1.
func matchPattern(method, path, pattern string) bool {
	patMethod, glob := parsePattern(pattern)
	if patMethod != "" && patMethod != method {
		return false
	}
	return matchGlob(path, glob)
}

// shouldCache implements spec.md §4.1's should_cache: exclusions are
// evaluated first and always win; an empty include list means "include
// everything that wasn't excluded".
func shouldCache(method, path string, include, exclude []string) bool {
	for _, p := range exclude {
		if matchPattern(method, path, p) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, p := range include {
		if matchPattern(method, path, p) {
			return true
		}
	}
	return false
}
