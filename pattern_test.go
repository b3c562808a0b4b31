package cacheproxy

import "testing"

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		wantMethod string
		wantGlob   string
	}{
		{"no method", "/api/*", "", "/api/*"},
		{"method prefix", "GET /api/*", "GET", "/api/*"},
		{"tab separated", "POST\t/api/admin/*", "POST", "/api/admin/*"},
		{"leading whitespace", "  DELETE /x", "DELETE", "/x"},
		{"method-like prefix without separator", "GETSOMETHING", "", "GETSOMETHING"},
		{"bare star", "*", "", "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, glob := parsePattern(tt.pattern)
			if method != tt.wantMethod || glob != tt.wantGlob {
				t.Errorf("parsePattern(%q) = (%q, %q), want (%q, %q)", tt.pattern, method, glob, tt.wantMethod, tt.wantGlob)
			}
		})
	}
}

func TestMatchGlobExact(t *testing.T) {
	// Property 1: no '*' means exact equality.
	cases := []struct {
		path, glob string
		want       bool
	}{
		{"/x", "/x", true},
		{"/x", "/y", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := matchGlob(c.path, c.glob); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.path, c.glob, got, c.want)
		}
	}
}

func TestMatchGlobWildcardAlwaysMatches(t *testing.T) {
	// Property 2: "*" matches any path.
	for _, p := range []string{"", "/", "/a/b/c", "anything at all"} {
		if !matchGlob(p, "*") {
			t.Errorf("matchGlob(%q, \"*\") = false, want true", p)
		}
	}
}

func TestMatchGlobSegments(t *testing.T) {
	cases := []struct {
		path, glob string
		want       bool
	}{
		{"/api/users", "/api/*", true},
		{"/api/", "/api/*", true},
		{"/ap", "/api/*", false},
		{"/api/users/42", "/api/*/42", true},
		{"/api/users/43", "/api/*/42", false},
		{"/a/mid/b", "/a/*mid*/b", true},
		{"abc", "*b*", true},
		{"ac", "*b*", false},
		{"/x/y", "*/y", true},
		{"/x/y", "/x/*", true},
	}
	for _, c := range cases {
		if got := matchGlob(c.path, c.glob); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.path, c.glob, got, c.want)
		}
	}
}

func TestMatchGlobOverlapRejected(t *testing.T) {
	// A short path can't satisfy both a non-empty prefix and a non-empty
	// suffix by overlapping the same bytes.
	if matchGlob("abc", "abc*abc") {
		t.Error("matchGlob(\"abc\", \"abc*abc\") should not match")
	}
}

func TestMatchPatternMethodPolicy(t *testing.T) {
	// Property 3.
	if !matchPattern("GET", "/api/x", "GET /api/*") {
		t.Error("expected method+glob match")
	}
	if matchPattern("POST", "/api/x", "GET /api/*") {
		t.Error("expected method mismatch to reject")
	}
	if !matchPattern("POST", "/api/x", "/api/*") {
		t.Error("expected method-less pattern to match any method")
	}
}

func TestShouldCacheExcludeOverridesInclude(t *testing.T) {
	// Property 4.
	include := []string{"/api/*"}
	exclude := []string{"POST */api/admin/*"}

	if !shouldCache("GET", "/api/users", include, exclude) {
		t.Error("expected /api/users to be cacheable")
	}
	if shouldCache("POST", "/api/admin/ban", include, exclude) {
		t.Error("expected excluded admin path to bypass caching regardless of include")
	}
}

func TestShouldCacheEmptyIncludeMeansAll(t *testing.T) {
	if !shouldCache("GET", "/anything", nil, nil) {
		t.Error("expected empty include/exclude to cache everything")
	}
}

func TestShouldCacheExcludeWinsEvenWithoutInclude(t *testing.T) {
	if shouldCache("GET", "/secret", nil, []string{"/secret"}) {
		t.Error("expected exclude to reject even with empty include list")
	}
}
