package config

import (
	"regexp"
	"strings"
)

var (
	httpURL         = regexp.MustCompile(`^https?:`)
	schemeURL       = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+\-.]*:`)
	missingLeading  = regexp.MustCompile(`^([^/.])`)
	missingTrailing = regexp.MustCompile(`([^/])$`)
)

// Normalize rewrites path-like options into canonical form.
func Normalize(opts *ProjectOptions) {
	opts.BaseURL = strings.TrimPrefix(EnsureSlash(opts.BaseURL), "./")
	opts.OutputDir = RemoveSlash(opts.OutputDir)
}

// EnsureSlash adds a leading slash unless v is an absolute URL or already
// starts with "/" or ".", and ensures a single trailing slash.
func EnsureSlash(v string) string {
	if !httpURL.MatchString(v) {
		v = missingLeading.ReplaceAllString(v, "/$1")
	}
	return missingTrailing.ReplaceAllString(v, "$1/")
}

// RemoveSlash strips trailing slashes.
func RemoveSlash(v string) string {
	return strings.TrimRight(v, "/")
}

// IsAbsoluteURL reports whether v carries a scheme.
func IsAbsoluteURL(v string) bool {
	return schemeURL.MatchString(v)
}
