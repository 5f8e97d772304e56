// Package redact scrubs sensitive information from strings before they are
// logged or returned in error responses. The sync credential is a GitHub
// personal access token that rides along in request headers and error
// chains; redaction keeps it out of the log stream.
package redact

import "regexp"

// Placeholders substituted for matched secrets.
const (
	RedactedTokenPlaceholder = "[REDACTED_TOKEN]"
	RedactedPathPlaceholder  = "[REDACTED_PATH]"
)

var (
	// GitHub token formats: classic (ghp_), fine-grained (github_pat_),
	// OAuth (gho_), and app installation (ghs_, ghu_) tokens.
	githubTokenRegex = regexp.MustCompile(`\b(?:ghp|gho|ghs|ghu)_[A-Za-z0-9]{20,}\b|\bgithub_pat_[A-Za-z0-9_]{20,}\b`)

	// Bearer credentials quoted back from request headers.
	bearerRegex = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/]{8,}`)

	// Generic token/secret key-value fragments.
	tokenKVRegex = regexp.MustCompile(`(?i)\b(token|secret|credential)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// Local file paths leak the data directory layout.
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)

	patterns = []struct {
		re          *regexp.Regexp
		placeholder string
	}{
		{githubTokenRegex, RedactedTokenPlaceholder},
		{bearerRegex, RedactedTokenPlaceholder},
		{tokenKVRegex, "${1}${2}" + RedactedTokenPlaceholder},
		{unixPathRegex, RedactedPathPlaceholder},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range patterns {
		result = p.re.ReplaceAllString(result, p.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
