package logging

import (
	"net/url"
	"regexp"
	"strings"
)

// Query parameter names whose values never reach the logs.
var sensitiveParams = []string{
	"token",
	"access_token",
	"signature",
	"sig",
	"key",
	"api_key",
	"apikey",
	"secret",
	"password",
	"auth",
	"credential",
	"x-amz-signature",
	"x-amz-credential",
	"x-amz-security-token",
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/=-]+`),
	regexp.MustCompile(`(?i)basic\s+[a-zA-Z0-9+/=]{8,}`),
	// user:password@ in URLs
	regexp.MustCompile(`(?i)(https?://)[^/\s:@]+:[^/\s@]+@`),
	regexp.MustCompile(`(?i)(ghp_[a-zA-Z0-9]{36})`),
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9]{20,})`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in free text.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			lower := strings.ToLower(match)
			if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
				scheme := match[:strings.Index(match, "://")+3]
				return scheme + RedactedValue + "@"
			}
			return RedactedValue
		})
	}
	return result
}

// RedactURL masks credentials and sensitive query parameters in a URL so origins
// such as signed bucket URLs can be logged. Unparseable input falls back to Redact.
func RedactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return Redact(raw)
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), RedactedValue)
		}
	}
	if parsed.RawQuery != "" {
		query := parsed.Query()
		for name := range query {
			if IsSensitiveParam(name) {
				query.Set(name, RedactedValue)
			}
		}
		parsed.RawQuery = query.Encode()
	}
	out := parsed.String()
	return strings.ReplaceAll(out, url.QueryEscape(RedactedValue), RedactedValue)
}

// IsSensitiveParam reports whether a query parameter name is considered sensitive.
func IsSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, param := range sensitiveParams {
		if lower == param || strings.HasSuffix(lower, "_"+param) {
			return true
		}
	}
	return false
}
