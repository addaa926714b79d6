package credential

import "strings"

// sensitiveHeaderNames is the built-in denylist of HTTP header names whose
// values must never reach a log line, grounded on pkg/masking's compiled-
// pattern idiom (config.GetBuiltinConfig().MaskingPatterns): a small,
// process-local, case-insensitive set checked once per header rather than
// pattern-matched per byte.
var sensitiveHeaderNames = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"proxy-authorization": {},
}

// IsSensitiveHeader reports whether name is on the logging denylist.
func IsSensitiveHeader(name string) bool {
	_, ok := sensitiveHeaderNames[strings.ToLower(name)]
	return ok
}

// RedactHeaders returns a copy of headers with every sensitive value
// replaced by a fixed placeholder, safe to pass to a structured logger.
func RedactHeaders(headers map[string][]string) map[string][]string {
	redacted := make(map[string][]string, len(headers))
	for name, values := range headers {
		if IsSensitiveHeader(name) {
			redacted[name] = []string{"[REDACTED]"}
			continue
		}
		redacted[name] = values
	}
	return redacted
}
