package sanitize

import (
	"regexp"
	"strings"
)

// MaxStringLength is the cap applied to every string leaf after cleaning.
const MaxStringLength = 10000

var (
	scriptPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	iframePattern     = regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`)
	jsSchemePattern   = regexp.MustCompile(`(?i)javascript:`)
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE)\b`)
)

// Clean recursively sanitizes a JSON-like value. String leaves are trimmed,
// stripped of script/iframe tags and javascript: schemes, and truncated to
// MaxStringLength. Slices keep their order and length, maps keep their key
// set. Non-string scalars and nil pass through unchanged.
//
// Clean is pure and idempotent: Clean(Clean(v)) == Clean(v).
func Clean(v any) any {
	switch val := v.(type) {
	case string:
		return cleanString(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clean(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Clean(elem)
		}
		return out
	default:
		return v
	}
}

// cleanString strips to a fixpoint before trimming: removing an inner
// pattern can splice the surrounding fragments into a new one (of the same
// or another pattern), so a single replacement pass would let a reassembled
// script tag through. Trimming last keeps Clean idempotent when removal
// exposes edge whitespace.
func cleanString(s string) string {
	for {
		next := scriptPattern.ReplaceAllString(s, "")
		next = iframePattern.ReplaceAllString(next, "")
		next = jsSchemePattern.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	if len(s) > MaxStringLength {
		s = s[:MaxStringLength]
	}
	return strings.TrimSpace(s)
}

// ContainsSQLKeywords reports whether the serialized payload contains a bare
// SQL keyword as a whole word, case-insensitively.
//
// The scan runs over the full serialized request, field names and structural
// punctuation included, so a legitimate field that happens to be named after
// a SQL keyword is rejected too. This coarse scope is deliberate; narrowing
// it changes which requests get rejected.
func ContainsSQLKeywords(payload string) bool {
	return sqlKeywordPattern.MatchString(payload)
}
