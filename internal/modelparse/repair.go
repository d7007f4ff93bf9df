package modelparse

import (
	"regexp"
	"strings"
)

// The repair pipeline is deliberately heuristic. Each step targets one
// defect class the extraction model is known to produce; steps run in a
// fixed order so earlier, safer rewrites get first chance at producing
// valid JSON.

var (
	smartQuoteReplacer = strings.NewReplacer(
		"“", `"`, // left double
		"”", `"`, // right double
		"„", `"`, // low double
		"‘", "'", // left single
		"’", "'", // right single
	)

	singleQuotedKeyRe   = regexp.MustCompile(`([{,]\s*)'([^']*)'(\s*:)`)
	singleQuotedValueRe = regexp.MustCompile(`(:\s*|\[\s*|,\s*)'([^']*)'`)
	missingCommaRe      = regexp.MustCompile(`(\}|\])(\s*)(\{|\[)`)
	trailingCommaRe     = regexp.MustCompile(`,(\s*[}\]])`)
	bareKeyRe           = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	bareValueRe         = regexp.MustCompile(`(:\s*)([A-Za-z_][A-Za-z0-9_ .\-/]*[A-Za-z0-9_.\-/])(\s*[,}\]])`)
	quotedLiteralRe     = regexp.MustCompile(`(:\s*)"(true|false|null)"`)
	quotedNumberRe      = regexp.MustCompile(`(:\s*)"(-?(?:0|[1-9]\d*)(?:\.\d+)?)"(\s*[,}\]])`)
)

// Repair rewrites near-JSON text into strict JSON. It normalizes quote
// characters, inserts commas between adjacent values, quotes bare keys and
// bare word values, unquotes incorrectly quoted literals and numbers, and
// strips trailing commas.
//
// Note the leading-zero guard on number unquoting: a value like "0123" is
// almost always an identifier (card digits), not a number, and unquoting it
// would both corrupt the data and produce invalid JSON.
func Repair(s string) string {
	s = smartQuoteReplacer.Replace(s)

	s = singleQuotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = singleQuotedValueRe.ReplaceAllString(s, `$1"$2"`)

	s = missingCommaRe.ReplaceAllString(s, `$1,$3`)

	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = quoteBareValues(s)

	s = quotedLiteralRe.ReplaceAllString(s, `$1$2`)
	s = quotedNumberRe.ReplaceAllString(s, `$1$2$3`)

	s = trailingCommaRe.ReplaceAllString(s, `$1`)

	return s
}

// quoteBareValues wraps unquoted word-like scalar values in double quotes,
// leaving JSON literals alone.
func quoteBareValues(s string) string {
	return bareValueRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := bareValueRe.FindStringSubmatch(match)
		if parts == nil {
			return match
		}
		token := parts[2]
		switch strings.ToLower(strings.TrimSpace(token)) {
		case "true", "false", "null":
			return match
		}
		return parts[1] + `"` + token + `"` + parts[3]
	})
}
