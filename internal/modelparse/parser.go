// Package modelparse recovers structured JSON from free-form AI model
// responses. Model output is adversarial by accident rather than malicious:
// it arrives wrapped in markdown fences, prefixed with prose, truncated,
// single-quoted, or with trailing commas and bare keys.
//
// Parse applies a cascade of recovery strategies ordered from least to most
// destructive, so the first structurally valid candidate wins over a heavily
// rewritten one. Parse never fails: on total recovery failure it returns an
// empty value of the expected shape together with a diagnostic, and callers
// must surface that as a "could not extract" state rather than silent
// success.
package modelparse

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
)

// Shape declares which top-level JSON value the caller expects.
type Shape string

const (
	// ShapeObject expects a top-level JSON object.
	ShapeObject Shape = "object"
	// ShapeArray expects a top-level JSON array.
	ShapeArray Shape = "array"
)

// IsValid checks if the shape is supported
func (s Shape) IsValid() bool {
	return s == ShapeObject || s == ShapeArray
}

// ParseMethod identifies which recovery strategy produced the result.
type ParseMethod string

const (
	MethodBasicCleanup      ParseMethod = "basic_cleanup"
	MethodPatternExtraction ParseMethod = "pattern_extraction"
	MethodAggressiveRepair  ParseMethod = "aggressive_repair"
	MethodLineSalvage       ParseMethod = "line_salvage"
	MethodFallbackEmpty     ParseMethod = "fallback_empty"
)

// String returns the string representation of ParseMethod
func (m ParseMethod) String() string {
	return string(m)
}

// Result is the outcome of a parse attempt. Success is true even for the
// empty fallback; Method and Error tell callers how the value was obtained.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Method  ParseMethod `json:"method"`
	Error   string      `json:"error,omitempty"`
}

// maxSpanCandidates bounds the pattern-extraction scan so pathological
// inputs (thousands of nested brackets) stay linear.
const maxSpanCandidates = 16

// Parse recovers a JSON value of the expected shape from arbitrary model
// text. It never panics and never returns a nil Result.
func Parse(text string, shape Shape) *Result {
	if !shape.IsValid() {
		shape = ShapeObject
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fallbackResult(shape, "model response is empty")
	}

	// Strategy 1: basic cleanup, strip fences and surrounding prose.
	cleaned := basicCleanup(trimmed, shape)
	if data, ok := decodeShape(cleaned, shape); ok {
		return &Result{Success: true, Data: data, Method: MethodBasicCleanup}
	}

	// Strategy 2: pattern extraction over balanced bracket spans, longest first.
	for _, span := range balancedSpans(trimmed, shape) {
		if data, ok := decodeShape(span, shape); ok {
			return &Result{Success: true, Data: data, Method: MethodPatternExtraction}
		}
	}

	// Strategy 3: aggressive repair of the cleaned candidate.
	repaired := Repair(cleaned)
	if data, ok := decodeShape(repaired, shape); ok {
		return &Result{Success: true, Data: data, Method: MethodAggressiveRepair}
	}

	// Strategy 4: line-by-line salvage, array mode only.
	if shape == ShapeArray {
		if items, ok := salvageLines(trimmed); ok {
			return &Result{Success: true, Data: items, Method: MethodLineSalvage}
		}
	}

	return fallbackResult(shape, "no parseable JSON found in model response")
}

func fallbackResult(shape Shape, diagnostic string) *Result {
	var empty interface{}
	if shape == ShapeArray {
		empty = []interface{}{}
	} else {
		empty = map[string]interface{}{}
	}

	return &Result{
		Success: true,
		Data:    empty,
		Method:  MethodFallbackEmpty,
		Error:   diagnostic,
	}
}

// decodeShape parses s as JSON, preserving number precision, and checks the
// top-level value matches the expected shape.
func decodeShape(s string, shape Shape) (interface{}, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}

	// Reject trailing garbage after the first value.
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}

	switch shape {
	case ShapeArray:
		if arr, ok := v.([]interface{}); ok {
			return arr, true
		}
	case ShapeObject:
		if obj, ok := v.(map[string]interface{}); ok {
			return obj, true
		}
	}

	return nil, false
}

// basicCleanup strips markdown code fences, then prose before the first
// opening bracket of the expected shape and after its last closing bracket.
func basicCleanup(s string, shape Shape) string {
	s = stripCodeFences(s)

	open, close := "{", "}"
	if shape == ShapeArray {
		open, close = "[", "]"
	}

	start := strings.Index(s, open)
	end := strings.LastIndex(s, close)
	if start != -1 && end > start {
		s = s[start : end+1]
	}

	return strings.TrimSpace(s)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// balancedSpans scans for bracket-balanced candidate substrings of the
// expected shape, longest first. String contents are skipped so brackets
// inside quoted values do not break the depth count.
func balancedSpans(s string, shape Shape) []string {
	openCh, closeCh := byte('{'), byte('}')
	if shape == ShapeArray {
		openCh, closeCh = byte('['), byte(']')
	}

	var spans []string
	for i := 0; i < len(s) && len(spans) < maxSpanCandidates; i++ {
		if s[i] != openCh {
			continue
		}
		if end := matchingClose(s, i, openCh, closeCh); end != -1 {
			spans = append(spans, s[i:end+1])
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return len(spans[i]) > len(spans[j])
	})

	return spans
}

// matchingClose returns the index of the bracket closing the one at start,
// or -1 when the text ends before the span balances.
func matchingClose(s string, start int, openCh, closeCh byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// salvageLines attempts to parse each line of the text as a standalone
// object, repairing lines individually. Used only when whole-text recovery
// failed, typically on truncated arrays.
func salvageLines(s string) ([]interface{}, bool) {
	var items []interface{}

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSuffix(line, ",")
		if !strings.HasPrefix(line, "{") {
			continue
		}

		if obj, ok := decodeShape(line, ShapeObject); ok {
			items = append(items, obj)
			continue
		}
		if obj, ok := decodeShape(Repair(line), ShapeObject); ok {
			items = append(items, obj)
		}
	}

	if len(items) == 0 {
		return nil, false
	}
	return items, true
}
