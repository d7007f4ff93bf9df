package modelparse

import (
	"strings"
	"testing"
)

func TestParseCleanObject(t *testing.T) {
	r := Parse(`{"bankName": "BBVA", "totalBalance": 1300.50}`, ShapeObject)

	if !r.Success || r.Method != MethodBasicCleanup {
		t.Fatalf("clean JSON should parse via basic cleanup, got %+v", r)
	}
	obj := r.Data.(map[string]interface{})
	if obj["bankName"] != "BBVA" {
		t.Errorf("bankName = %v", obj["bankName"])
	}
}

func TestParseFencedResponse(t *testing.T) {
	text := "Sure! Here is the data you asked for:\n```json\n" +
		`{"bankName": "Banorte"}` + "\n```\nLet me know if you need anything else."

	r := Parse(text, ShapeObject)

	if !r.Success || r.Method == MethodFallbackEmpty {
		t.Fatalf("fenced JSON should be recovered, got %+v", r)
	}
	if r.Data.(map[string]interface{})["bankName"] != "Banorte" {
		t.Errorf("data = %v", r.Data)
	}
}

func TestParseProseWrappedArray(t *testing.T) {
	text := `The transactions are: [{"description": "OXXO", "amount": 55}] as requested.`

	r := Parse(text, ShapeArray)

	arr, ok := r.Data.([]interface{})
	if !ok || len(arr) != 1 {
		t.Fatalf("expected one-element array, got %+v", r)
	}
}

func TestParsePatternExtractionSkipsDecoys(t *testing.T) {
	// The first balanced span is invalid JSON; a later one is valid.
	text := `{broken: [} and then {"description": "VALID", "amount": 10}`

	r := Parse(text, ShapeObject)

	if r.Method == MethodFallbackEmpty {
		t.Fatalf("expected recovery, got fallback: %s", r.Error)
	}
	obj, ok := r.Data.(map[string]interface{})
	if !ok || obj["description"] != "VALID" {
		t.Errorf("data = %+v via %s", r.Data, r.Method)
	}
}

func TestParseBracketsInsideStrings(t *testing.T) {
	text := `prefix {"description": "PAGO {EN} SUCURSAL [42]", "amount": 10} suffix`

	r := Parse(text, ShapeObject)

	obj, ok := r.Data.(map[string]interface{})
	if !ok || obj["description"] != "PAGO {EN} SUCURSAL [42]" {
		t.Errorf("brackets inside strings broke extraction: %+v (%s)", r.Data, r.Method)
	}
}

func TestParseAggressiveRepair(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"single quotes", `{'bankName': 'BBVA', 'totalBalance': 100}`},
		{"trailing comma", `{"bankName": "BBVA", "totalBalance": 100,}`},
		{"bare keys", `{bankName: "BBVA", totalBalance: 100}`},
		{"smart quotes", "{“bankName”: “BBVA”, “totalBalance”: 100}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.text, ShapeObject)
			if r.Method == MethodFallbackEmpty {
				t.Fatalf("expected repair to recover, got fallback: %s", r.Error)
			}
			obj := r.Data.(map[string]interface{})
			if obj["bankName"] != "BBVA" {
				t.Errorf("bankName = %v (method %s)", obj["bankName"], r.Method)
			}
		})
	}
}

func TestParseLineSalvage(t *testing.T) {
	// Truncated array: the closing bracket never arrived.
	text := `[
		{"description": "OXXO", "amount": 55},
		{"description": "SORIANA", "amount": 120},
		{"description": "TRUNCA`

	r := Parse(text, ShapeArray)

	if r.Method != MethodLineSalvage {
		t.Fatalf("expected line salvage, got %s (%s)", r.Method, r.Error)
	}
	arr := r.Data.([]interface{})
	if len(arr) != 2 {
		t.Errorf("expected 2 salvaged lines, got %d", len(arr))
	}
}

func TestParseLineSalvageIsArrayOnly(t *testing.T) {
	text := "garbage\n" + `{"description": "OXXO", "amount": 55}` + "\ngarbage {{{"

	// Object shape must not fall through to line salvage semantics: the
	// single object line is found by pattern extraction instead.
	r := Parse(text, ShapeObject)
	if r.Method == MethodLineSalvage {
		t.Errorf("line salvage must be array-only, got %s", r.Method)
	}
}

func TestParseNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"no json here at all",
		"}{",
		"[[[",
		`{"unterminated": "`,
		strings.Repeat("{", 10000),
		strings.Repeat("[{", 5000),
		"\x00\x01\x02",
	}

	for _, shape := range []Shape{ShapeObject, ShapeArray} {
		for _, input := range inputs {
			r := Parse(input, shape)
			if r == nil || !r.Success {
				t.Fatalf("Parse(%.20q, %s) must always succeed, got %+v", input, shape, r)
			}
			if r.Method == MethodFallbackEmpty && r.Error == "" {
				t.Errorf("fallback must carry a diagnostic for %.20q", input)
			}
		}
	}
}

func TestParseFallbackShapes(t *testing.T) {
	if r := Parse("nothing", ShapeObject); r.Data == nil {
		t.Error("object fallback must be an empty map, not nil")
	} else if _, ok := r.Data.(map[string]interface{}); !ok {
		t.Errorf("object fallback has wrong type: %T", r.Data)
	}

	if r := Parse("nothing", ShapeArray); r.Data == nil {
		t.Error("array fallback must be an empty slice, not nil")
	} else if _, ok := r.Data.([]interface{}); !ok {
		t.Errorf("array fallback has wrong type: %T", r.Data)
	}
}

func TestParseIdempotentOnCleanInput(t *testing.T) {
	clean := `{"bankName": "BBVA", "transactions": [{"amount": 10}]}`

	first := Parse(clean, ShapeObject)
	second := Parse(clean, ShapeObject)

	if first.Method != second.Method || first.Method != MethodBasicCleanup {
		t.Errorf("clean input must parse identically every time: %s vs %s", first.Method, second.Method)
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing comma", `{"a": 1,}`, `{"a": 1}`},
		{"missing comma between objects", `[{"a": 1} {"b": 2}]`, `[{"a": 1},{"b": 2}]`},
		{"quoted boolean", `{"a": "true"}`, `{"a": true}`},
		{"quoted number", `{"a": "12.5"}`, `{"a": 12.5}`},
		{"leading zero stays quoted", `{"digits": "0123"}`, `{"digits": "0123"}`},
		{"bare key", `{amount: 5}`, `{"amount": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Repair(tt.input); got != tt.want {
				t.Errorf("Repair(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
