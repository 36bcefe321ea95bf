package jsondoc

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"whitespace":       " \n\t ",
		"unbalanced":       `{"a":[1,2}`,
		"invalid literal":  `{"a":tru}`,
		"trailing garbage": `{"a":1} x`,
		"two values":       `1 2`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(input)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("Parse(%q) error = %v, want ErrMalformed", input, err)
			}
		})
	}
}

func TestRoundTripPreservesStructure(t *testing.T) {
	inputs := []string{
		`[]`,
		`{}`,
		`"plain"`,
		`12345678901234567890`,
		`3.141592653589793238`,
		`null`,
		`{"name":"Ann","uuid":"u1","tags":["a","b"],"nested":{"ok":true,"n":-1.5e3}}`,
		`[{"id":1,"options":[{"label":"是","value":"yes"}]},{"html":"<b>&</b>"}]`,
	}
	for _, input := range inputs {
		original, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}

		compact, err := Compact(original)
		if err != nil {
			t.Fatalf("Compact() error = %v", err)
		}
		fromCompact, err := Parse(compact)
		if err != nil {
			t.Fatalf("Parse(compact %q) error = %v", compact, err)
		}
		if !reflect.DeepEqual(original, fromCompact) {
			t.Fatalf("compact round trip mismatch: %#v vs %#v", original, fromCompact)
		}

		pretty, err := Pretty(original)
		if err != nil {
			t.Fatalf("Pretty() error = %v", err)
		}
		fromPretty, err := Parse(pretty)
		if err != nil {
			t.Fatalf("Parse(pretty %q) error = %v", pretty, err)
		}
		if !reflect.DeepEqual(original, fromPretty) {
			t.Fatalf("pretty round trip mismatch: %#v vs %#v", original, fromPretty)
		}
	}
}

func TestCompactIsSingleLineAndDeterministic(t *testing.T) {
	value, err := Parse([]byte("{\n  \"z\": \"line1\\nline2\",\n  \"a\": [1,\n 2]\n}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out, err := Compact(value)
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if bytes.ContainsAny(out, "\r\n") {
		t.Fatalf("compact output spans lines: %q", out)
	}
	if want := `{"a":[1,2],"z":"line1\nline2"}`; string(out) != want {
		t.Fatalf("Compact() = %s, want %s", out, want)
	}
}

func TestPrettyIndentsAndKeepsHTML(t *testing.T) {
	value, err := Parse([]byte(`{"b":"<i>","a":[1]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out, err := Pretty(value)
	if err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}
	want := "{\n  \"a\": [\n    1\n  ],\n  \"b\": \"<i>\"\n}"
	if string(out) != want {
		t.Fatalf("Pretty() = %q, want %q", out, want)
	}
}

func TestNormalize(t *testing.T) {
	out, err := Normalize([]byte(` { "uuid" : "u1", "name" : "Ann" } `))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if string(out) != `{"name":"Ann","uuid":"u1"}` {
		t.Fatalf("Normalize() = %s", out)
	}
	if _, err := Normalize(nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Normalize(nil) error = %v, want ErrMalformed", err)
	}
}
