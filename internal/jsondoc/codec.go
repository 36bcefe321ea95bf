// Package jsondoc parses and re-serializes schemaless JSON documents.
//
// Values are the generic trees produced by encoding/json with UseNumber:
// map[string]any, []any, string, json.Number, bool and nil. Numbers keep
// their literal text so a document survives a parse/serialize cycle without
// float rounding.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed reports input that is empty or not a single valid JSON value.
var ErrMalformed = errors.New("malformed document")

// Parse decodes exactly one JSON value from raw.
func Parse(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var trailing any
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after value", ErrMalformed)
	}
	return value, nil
}

// Compact serializes value on a single line. Object keys are sorted, so equal
// values always produce identical bytes.
func Compact(value any) ([]byte, error) {
	return encode(value, "")
}

// Pretty serializes value with two-space indentation.
func Pretty(value any) ([]byte, error) {
	return encode(value, "  ")
}

func encode(value any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Normalize parses raw and returns its compact form.
func Normalize(raw []byte) ([]byte, error) {
	value, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return Compact(value)
}
