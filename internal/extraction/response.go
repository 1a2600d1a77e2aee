package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Payload is a decoded model response. Numbers are kept as json.Number so
// amounts are never routed through float64.
type Payload map[string]any

const (
	fence     = "```"
	jsonFence = "```json"

	snippetRadius = 20
)

var errBlankResponse = errors.New("response contains no JSON")

// ParseResponse extracts the JSON object from raw model output. Markdown code
// fences are stripped when present.
func ParseResponse(raw string) (Payload, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, &MalformedResponseError{Err: errBlankResponse}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformedAt(body, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		off := dec.InputOffset()
		return nil, newMalformed(body, off, fmt.Errorf("unexpected content after JSON value"))
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{
			Line:    1,
			Column:  1,
			Snippet: snippet(body, 0),
			Err:     fmt.Errorf("expected a JSON object, got %s", jsonKind(v)),
		}
	}
	return Payload(obj), nil
}

// stripFences trims raw and returns the contents of the first ```json fence,
// or of the first generic fence when no json fence is present.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, jsonFence); i >= 0 {
		inner := s[i+len(jsonFence):]
		if j := strings.Index(inner, fence); j >= 0 {
			inner = inner[:j]
		}
		return strings.TrimSpace(inner)
	}

	if strings.Contains(s, fence) {
		parts := strings.SplitN(s, fence, 3)
		return strings.TrimSpace(dropLanguageTag(parts[1]))
	}
	return s
}

// dropLanguageTag removes a leading info string such as "JSON" from a fenced
// block, leaving the body untouched when the first line already holds data.
func dropLanguageTag(block string) string {
	nl := strings.IndexByte(block, '\n')
	if nl < 0 {
		return block
	}
	tag := strings.TrimSpace(block[:nl])
	if tag == "" || strings.ContainsAny(tag, "{[\"") {
		return block
	}
	return block[nl+1:]
}

func malformedAt(body string, err error) *MalformedResponseError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return newMalformed(body, syntaxErr.Offset, err)
	case errors.As(err, &typeErr):
		return newMalformed(body, typeErr.Offset, err)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return newMalformed(body, int64(len(body)), fmt.Errorf("truncated JSON: %w", err))
	default:
		return &MalformedResponseError{Err: err}
	}
}

// newMalformed builds an error positioned at the byte preceding offset, which
// is where encoding/json reports the offending character.
func newMalformed(body string, offset int64, err error) *MalformedResponseError {
	idx := int(offset) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(body) {
		idx = len(body)
	}
	line, col := position(body, idx)
	return &MalformedResponseError{
		Line:    line,
		Column:  col,
		Offset:  offset,
		Snippet: snippet(body, idx),
		Err:     err,
	}
}

// position returns the 1-based line and column of byte index idx.
func position(body string, idx int) (int, int) {
	head := body[:idx]
	line := strings.Count(head, "\n") + 1
	col := idx - strings.LastIndexByte(head, '\n')
	return line, col
}

func snippet(body string, idx int) string {
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + snippetRadius
	if end > len(body) {
		end = len(body)
	}
	return strings.ToValidUTF8(body[start:end], "")
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
