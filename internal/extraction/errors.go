package extraction

import (
	"errors"
	"fmt"
)

// Error codes reported in failed pipeline results.
const (
	CodeEmptyDocument     = "EMPTY_DOCUMENT"
	CodeEmptyResponse     = "EMPTY_RESPONSE"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeInvalidExtraction = "INVALID_EXTRACTION"
	CodeProcessing        = "PROCESSING_ERROR"
)

// EmptyDocumentError indicates that no text could be extracted from a document.
type EmptyDocumentError struct {
	Filename string
}

func (e *EmptyDocumentError) Error() string {
	if e.Filename == "" {
		return "no extractable text in document"
	}
	return fmt.Sprintf("no extractable text in document %q", e.Filename)
}

// EmptyResponseError indicates that the model returned no content.
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	if e.Provider == "" {
		return "empty response from model"
	}
	return fmt.Sprintf("empty response from model (%s)", e.Provider)
}

// MalformedResponseError indicates that the model output could not be decoded
// into a structured payload. Line and Column are 1-based and zero when unknown.
type MalformedResponseError struct {
	Line    int
	Column  int
	Offset  int64
	Snippet string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed model response at line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// InvalidExtractionError indicates that a decoded payload failed structural or
// domain validation. Field is the dotted path of the offending field.
type InvalidExtractionError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidExtractionError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid extraction: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid extraction: %s: %s (value: %v)", e.Field, e.Reason, e.Value)
}

// ErrorCode maps an error from any pipeline stage to its stable code.
func ErrorCode(err error) string {
	var (
		emptyDoc  *EmptyDocumentError
		emptyResp *EmptyResponseError
		malformed *MalformedResponseError
		badRecord *InvalidExtractionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &emptyDoc):
		return CodeEmptyDocument
	case errors.As(err, &emptyResp):
		return CodeEmptyResponse
	case errors.As(err, &malformed):
		return CodeMalformedResponse
	case errors.As(err, &badRecord):
		return CodeInvalidExtraction
	default:
		return CodeProcessing
	}
}

func missing(field string) *InvalidExtractionError {
	return &InvalidExtractionError{Field: field, Reason: "required field is missing"}
}

func invalid(field string, value any, reason string) *InvalidExtractionError {
	return &InvalidExtractionError{Field: field, Value: value, Reason: reason}
}
