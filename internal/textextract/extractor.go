// Package textextract turns uploaded documents into plain text.
package textextract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"agrofin/internal/config"
	"agrofin/internal/extraction"
	"agrofin/internal/port"
)

const defaultPdftotext = "pdftotext"

// pdfMagic prefixes every PDF file.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether document starts with the PDF signature.
func IsPDF(document []byte) bool {
	return bytes.HasPrefix(document, pdfMagic)
}

// PdftotextExtractor extracts text with poppler's pdftotext, reading the
// document from stdin.
type PdftotextExtractor struct {
	path    string
	timeout time.Duration
	runner  Runner
}

// NewPdftotextExtractor creates an extractor. A nil runner uses ExecRunner.
func NewPdftotextExtractor(cfg *config.ExtractorConfig, runner Runner) *PdftotextExtractor {
	path := cfg.PdftotextPath
	if path == "" {
		path = defaultPdftotext
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PdftotextExtractor{
		path:    path,
		timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		runner:  runner,
	}
}

func (e *PdftotextExtractor) Extract(ctx context.Context, document []byte) (string, error) {
	if len(document) == 0 {
		return "", &extraction.EmptyDocumentError{}
	}
	if !IsPDF(document) {
		return "", fmt.Errorf("document is not a PDF")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// pdftotext -layout -enc UTF-8 -eol unix - -
	out, errb, err := e.runner.Run(ctx, document, e.path, "-layout", "-enc", "UTF-8", "-eol", "unix", "-", "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("pdftotext: %w: %s", err, msg)
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}

	// Pages are separated by form feeds.
	text := strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "\n"))
	if text == "" {
		return "", &extraction.EmptyDocumentError{}
	}
	return text, nil
}

// PlainTextExtractor accepts documents that are already UTF-8 text.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, document []byte) (string, error) {
	if !utf8.Valid(document) {
		return "", fmt.Errorf("document is not valid UTF-8 text")
	}
	text := strings.TrimSpace(string(document))
	if text == "" {
		return "", &extraction.EmptyDocumentError{}
	}
	return text, nil
}

// Auto dispatches PDFs to PDF and everything else to Text.
type Auto struct {
	PDF  port.TextExtractor
	Text PlainTextExtractor
}

func (a Auto) Extract(ctx context.Context, document []byte) (string, error) {
	if IsPDF(document) {
		return a.PDF.Extract(ctx, document)
	}
	return a.Text.Extract(ctx, document)
}
