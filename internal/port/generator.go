package port

import "context"

// Generation is the raw text produced by a language model.
type Generation struct {
	Text  string
	Model string // provider/model that produced the text
}

// Generator abstracts a text generation model. Implementations return
// *extraction.EmptyResponseError when the model produces no text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Generation, error)
}

// TextExtractor pulls plain text out of a document. Implementations return
// *extraction.EmptyDocumentError when the document holds no text.
type TextExtractor interface {
	Extract(ctx context.Context, document []byte) (string, error)
}
