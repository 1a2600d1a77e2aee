// Package pipeline runs a document through text extraction, generation,
// parsing, validation and classification.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrofin/internal/classifier"
	"agrofin/internal/extraction"
	"agrofin/internal/port"
)

// Stage is a pipeline state.
type Stage string

const (
	StageReceived       Stage = "received"
	StageTextExtracted  Stage = "text_extracted"
	StagePromptBuilt    Stage = "prompt_built"
	StageModelResponded Stage = "model_responded"
	StageParsed         Stage = "parsed"
	StageValidated      Stage = "validated"
	StageClassified     Stage = "classified"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
)

// DefaultPayloadLogLimit caps logged document text, prompts and responses.
const DefaultPayloadLogLimit = 512

// Config tunes a Processor.
type Config struct {
	// PayloadLogLimit is the maximum number of bytes of any payload written
	// to debug logs. Zero disables payload logging.
	PayloadLogLimit        int
	StrictInstallmentCount bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{PayloadLogLimit: DefaultPayloadLogLimit}
}

// Result is the outcome of processing one document.
type Result struct {
	DocumentID uuid.UUID          `json:"document_id"`
	Filename   string             `json:"filename"`
	Success    bool               `json:"success"`
	Data       *extraction.Record `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorCode  string             `json:"error_code,omitempty"`
	// Stage is the last state reached. On failure the error occurred while
	// leaving this state.
	Stage   Stage         `json:"stage"`
	Model   string        `json:"model,omitempty"`
	Elapsed time.Duration `json:"-"`
	// ElapsedSeconds mirrors Elapsed for JSON consumers.
	ElapsedSeconds float64 `json:"elapsed"`
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the wall clock used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithMetrics records outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithClassifier replaces the default classifier.
func WithClassifier(c classifier.Classifier) Option {
	return func(p *Processor) { p.classifier = c }
}

// Processor runs the extraction pipeline. It holds no per-document state
// and is safe for concurrent use when its collaborators are.
type Processor struct {
	cfg        Config
	extractor  port.TextExtractor
	generator  port.Generator
	validator  extraction.Validator
	classifier classifier.Classifier
	metrics    *Metrics
	log        *zap.Logger
	now        func() time.Time
}

// New creates a Processor.
func New(cfg Config, extractor port.TextExtractor, generator port.Generator, log *zap.Logger, opts ...Option) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Processor{
		cfg:        cfg,
		extractor:  extractor,
		generator:  generator,
		validator:  extraction.Validator{StrictInstallmentCount: cfg.StrictInstallmentCount},
		classifier: classifier.New(classifier.WithLogger(log)),
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process extracts and classifies a single document. It never panics and
// never returns an error; failures are reported in the Result.
func (p *Processor) Process(ctx context.Context, document []byte, filename string) (res Result) {
	r := &run{
		p:     p,
		start: p.now(),
		res:   Result{DocumentID: uuid.New(), Filename: filename},
	}
	r.log = p.log.With(zap.String("document_id", r.res.DocumentID.String()), zap.String("filename", filename))

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("pipeline.Process: recovered panic",
				zap.String("stage", string(r.res.Stage)),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			res = r.fail(fmt.Errorf("panic after %s: %v", r.res.Stage, rec))
		}
	}()

	return r.execute(ctx, document)
}

// run carries the state of a single Process call.
type run struct {
	p     *Processor
	start time.Time
	res   Result
	log   *zap.Logger
}

func (r *run) execute(ctx context.Context, document []byte) Result {
	p := r.p
	r.transition(StageReceived, zap.Int("document_bytes", len(document)))

	text, err := p.extractor.Extract(ctx, document)
	if err != nil {
		return r.fail(fmt.Errorf("extract text: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return r.fail(&extraction.EmptyDocumentError{Filename: r.res.Filename})
	}
	r.transition(StageTextExtracted, zap.Int("text_length", len(text)))
	r.payload("text", text)

	prompt := extraction.BuildPrompt(text)
	r.transition(StagePromptBuilt, zap.Int("prompt_length", len(prompt)))
	r.payload("prompt", prompt)

	gen, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return r.fail(fmt.Errorf("generate: %w", err))
	}
	if gen == nil || strings.TrimSpace(gen.Text) == "" {
		return r.fail(&extraction.EmptyResponseError{})
	}
	r.res.Model = gen.Model
	r.transition(StageModelResponded, zap.String("model", gen.Model), zap.Int("response_length", len(gen.Text)))
	r.payload("response", gen.Text)

	payload, err := extraction.ParseResponse(gen.Text)
	if err != nil {
		return r.fail(err)
	}
	r.transition(StageParsed, zap.Int("fields", len(payload)))

	rec, err := p.validator.Validate(payload)
	if err != nil {
		return r.fail(err)
	}
	r.transition(StageValidated,
		zap.Int("installments", len(rec.Installments)),
		zap.Strings("warnings", rec.Warnings),
	)

	rec = p.classifier.Classify(rec, text)
	r.transition(StageClassified,
		zap.Strings("categories", categories(rec)),
		zap.Bool("needs_review", rec.NeedsReview()),
	)

	r.res.Success = true
	r.res.Data = rec
	r.transition(StageCompleted)
	return r.finish()
}

func (r *run) elapsed() time.Duration {
	d := r.p.now().Sub(r.start)
	if d < 0 {
		return 0
	}
	return d
}

func (r *run) transition(stage Stage, fields ...zap.Field) {
	r.res.Stage = stage
	base := []zap.Field{
		zap.String("stage", string(stage)),
		zap.Duration("elapsed", r.elapsed()),
	}
	r.log.Info("pipeline.transition", append(base, fields...)...)
}

// payload logs a size-capped copy of content at debug level.
func (r *run) payload(name, content string) {
	limit := r.p.cfg.PayloadLogLimit
	if limit <= 0 || !r.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	r.log.Debug("pipeline.payload",
		zap.String("stage", string(r.res.Stage)),
		zap.String("payload", name),
		zap.Int("size", len(content)),
		zap.String("content", truncate(content, limit)),
	)
}

func (r *run) fail(err error) Result {
	r.res.Success = false
	r.res.Data = nil
	r.res.Error = err.Error()
	r.res.ErrorCode = extraction.ErrorCode(err)
	r.log.Warn("pipeline.transition",
		zap.String("stage", string(StageFailed)),
		zap.String("failed_after", string(r.res.Stage)),
		zap.String("error_code", r.res.ErrorCode),
		zap.Error(err),
		zap.Duration("elapsed", r.elapsed()),
	)
	return r.finish()
}

func (r *run) finish() Result {
	r.res.Elapsed = r.elapsed()
	r.res.ElapsedSeconds = r.res.Elapsed.Seconds()
	r.p.metrics.observe(r.res, r.res.Elapsed)
	return r.res
}

// truncate cuts s to at most limit bytes on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "…"
}

func categories(rec *extraction.Record) []string {
	out := make([]string, 0, len(rec.Classifications))
	for _, c := range rec.Classifications {
		out = append(out, c.Category)
	}
	return out
}
