package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"agrofin/internal/classifier"
	"agrofin/internal/extraction"
	"agrofin/internal/pipeline"
	"agrofin/internal/port"
	"agrofin/mocks"
)

const documentText = "NOTA FISCAL 123\nÓLEO DIESEL S10 ADITIVADO 500 LITROS\nCNPJ 12.345.678/0001-90"

const modelResponse = "```json\n" + `{
  "numero_nota_fiscal": "123",
  "data_emissao": "2024-03-15",
  "descricao_produtos": "óleo diesel s10 aditivado 500 litros",
  "valor_total": "2500.00",
  "fornecedor": {"razao_social": "Posto Rural Ltda", "nome_fantasia": null, "cnpj": "12.345.678/0001-90"},
  "faturado": null,
  "parcelas": [{"numero_parcela": 1, "valor_parcela": "2500.00"}],
  "quantidade_parcelas": 1,
  "confianca_geral": 0.9,
  "observacoes_ia": ""
}` + "\n```"

// steppingClock advances by step on every call.
type steppingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

type panicGenerator struct{}

func (panicGenerator) Generate(context.Context, string) (*port.Generation, error) {
	panic("provider exploded")
}

func newProcessor(t *testing.T, text string, textErr error, gen *port.Generation, genErr error, opts ...pipeline.Option) *pipeline.Processor {
	t.Helper()
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(text, textErr)
	generator := new(mocks.MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return(gen, genErr)
	return pipeline.New(pipeline.DefaultConfig(), extractor, generator, zap.NewNop(), opts...)
}

func TestProcess_Success(t *testing.T) {
	p := newProcessor(t, documentText, nil, &port.Generation{Text: modelResponse, Model: "gemini/gemini-2.0-flash"}, nil)

	res := p.Process(context.Background(), []byte("%PDF-1.4"), "nf-123.pdf")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, pipeline.StageCompleted, res.Stage)
	assert.Empty(t, res.Error)
	assert.Empty(t, res.ErrorCode)
	assert.Equal(t, "nf-123.pdf", res.Filename)
	assert.Equal(t, "gemini/gemini-2.0-flash", res.Model)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.DocumentID.String())
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))

	require.NotNil(t, res.Data)
	assert.Equal(t, "Posto Rural Ltda", res.Data.Supplier.LegalName)
	assert.Equal(t, res.Data.IssueDate, res.Data.Installments[0].DueDate)
	require.NotEmpty(t, res.Data.Classifications)
	assert.Equal(t, classifier.CategoryMaintenance, res.Data.Classifications[0].Category)
}

func TestProcess_MalformedModelOutput(t *testing.T) {
	p := newProcessor(t, documentText, nil, &port.Generation{Text: "Here is the data: {invalid json"}, nil)

	res := p.Process(context.Background(), []byte("%PDF"), "nf.pdf")

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, extraction.CodeMalformedResponse, res.ErrorCode)
	assert.Equal(t, pipeline.StageModelResponded, res.Stage)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
	assert.GreaterOrEqual(t, res.ElapsedSeconds, 0.0)
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		textErr   error
		gen       *port.Generation
		genErr    error
		wantCode  string
		wantStage pipeline.Stage
		wantError string
	}{
		{
			name:      "extractor reports empty document",
			textErr:   &extraction.EmptyDocumentError{Filename: "nf.pdf"},
			wantCode:  extraction.CodeEmptyDocument,
			wantStage: pipeline.StageReceived,
		},
		{
			name:      "blank text",
			text:      "  \n\t ",
			wantCode:  extraction.CodeEmptyDocument,
			wantStage: pipeline.StageReceived,
		},
		{
			name:      "blank model output",
			text:      documentText,
			gen:       &port.Generation{Text: "   "},
			wantCode:  extraction.CodeEmptyResponse,
			wantStage: pipeline.StagePromptBuilt,
		},
		{
			name:      "generator reports empty response",
			text:      documentText,
			genErr:    &extraction.EmptyResponseError{Provider: "claude"},
			wantCode:  extraction.CodeEmptyResponse,
			wantStage: pipeline.StagePromptBuilt,
		},
		{
			name:      "transport error",
			text:      documentText,
			genErr:    errors.New("connection reset by peer"),
			wantCode:  extraction.CodeProcessing,
			wantStage: pipeline.StagePromptBuilt,
			wantError: "connection reset by peer",
		},
		{
			name:      "missing total",
			text:      documentText,
			gen:       &port.Generation{Text: strings.Replace(modelResponse, `"valor_total": "2500.00",`, "", 1)},
			wantCode:  extraction.CodeInvalidExtraction,
			wantStage: pipeline.StageParsed,
			wantError: "valor_total",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcessor(t, tt.text, tt.textErr, tt.gen, tt.genErr)

			res := p.Process(context.Background(), []byte("%PDF"), "nf.pdf")

			assert.False(t, res.Success)
			assert.Nil(t, res.Data)
			assert.Equal(t, tt.wantCode, res.ErrorCode)
			assert.Equal(t, tt.wantStage, res.Stage)
			assert.NotEmpty(t, res.Error)
			if tt.wantError != "" {
				assert.Contains(t, res.Error, tt.wantError)
			}
		})
	}
}

func TestProcess_StrictInstallmentCount(t *testing.T) {
	response := strings.Replace(modelResponse, `"quantidade_parcelas": 1`, `"quantidade_parcelas": 2`, 1)
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(documentText, nil)
	generator := new(mocks.MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return(&port.Generation{Text: response}, nil)

	lenient := pipeline.New(pipeline.DefaultConfig(), extractor, generator, nil)
	res := lenient.Process(context.Background(), nil, "nf.pdf")
	require.True(t, res.Success)
	assert.NotEmpty(t, res.Data.Warnings)

	strict := pipeline.New(pipeline.Config{StrictInstallmentCount: true}, extractor, generator, nil)
	res = strict.Process(context.Background(), nil, "nf.pdf")
	assert.False(t, res.Success)
	assert.Equal(t, extraction.CodeInvalidExtraction, res.ErrorCode)
}

func TestProcess_RecoversPanic(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(documentText, nil)
	p := pipeline.New(pipeline.DefaultConfig(), extractor, panicGenerator{}, zap.NewNop())

	var res pipeline.Result
	require.NotPanics(t, func() {
		res = p.Process(context.Background(), []byte("%PDF"), "nf.pdf")
	})

	assert.False(t, res.Success)
	assert.Equal(t, extraction.CodeProcessing, res.ErrorCode)
	assert.Equal(t, pipeline.StagePromptBuilt, res.Stage)
	assert.Contains(t, res.Error, "provider exploded")
}

func TestProcess_PassesPromptWithDocumentText(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, []byte("pdf-bytes")).Return(documentText, nil)
	generator := new(mocks.MockGenerator)
	generator.On("Generate", mock.Anything, extraction.BuildPrompt(documentText)).
		Return(&port.Generation{Text: modelResponse}, nil)

	res := pipeline.New(pipeline.DefaultConfig(), extractor, generator, nil).
		Process(context.Background(), []byte("pdf-bytes"), "nf.pdf")

	assert.True(t, res.Success)
	extractor.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func TestProcess_InjectedClock(t *testing.T) {
	clock := &steppingClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), step: time.Second}
	p := newProcessor(t, documentText, nil, &port.Generation{Text: modelResponse}, nil, pipeline.WithClock(clock.Now))

	res := p.Process(context.Background(), nil, "nf.pdf")

	require.True(t, res.Success)
	assert.Greater(t, res.Elapsed, time.Duration(0))
	assert.Equal(t, int64(0), res.Elapsed.Nanoseconds()%int64(time.Second))
	assert.InDelta(t, res.Elapsed.Seconds(), res.ElapsedSeconds, 1e-9)
}

func TestProcess_ClockGoingBackwards(t *testing.T) {
	clock := &steppingClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), step: -time.Second}
	p := newProcessor(t, documentText, nil, &port.Generation{Text: "{invalid"}, nil, pipeline.WithClock(clock.Now))

	res := p.Process(context.Background(), nil, "nf.pdf")

	assert.False(t, res.Success)
	assert.Equal(t, time.Duration(0), res.Elapsed)
}

func TestProcess_TransitionEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(documentText, nil)
	generator := new(mocks.MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return(&port.Generation{Text: modelResponse}, nil)
	p := pipeline.New(pipeline.DefaultConfig(), extractor, generator, zap.New(core))

	res := p.Process(context.Background(), nil, "nf.pdf")
	require.True(t, res.Success)

	var stages []string
	for _, entry := range logs.FilterMessage("pipeline.transition").All() {
		ctx := entry.ContextMap()
		assert.Equal(t, res.DocumentID.String(), ctx["document_id"])
		assert.Equal(t, "nf.pdf", ctx["filename"])
		assert.Contains(t, ctx, "elapsed")
		stages = append(stages, ctx["stage"].(string))
	}
	assert.Equal(t, []string{
		"received", "text_extracted", "prompt_built", "model_responded",
		"parsed", "validated", "classified", "completed",
	}, stages)
	assert.Zero(t, logs.FilterMessage("pipeline.payload").Len(), "payloads must not be logged above debug")
}

func TestProcess_FailureEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(documentText, nil)
	generator := new(mocks.MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return(&port.Generation{Text: "[]"}, nil)
	p := pipeline.New(pipeline.DefaultConfig(), extractor, generator, zap.New(core))

	p.Process(context.Background(), nil, "nf.pdf")

	failed := logs.FilterMessage("pipeline.transition").FilterField(zap.String("stage", "failed")).All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "model_responded", failed[0].ContextMap()["failed_after"])
	assert.Equal(t, extraction.CodeMalformedResponse, failed[0].ContextMap()["error_code"])
}

func TestProcess_PayloadLogging(t *testing.T) {
	longText := documentText + strings.Repeat(" lorem ipsum", 200)

	t.Run("capped at debug", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		p := newProcessorWithLogger(longText, zap.New(core), pipeline.Config{PayloadLogLimit: 64})

		p.Process(context.Background(), nil, "nf.pdf")

		payloads := logs.FilterMessage("pipeline.payload").All()
		require.Len(t, payloads, 3)
		for _, entry := range payloads {
			assert.Equal(t, zapcore.DebugLevel, entry.Level)
			content := entry.ContextMap()["content"].(string)
			assert.LessOrEqual(t, len(content), 64+len("…"))
		}
		assert.Equal(t, int64(len(longText)), payloads[0].ContextMap()["size"])
	})

	t.Run("disabled with zero limit", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		p := newProcessorWithLogger(longText, zap.New(core), pipeline.Config{PayloadLogLimit: 0})

		p.Process(context.Background(), nil, "nf.pdf")

		assert.Zero(t, logs.FilterMessage("pipeline.payload").Len())
	})
}

func newProcessorWithLogger(text string, log *zap.Logger, cfg pipeline.Config) *pipeline.Processor {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(text, nil)
	generator := new(mocks.MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return(&port.Generation{Text: modelResponse}, nil)
	return pipeline.New(cfg, extractor, generator, log)
}

func TestProcess_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)

	ok := newProcessor(t, documentText, nil, &port.Generation{Text: modelResponse}, nil, pipeline.WithMetrics(metrics))
	bad := newProcessor(t, documentText, nil, &port.Generation{Text: "{"}, nil, pipeline.WithMetrics(metrics))

	ok.Process(context.Background(), nil, "a.pdf")
	ok.Process(context.Background(), nil, "b.pdf")
	bad.Process(context.Background(), nil, "c.pdf")

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "agrofin_pipeline_documents_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					counts[label.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, counts["success"])
	assert.Equal(t, 1.0, counts["failed"])
}

func TestProcess_ConcurrentUse(t *testing.T) {
	p := newProcessor(t, documentText, nil, &port.Generation{Text: modelResponse}, nil)

	var wg sync.WaitGroup
	results := make([]pipeline.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Process(context.Background(), nil, "nf.pdf")
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, res := range results {
		assert.True(t, res.Success)
		assert.False(t, seen[res.DocumentID.String()])
		seen[res.DocumentID.String()] = true
	}
}
