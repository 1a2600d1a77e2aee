package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agrofin/internal/extraction"
	"agrofin/internal/pipeline"
)

// BatchService runs independent pipelines over many local files.
type BatchService interface {
	// ProcessFiles returns one result per path, in input order. A file that
	// cannot be read yields a failed result; it never stops the batch.
	ProcessFiles(ctx context.Context, paths []string) ([]pipeline.Result, error)
}

// BatchOption configures a BatchService.
type BatchOption func(*batchService)

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(string) ([]byte, error)) BatchOption {
	return func(s *batchService) { s.readFile = fn }
}

type batchService struct {
	processor   DocumentProcessor
	concurrency int
	readFile    func(string) ([]byte, error)
	log         *zap.Logger
}

// NewBatchService creates a BatchService running at most concurrency
// documents at a time.
func NewBatchService(processor DocumentProcessor, concurrency int, log *zap.Logger, opts ...BatchOption) BatchService {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &batchService{
		processor:   processor,
		concurrency: concurrency,
		readFile:    os.ReadFile,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *batchService) ProcessFiles(ctx context.Context, paths []string) ([]pipeline.Result, error) {
	results := make([]pipeline.Result, len(paths))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.processFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}

	succeeded := 0
	for i := range results {
		if results[i].Success {
			succeeded++
		}
	}
	s.log.Info("batchService.ProcessFiles: batch complete",
		zap.Int("files", len(paths)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(paths)-succeeded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

func (s *batchService) processFile(ctx context.Context, path string) pipeline.Result {
	filename := filepath.Base(path)
	document, err := s.readFile(path)
	if err != nil {
		s.log.Warn("batchService.processFile: read failed", zap.String("path", path), zap.Error(err))
		return pipeline.Result{
			DocumentID: uuid.New(),
			Filename:   filename,
			Error:      err.Error(),
			ErrorCode:  extraction.ErrorCode(err),
			Stage:      pipeline.StageReceived,
		}
	}
	return s.processor.Process(ctx, document, filename)
}
