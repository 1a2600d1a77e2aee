package noop

import (
	"context"

	"go.uber.org/zap"

	"agrofin/internal/port"
)

type noopSender struct {
	log *zap.Logger
}

// NewNoopSender creates an EmailSender that only logs review notices.
func NewNoopSender(log *zap.Logger) port.EmailSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &noopSender{log: log}
}

func (s *noopSender) SendReviewNotice(_ context.Context, to []string, notice port.ReviewNotice) error {
	s.log.Info("email.noop: review notice",
		zap.Strings("to", to),
		zap.String("document_id", notice.DocumentID.String()),
		zap.String("filename", notice.Filename),
		zap.String("reason", notice.Reason),
		zap.String("error_code", notice.ErrorCode),
	)
	return nil
}
