package port

import (
	"context"

	"github.com/google/uuid"
)

// ReviewNotice describes an invoice that needs manual review.
type ReviewNotice struct {
	DocumentID uuid.UUID
	Filename   string
	Reason     string
	ErrorCode  string
	Error      string
	Categories []string
	ArchiveURL string
}

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	SendReviewNotice(ctx context.Context, to []string, notice ReviewNotice) error
}
