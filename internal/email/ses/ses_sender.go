package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"agrofin/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(ctx context.Context, region, fromAddress, fromName string) (port.EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesSender{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: fromAddress,
		fromName:    fromName,
	}, nil
}

func (s *sesSender) SendReviewNotice(ctx context.Context, to []string, notice port.ReviewNotice) error {
	if len(to) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[Agrofin] Nota fiscal para revisão: %s", notice.Filename)
	textBody := BuildReviewText(notice)
	htmlBody := buildReviewHTML(notice)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

// BuildReviewText renders the plain-text body of a review notice.
func BuildReviewText(n port.ReviewNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Documento: %s\nID: %s\nMotivo: %s\n", n.Filename, n.DocumentID, n.Reason)
	if n.ErrorCode != "" {
		fmt.Fprintf(&b, "Erro: %s (%s)\n", n.Error, n.ErrorCode)
	}
	if len(n.Categories) > 0 {
		fmt.Fprintf(&b, "Classificação: %s\n", strings.Join(n.Categories, ", "))
	}
	if n.ArchiveURL != "" {
		fmt.Fprintf(&b, "Arquivo: %s\n", n.ArchiveURL)
	}
	return b.String()
}

func buildReviewHTML(n port.ReviewNotice) string {
	var rows strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&rows, `<tr><td style="color:#666;padding:4px 12px 4px 0;">%s</td><td>%s</td></tr>`,
			label, html.EscapeString(value))
	}
	row("Documento", n.Filename)
	row("ID", n.DocumentID.String())
	row("Motivo", n.Reason)
	if n.ErrorCode != "" {
		row("Erro", n.Error+" ("+n.ErrorCode+")")
	}
	row("Classificação", strings.Join(n.Categories, ", "))
	row("Arquivo", n.ArchiveURL)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Nota fiscal aguardando revisão</h2>
  <table>%s</table>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Agrofin - Contas a pagar</p>
</body>
</html>`, rows.String())
}
