package services

import (
	"context"
	"fmt"
	"log"

	"clubledger/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendPaymentReminder sends the monthly reminder using the "payment_reminder" template.
func (s *emailService) SendPaymentReminder(ctx context.Context, data *domain.PaymentReminderEmailData) error {
	if data == nil {
		return fmt.Errorf("payment reminder data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("payment_reminder", data)
	if err != nil {
		return fmt.Errorf("failed to render payment_reminder template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send payment reminder: %w", err)
	}
	log.Printf("[EMAIL] Payment reminder sent to %s for %s", data.Email, data.Month)
	return nil
}
