package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// PaymentReminderEmailData holds data for the monthly payment reminder email.
type PaymentReminderEmailData struct {
	Email       string
	Name        string
	Month       string
	TotalAmount float64
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendPaymentReminder(ctx context.Context, data *PaymentReminderEmailData) error
}
