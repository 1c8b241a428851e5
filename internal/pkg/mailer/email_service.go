package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"chatbot-billing-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

// PaymentFailedEmail is the content of a failed-payment notification.
type PaymentFailedEmail struct {
	To                    []string
	UserName              string
	UserEmail             string
	OrderID               string
	ProviderTransactionID string
	Amount                string
	Currency              string
	Reason                string
	TicketSubject         string
	ThreadLink            string
}

type IEmailService interface {
	SendPaymentFailedNotification(email PaymentFailedEmail) error
}

// Sender is the part of gomail.Dialer the service needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithSender(gomail.NewDialer(host, port, username, password), senderEmail, senderName, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

var paymentFailedTemplate = template.Must(template.New("payment_failed").Parse(`
	<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
		<h2>Payment failed</h2>
		<p>Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},</p>
		<p>We could not complete the payment for order <strong>{{.OrderID}}</strong>.</p>
		<table style="border-collapse: collapse;">
			<tr><td style="padding: 4px 12px 4px 0;">Amount</td><td>{{.Amount}} {{.Currency}}</td></tr>
			{{if .ProviderTransactionID}}<tr><td style="padding: 4px 12px 4px 0;">Transaction</td><td>{{.ProviderTransactionID}}</td></tr>{{end}}
			{{if .Reason}}<tr><td style="padding: 4px 12px 4px 0;">Reason</td><td>{{.Reason}}</td></tr>{{end}}
		</table>
		<p>A support ticket has been opened for you: <a href="{{.ThreadLink}}">{{.TicketSubject}}</a></p>
		<p>No credits were charged for this attempt.</p>
	</div>
`))

func (s *emailService) SendPaymentFailedNotification(email PaymentFailedEmail) error {
	if len(email.To) == 0 {
		return fmt.Errorf("payment failed notification for order %s has no recipients", email.OrderID)
	}

	var body bytes.Buffer
	if err := paymentFailedTemplate.Execute(&body, email); err != nil {
		return fmt.Errorf("render payment failed email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", fmt.Sprintf("Payment failed for order %s", email.OrderID))
	m.SetBody("text/html", body.String())

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send payment failed notification", map[string]interface{}{
			"order_id":   email.OrderID,
			"recipients": email.To,
			"error":      err.Error(),
		})
		return err
	}

	s.logger.Info("MAILER", "Payment failed notification sent", map[string]interface{}{
		"order_id":   email.OrderID,
		"recipients": len(email.To),
	})
	return nil
}
