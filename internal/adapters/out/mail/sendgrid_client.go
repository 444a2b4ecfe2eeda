// internal/adapters/out/mail/sendgrid_client.go
package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// EmailClient is the minimal sending surface the mailers need.
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// SendGridClient implements EmailClient on the SendGrid v3 API.
type SendGridClient struct {
	apiKey string
	log    *logrus.Logger
}

func NewSendGridClient(apiKey string, log *logrus.Logger) *SendGridClient {
	return &SendGridClient{apiKey: apiKey, log: log}
}

func (c *SendGridClient) Send(ctx context.Context, from, to, subject, body string) error {
	if c == nil || c.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if from == "" {
		return fmt.Errorf("from address is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	fromEmail := sgmail.NewEmail("Atelier", from)
	toEmail := sgmail.NewEmail("", to)

	plainTextContent := body
	htmlContent := fmt.Sprintf("<pre>%s</pre>", body)

	message := sgmail.NewSingleEmail(
		fromEmail,
		subject,
		toEmail,
		plainTextContent,
		htmlContent,
	)

	client := sendgrid.NewSendClient(c.apiKey)

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}

	if response.StatusCode >= 400 {
		if c.log != nil {
			c.log.WithFields(logrus.Fields{
				"status": response.StatusCode,
				"body":   response.Body,
			}).Error("sendgrid: send failed")
		}
		return fmt.Errorf(
			"sendgrid send failed: status=%d, body=%s",
			response.StatusCode,
			response.Body,
		)
	}

	if c.log != nil {
		c.log.WithFields(logrus.Fields{
			"status":  response.StatusCode,
			"to":      to,
			"subject": subject,
		}).Info("sendgrid: mail sent")
	}

	return nil
}
