package notify

import (
	"gopkg.in/gomail.v2"

	"github.com/onesoftuk/bugflow/internal/models"
)

// SMTPSender delivers through the server configured in the settings row.
type SMTPSender struct{}

func (SMTPSender) Send(s *models.AppSettings, to []string, subject, htmlBody, textBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.SMTPFrom)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.SMTPHost, s.SMTPPort, s.SMTPUsername, s.SMTPPassword)
	return d.DialAndSend(m)
}
