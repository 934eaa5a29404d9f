package mailer

import (
	"bytes"
	"errors"
	"html/template"

	mail "gopkg.in/mail.v2"
)

// SMTPClient delivers transactional mail over plain SMTP. Templates carry a
// "subject" and a "body" block; the body is sent as HTML.
type SMTPClient struct {
	dialer    *mail.Dialer
	fromEmail string
}

func NewSMTPClient(host string, port int, username, password, fromEmail string) (*SMTPClient, error) {
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if fromEmail == "" {
		return nil, errors.New("from email is required")
	}

	return &SMTPClient{
		dialer:    mail.NewDialer(host, port, username, password),
		fromEmail: fromEmail,
	}, nil
}

func (c *SMTPClient) Send(templateFile, username, email string, data any) error {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return err
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return err
	}

	body := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(body, "body", data); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", m.FormatAddress(c.fromEmail, FromName))
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject.String())
	m.SetBody("text/html", body.String())

	return c.dialer.DialAndSend(m)
}
