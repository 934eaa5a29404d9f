package mailer

import "embed"

const (
	FromName              = "Savory"
	WelcomeTemplate       = "welcome.tmpl"
	ResetPasswordTemplate = "reset_password.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) error
}
