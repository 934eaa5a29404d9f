package mailer

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplatesRender(t *testing.T) {
	data := struct {
		Username string
		ResetURL string
	}{
		Username: "Toni",
		ResetURL: "https://savory.test/account/reset/abc123",
	}

	for _, name := range []string{WelcomeTemplate, ResetPasswordTemplate} {
		t.Run(name, func(t *testing.T) {
			tmpl, err := template.ParseFS(FS, "templates/"+name)
			require.NoError(t, err)

			subject := new(bytes.Buffer)
			require.NoError(t, tmpl.ExecuteTemplate(subject, "subject", data))
			assert.NotEmpty(t, subject.String())

			body := new(bytes.Buffer)
			require.NoError(t, tmpl.ExecuteTemplate(body, "body", data))
			assert.Contains(t, body.String(), "Toni")
		})
	}
}

func TestResetTemplateCarriesLink(t *testing.T) {
	data := struct {
		Username string
		ResetURL string
	}{"Toni", "https://savory.test/account/reset/abc123"}

	tmpl, err := template.ParseFS(FS, "templates/"+ResetPasswordTemplate)
	require.NoError(t, err)

	body := new(bytes.Buffer)
	require.NoError(t, tmpl.ExecuteTemplate(body, "body", data))
	assert.Contains(t, body.String(), data.ResetURL)
}
