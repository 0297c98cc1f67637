package mailer

import (
	"errors"
	"fmt"

	mailtpl "github.com/oksasatya/appserv/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either the literal Subject/Text/HTML or a Template with Data is used.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // verify_code, signup_success
	Data     map[string]any `json:"data,omitempty"`
}

var (
	ErrNoRecipient = errors.New("email job has no recipient")
	// ErrRender marks jobs whose template cannot be rendered.
	ErrRender = errors.New("render email")
)

// Content returns the final subject and bodies, rendering Template when set.
func (j EmailJob) Content() (subject, text, html string, err error) {
	if j.To == "" {
		return "", "", "", ErrNoRecipient
	}
	if j.Template == "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	subject, text, html, err = mailtpl.Render(j.Template, j.Data)
	if err != nil {
		return "", "", "", fmt.Errorf("%w %s: %v", ErrRender, j.Template, err)
	}
	return subject, text, html, nil
}
