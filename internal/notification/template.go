package notification

import (
	"bytes"
	"fmt"
	"text/template"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New("subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New("body").Option("missingkey=zero").Parse(body)),
	}
}

var templates = map[Kind]messageTemplate{
	KindStaffInvitation: mustTemplate(
		`You're invited to join {{.venue_name}}`,
		`{{.inviter_name}} invited you to join {{.venue_name}} as {{.role}}.

Accept the invitation: {{.accept_url}}

This link expires on {{.expires_at}}.
`),
	KindPasswordReset: mustTemplate(
		`Reset your password`,
		`We received a request to reset your password.

Choose a new password: {{.reset_url}}

The link expires in {{.expires_in}}. If you did not ask for this, ignore this email.
`),
	KindPaymentAccountStatus: mustTemplate(
		`Payment account for {{.venue_name}} is {{.status}}`,
		`The payment account for {{.venue_name}} changed status to {{.status}}.
`),
}

// Render produces the subject line and plain text body for msg.
func Render(msg Message) (subject, body string, err error) {
	tpl, ok := templates[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	var sb, bb bytes.Buffer
	if err := tpl.subject.Execute(&sb, msg.Payload); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.Execute(&bb, msg.Payload); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return sb.String(), bb.String(), nil
}
