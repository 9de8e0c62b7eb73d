package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// defaultReportTemplate renders a PublishReport as a plain-text mail body.
// Callers may override it via SMTPNotifier.Template; this is the fallback
// used when no template is set. No template is loaded from
// config.Templating's directory.
const defaultReportTemplate = `Disposition: {{.Disposition}}

Stored:
{{range .Stored}}  {{.}}
{{end}}
Archived:
{{range .Archived}}  {{.}}
{{end}}
Harvested:
{{range .Harvested}}  {{.}}
{{end}}
Failed:
{{range .Failed}}  {{.}}
{{end}}`

// SMTPNotifier emails a rendered PublishReport to its recipients. STDLIB
// JUSTIFICATION: no third-party mail-sending library appears anywhere in
// the example pack; stdlib net/smtp plus text/template is the idiomatic
// choice in its absence.
type SMTPNotifier struct {
	Host     string
	Port     string
	From     string
	Auth     smtp.Auth
	Template *template.Template
}

func (n *SMTPNotifier) template() (*template.Template, error) {
	if n.Template != nil {
		return n.Template, nil
	}
	return template.New("publish-report").Parse(defaultReportTemplate)
}

func (n *SMTPNotifier) Send(ctx context.Context, report *model.PublishReport, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}

	tmpl, err := n.template()
	if err != nil {
		return pipelineerr.WrapHandlerHookError(err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, report); err != nil {
		return pipelineerr.WrapHandlerHookError(err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: pipeline publish: %s\r\n\r\n%s",
		n.From, joinAddresses(recipients), report.Disposition, body.String())

	addr := fmt.Sprintf("%s:%s", n.Host, n.Port)
	if err := smtp.SendMail(addr, n.Auth, n.From, recipients, []byte(msg)); err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

func joinAddresses(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

var _ Notifier = (*SMTPNotifier)(nil)
