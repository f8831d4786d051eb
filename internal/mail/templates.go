package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sitecontact/backend/internal/model"
)

const (
	AdminSubject        = "New Contact Form Submission"
	ConfirmationSubject = "Thank you for contacting us"

	timestampLayout = "Jan 2, 2006, 3:04:05 PM MST"
)

var funcs = template.FuncMap{
	// nl2br escapes s and turns line breaks into <br>.
	"nl2br": func(s string) template.HTML {
		return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
	},
}

var adminTmpl = template.Must(template.New("admin").Funcs(funcs).Parse(`
<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p>{{nl2br .Message}}</p>
<p><strong>Submitted:</strong> {{.Submitted}}</p>
`))

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`
<h2>Thank you for reaching out!</h2>
<p>We have received your message and will get back to you as soon as possible.</p>
<p>Here's a copy of your message:</p>
<blockquote>{{nl2br .Message}}</blockquote>
<p>Best regards,<br>{{.SiteName}}</p>
`))

// Composer builds the two notification emails for a submission.
type Composer struct {
	From         string
	AdminAddress string
	SiteName     string
	// Location is used to render the submission time. Nil means UTC.
	Location *time.Location
}

// AdminNotification renders the message sent to the site operator.
func (c Composer) AdminNotification(sub *model.Submission, at time.Time) (Message, error) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	html, err := render(adminTmpl, struct {
		Name, Email, Message, Submitted string
	}{sub.Name, sub.Email, sub.Message, at.In(loc).Format(timestampLayout)})
	if err != nil {
		return Message{}, err
	}
	return Message{From: c.From, To: c.AdminAddress, Subject: AdminSubject, HTML: html}, nil
}

// Confirmation renders the acknowledgement sent to the submitter.
func (c Composer) Confirmation(sub *model.Submission) (Message, error) {
	html, err := render(confirmationTmpl, struct {
		Message, SiteName string
	}{sub.Message, c.SiteName})
	if err != nil {
		return Message{}, err
	}
	return Message{From: c.From, To: sub.Email, Subject: ConfirmationSubject, HTML: html}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
