package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	textTemplate "text/template"
)

type Message struct {
	Subject string
	HTML    string
}

type messageTemplate struct {
	subject *textTemplate.Template
	body    *template.Template
}

var templates = map[Kind]messageTemplate{
	KindDueSoon: {
		subject: textTemplate.Must(textTemplate.New("subject").Parse(`Reminder: "{{.Title}}" is due soon`)),
		body: template.Must(template.New("body").Parse(`
<p>Hello, {{.Name}}!</p>
<p>"<b>{{.Title}}</b>" is due back on <b>{{.DueDate}}</b>.</p>
<p>You have <b>{{.DaysLeft}} day(s)</b> left to return it.</p>
<p>Remember you can renew the loan once if you need more time.</p>
<p>Library Circulation Desk</p>
`)),
	},
	KindOverdue: {
		subject: textTemplate.Must(textTemplate.New("subject").Parse(`Overdue loan: "{{.Title}}"`)),
		body: template.Must(template.New("body").Parse(`
<p>Hello, {{.Name}}!</p>
<p>"<b>{{.Title}}</b>" is <b>{{.DaysLate}} day(s) late</b>.</p>
<p>Due date: <b>{{.DueDate}}</b></p>
<p>Accrued fine: <b>R$ {{.Fine}}</b></p>
<p>Please return the item as soon as possible to stop the fine from growing.</p>
<p>Library Circulation Desk</p>
`)),
	},
	KindReservationAvailable: {
		subject: textTemplate.Must(textTemplate.New("subject").Parse(`Your reservation is ready for pickup`)),
		body: template.Must(template.New("body").Parse(`
<p>Hello, {{.Name}}!</p>
<p>"<b>{{.Title}}</b>" that you reserved is available for pickup.</p>
<p>Please collect it before <b>{{.ExpiresAt}}</b> or the reservation will expire.</p>
<p>Library Circulation Desk</p>
`)),
	},
}

// Render builds the subject and HTML body for kind. The recipient's name is
// exposed to templates as .Name unless data sets it.
func Render(kind Kind, to Recipient, data map[string]any) (*Message, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown mail kind %q", kind)
	}

	vars := make(map[string]any, len(data)+1)
	vars["Name"] = to.Name
	for k, v := range data {
		vars[k] = v
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, vars); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tmpl.body.Execute(&body, vars); err != nil {
		return nil, fmt.Errorf("render %s body: %w", kind, err)
	}

	return &Message{Subject: subject.String(), HTML: body.String()}, nil
}
