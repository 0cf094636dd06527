package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"warranty-backend/config"
	"warranty-backend/internal/model"
	"warranty-backend/internal/warranty"
)

// EmailSender delivers a single HTML email.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender is the real EmailSender backed by net/smtp.
type SMTPSender struct {
	cfg config.MailConfig
}

// NewSMTPSender creates an email sender from mail config.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	msg := fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		to, s.cfg.From, subject, htmlBody,
	)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

var emailBodies = template.Must(template.New("emails").Parse(`
{{define "activated"}}
<p>Dear {{.CustomerName}},</p>
<p>Your warranty for order <strong>#{{.OrderID}}</strong>{{if .ProductName}} ({{.ProductName}}){{end}} has been activated.</p>
<p>Coverage: {{.WarrantyMonths}} months{{if .ExpiryDate}}, valid until <strong>{{.ExpiryDate.Format "January 2, 2006"}}</strong>{{end}}.</p>
<p>You can check your warranty status at any time: <a href="{{.CheckURL}}">{{.CheckURL}}</a></p>
<p>{{.SiteName}}</p>
{{end}}

{{define "expiring"}}
<p>Dear {{.CustomerName}},</p>
<p>Your warranty for order <strong>#{{.OrderID}}</strong>{{if .ProductName}} ({{.ProductName}}){{end}} is expiring soon{{if .ExpiryDate}} on <strong>{{.ExpiryDate.Format "January 2, 2006"}}</strong>{{end}}.</p>
<p>Remaining coverage: {{.Remaining}}.</p>
<p>Check your warranty: <a href="{{.CheckURL}}">{{.CheckURL}}</a></p>
<p>{{.SiteName}}</p>
{{end}}

{{define "expired"}}
<p>Dear {{.CustomerName}},</p>
<p>Your warranty for order <strong>#{{.OrderID}}</strong>{{if .ProductName}} ({{.ProductName}}){{end}} has expired.</p>
<p>Thank you for choosing our products.</p>
<p>{{.SiteName}}</p>
{{end}}
`))

type emailData struct {
	CustomerName   string
	OrderID        string
	ProductName    string
	WarrantyMonths int
	ExpiryDate     *time.Time
	Remaining      string
	CheckURL       string
	SiteName       string
}

// BuildEmail renders the subject and HTML body for one event.
func BuildEmail(rec model.WarrantyRecord, event warranty.Event, mail config.MailConfig, now time.Time) (subject, body string, err error) {
	data := emailData{
		CustomerName:   rec.CustomerName,
		OrderID:        rec.OrderID,
		ProductName:    rec.ProductName,
		WarrantyMonths: rec.WarrantyMonths,
		ExpiryDate:     rec.ExpiryDate,
		CheckURL:       mail.CheckURL,
		SiteName:       mail.SiteName,
	}
	if rec.ExpiryDate != nil {
		data.Remaining = warranty.FormatRemaining(now, *rec.ExpiryDate)
	} else {
		data.Remaining = "N/A"
	}

	switch event {
	case warranty.EventActivated:
		subject = fmt.Sprintf("[%s] Warranty Activated - Order #%s", mail.SiteName, rec.OrderID)
	case warranty.EventExpiring:
		subject = fmt.Sprintf("[%s] Warranty Expiring Soon - Order #%s", mail.SiteName, rec.OrderID)
	case warranty.EventExpired:
		subject = fmt.Sprintf("[%s] Warranty Expired - Order #%s", mail.SiteName, rec.OrderID)
	default:
		return "", "", fmt.Errorf("unknown notification event %q", event)
	}

	var buf bytes.Buffer
	if err := emailBodies.ExecuteTemplate(&buf, string(event), data); err != nil {
		return "", "", fmt.Errorf("failed to render %s email: %w", event, err)
	}
	return subject, buf.String(), nil
}
