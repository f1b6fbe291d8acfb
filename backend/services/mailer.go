package services

import (
	"bytes"
	"context"
	"html/template"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/smtp"
	"strings"
	"time"

	"cognitory/backend/config"
	"cognitory/backend/oops"
)

// Mailer sends transactional email. Implementations must not retry; the
// caller decides what a failure means.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	contents := prepMailContents(
		makeHeaderAddress(msg.To, msg.ToName),
		m.cfg.From,
		msg.Subject,
		msg.HTML,
	)

	err := smtp.SendMail(
		fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port),
		auth,
		m.cfg.From,
		[]string{msg.To},
		contents,
	)
	if err != nil {
		return oops.New(err, "Failed to send email")
	}
	return nil
}

var (
	pendingApprovalTemplate = template.Must(template.New("pending_approval").Parse(
		`<p>Hi {{ .Name }},</p><p>Thanks for signing up. An administrator will review ` +
			`your account shortly; you will be able to log in once it is approved.</p>`))
	accountApprovedTemplate = template.Must(template.New("account_approved").Parse(
		`<p>Hi {{ .Name }},</p><p>Your account is now active. ` +
			`<a href="{{ .LoginURL }}">Log in</a> to get started.</p>`))
	passwordResetTemplate = template.Must(template.New("password_reset").Parse(
		`<p>Hi {{ .Name }},</p><p><a href="{{ .ResetURL }}">Reset your password</a>. ` +
			`The link expires in {{ .Minutes }} minutes.</p>`))
)

type AccountEmailData struct {
	Name     string
	LoginURL string
}

type PasswordResetEmailData struct {
	Name     string
	ResetURL string
	Minutes  int
}

func PendingApprovalEmail(to, name string) (Message, error) {
	contents, err := renderTemplate(pendingApprovalTemplate, AccountEmailData{Name: name})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		ToName:  name,
		Subject: "[Cognitory] Your account is pending approval",
		HTML:    contents,
	}, nil
}

func AccountApprovedEmail(to, name, frontendLink string) (Message, error) {
	contents, err := renderTemplate(accountApprovedTemplate, AccountEmailData{
		Name:     name,
		LoginURL: strings.TrimRight(frontendLink, "/") + "/login",
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		ToName:  name,
		Subject: "[Cognitory] Your account has been approved",
		HTML:    contents,
	}, nil
}

func PasswordResetEmail(to, name, link string, ttl time.Duration) (Message, error) {
	contents, err := renderTemplate(passwordResetTemplate, PasswordResetEmailData{
		Name:     name,
		ResetURL: link,
		Minutes:  int(ttl.Minutes()),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		ToName:  name,
		Subject: "[Cognitory] Your password reset request",
		HTML:    contents,
	}, nil
}

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, data); err != nil {
		return "", oops.New(err, "Failed to render template for email")
	}
	return buffer.String(), nil
}

func makeHeaderAddress(email, fullname string) string {
	if fullname == "" {
		return email
	}
	encoded := mime.BEncoding.Encode("utf-8", fullname)
	if encoded == fullname {
		encoded = strings.ReplaceAll(encoded, `"`, `\"`)
		encoded = fmt.Sprintf("\"%s\"", encoded)
	}
	return fmt.Sprintf("%s <%s>", encoded, email)
}

func prepMailContents(toLine string, fromLine string, subject string, contentHtml string) []byte {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("To: %s\r\n", toLine))
	builder.WriteString(fmt.Sprintf("From: %s\r\n", fromLine))
	builder.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	builder.WriteString("\r\n")
	writer := quotedprintable.NewWriter(&builder)
	writer.Write([]byte(strings.ReplaceAll(contentHtml, "\n", "\r\n")))
	writer.Close()
	builder.WriteString("\r\n")

	return []byte(builder.String())
}
