package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"regexp"
	"strconv"
	"strings"

	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const (
	gmailHost       = "smtp.gmail.com"
	gmailPort       = 587
	defaultSMTPPort = 587
)

var htmlTags = regexp.MustCompile(`<[^>]*>`)

type smtpSendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Gmail sends email through Gmail's SMTP relay using an app password.
type Gmail struct {
	email       string
	appPassword string
	fromName    string
	sendMail    smtpSendFunc
}

func NewGmail(credentials domain.Credentials) *Gmail {
	email := credentials.Get("email")

	return &Gmail{
		email:       email,
		appPassword: credentials.Get("appPassword"),
		fromName:    credentials.GetDefault("fromName", email),
		sendMail:    smtp.SendMail,
	}
}

func (p *Gmail) Send(ctx context.Context, to, subject, htmlBody, textBody string) SendResult {
	addr := fmt.Sprintf("%s:%d", gmailHost, gmailPort)
	auth := smtp.PlainAuth("", p.email, p.appPassword, gmailHost)
	msg := buildMIMEMessage(p.fromName, p.email, to, subject, htmlBody, textBody)

	if err := p.sendMail(addr, auth, p.email, []string{to}, msg); err != nil {
		return failure(err)
	}
	return SendResult{Success: true, Status: "SENT"}
}

// SMTP sends email through an arbitrary SMTP server.
type SMTP struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	sendMail  smtpSendFunc
}

func NewSMTP(credentials domain.Credentials) *SMTP {
	username := credentials.Get("username")

	port := defaultSMTPPort
	if parsed, err := strconv.Atoi(credentials.Get("port")); err == nil && parsed > 0 {
		port = parsed
	}

	return &SMTP{
		host:      credentials.Get("host"),
		port:      port,
		username:  username,
		password:  credentials.Get("password"),
		fromEmail: credentials.GetDefault("fromEmail", username),
		fromName:  credentials.GetDefault("fromName", "CRM System"),
		sendMail:  smtp.SendMail,
	}
}

func (p *SMTP) Send(ctx context.Context, to, subject, htmlBody, textBody string) SendResult {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)
	msg := buildMIMEMessage(p.fromName, p.fromEmail, to, subject, htmlBody, textBody)

	if err := p.sendMail(addr, auth, p.fromEmail, []string{to}, msg); err != nil {
		return failure(err)
	}
	return SendResult{Success: true, Status: "SENT"}
}

// buildMIMEMessage assembles a multipart/alternative message with a plain
// text part derived from the HTML body when none is supplied.
func buildMIMEMessage(fromName, fromEmail, to, subject, htmlBody, textBody string) []byte {
	if strings.TrimSpace(textBody) == "" {
		textBody = htmlTags.ReplaceAllString(htmlBody, "")
	}
	if strings.TrimSpace(htmlBody) == "" {
		htmlBody = textBody
	}

	const boundary = "crm-engine-alt"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %q <%s>\r\n", fromName, fromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(textBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes()
}
