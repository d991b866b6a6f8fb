package provider

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/kursadbilgin/crm-engine/internal/domain"
)

type smtpCall struct {
	addr string
	from string
	to   []string
	msg  string
}

func captureSMTP(calls *[]smtpCall, fail error) smtpSendFunc {
	return func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		*calls = append(*calls, smtpCall{addr: addr, from: from, to: to, msg: string(msg)})
		return fail
	}
}

func TestGmailSendSuccess(t *testing.T) {
	t.Parallel()

	var calls []smtpCall
	p := NewGmail(domain.Credentials{
		"email":       "owner@example.com",
		"appPassword": "app-pass",
		"fromName":    "Acme Owner",
	})
	p.sendMail = captureSMTP(&calls, nil)

	result := p.Send(context.Background(), "client@example.com", "Your invoice", "<p>Total due: $42</p>", "")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.Status != "SENT" {
		t.Fatalf("Status = %q, want SENT", result.Status)
	}
	if len(calls) != 1 {
		t.Fatalf("sendMail calls = %d, want 1", len(calls))
	}

	call := calls[0]
	if call.addr != "smtp.gmail.com:587" {
		t.Fatalf("addr = %q", call.addr)
	}
	if call.from != "owner@example.com" {
		t.Fatalf("from = %q", call.from)
	}
	if len(call.to) != 1 || call.to[0] != "client@example.com" {
		t.Fatalf("to = %v", call.to)
	}
	if !strings.Contains(call.msg, "Subject: Your invoice") {
		t.Fatalf("message missing subject header:\n%s", call.msg)
	}
	if !strings.Contains(call.msg, `From: "Acme Owner" <owner@example.com>`) {
		t.Fatalf("message missing from header:\n%s", call.msg)
	}
	if !strings.Contains(call.msg, "<p>Total due: $42</p>") {
		t.Fatalf("message missing html part:\n%s", call.msg)
	}
	// Text part is derived by stripping tags from the html body.
	if !strings.Contains(call.msg, "Total due: $42") {
		t.Fatalf("message missing text part:\n%s", call.msg)
	}
}

func TestGmailSendFailure(t *testing.T) {
	t.Parallel()

	var calls []smtpCall
	p := NewGmail(domain.Credentials{"email": "owner@example.com", "appPassword": "x"})
	p.sendMail = captureSMTP(&calls, errors.New("535 authentication failed"))

	result := p.Send(context.Background(), "client@example.com", "Subj", "<b>hi</b>", "")

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if !strings.Contains(result.Error, "authentication failed") {
		t.Fatalf("Error = %q", result.Error)
	}
}

func TestSMTPSendUsesCredentialDefaults(t *testing.T) {
	t.Parallel()

	var calls []smtpCall
	p := NewSMTP(domain.Credentials{
		"host":     "mail.example.com",
		"username": "mailer@example.com",
		"password": "pw",
	})
	p.sendMail = captureSMTP(&calls, nil)

	result := p.Send(context.Background(), "client@example.com", "Hello", "", "plain text only")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if len(calls) != 1 {
		t.Fatalf("sendMail calls = %d, want 1", len(calls))
	}

	call := calls[0]
	if call.addr != "mail.example.com:587" {
		t.Fatalf("addr = %q, want default port 587", call.addr)
	}
	if call.from != "mailer@example.com" {
		t.Fatalf("from = %q, want username fallback", call.from)
	}
	if !strings.Contains(call.msg, `From: "CRM System" <mailer@example.com>`) {
		t.Fatalf("message missing default from name:\n%s", call.msg)
	}
	if !strings.Contains(call.msg, "plain text only") {
		t.Fatalf("message missing text body:\n%s", call.msg)
	}
}

func TestSMTPSendCustomPortAndFrom(t *testing.T) {
	t.Parallel()

	var calls []smtpCall
	p := NewSMTP(domain.Credentials{
		"host":      "mail.example.com",
		"port":      "2525",
		"username":  "mailer@example.com",
		"password":  "pw",
		"fromEmail": "billing@example.com",
		"fromName":  "Billing",
	})
	p.sendMail = captureSMTP(&calls, nil)

	if result := p.Send(context.Background(), "c@example.com", "S", "<i>b</i>", ""); !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}

	call := calls[0]
	if call.addr != "mail.example.com:2525" {
		t.Fatalf("addr = %q", call.addr)
	}
	if call.from != "billing@example.com" {
		t.Fatalf("from = %q", call.from)
	}
}
