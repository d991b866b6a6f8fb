package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

func twilioCredentials() domain.Credentials {
	return domain.Credentials{
		"accountSid": "AC123",
		"authToken":  "secret-token",
		"fromNumber": "+15550001111",
	}
}

func TestTwilioSMSSendSuccess(t *testing.T) {
	t.Parallel()

	var gotForm map[string]string
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Messages.json" {
			t.Errorf("path = %s, want /Messages.json", r.URL.Path)
		}
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM900","status":"queued"}`))
	}))
	defer server.Close()

	p := NewTwilioSMS(twilioCredentials(), resty.New())
	p.baseURL = server.URL

	result := p.Send(context.Background(), "+15557654321", "hello there")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.ExternalID != "SM900" {
		t.Fatalf("ExternalID = %q, want SM900", result.ExternalID)
	}
	if result.Status != "queued" {
		t.Fatalf("Status = %q, want queued", result.Status)
	}
	if gotUser != "AC123" || gotPass != "secret-token" {
		t.Fatalf("basic auth = %q/%q, want AC123/secret-token", gotUser, gotPass)
	}
	if gotForm["To"] != "+15557654321" || gotForm["From"] != "+15550001111" || gotForm["Body"] != "hello there" {
		t.Fatalf("form = %v", gotForm)
	}
}

func TestTwilioSMSSendFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authenticate","code":20003}`))
	}))
	defer server.Close()

	p := NewTwilioSMS(twilioCredentials(), resty.New())
	p.baseURL = server.URL

	result := p.Send(context.Background(), "+15557654321", "hello")

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.Error != "Authenticate" {
		t.Fatalf("Error = %q, want Authenticate", result.Error)
	}
}

func TestTwilioSMSSendTransportError(t *testing.T) {
	t.Parallel()

	p := NewTwilioSMS(twilioCredentials(), resty.New())
	p.baseURL = "http://127.0.0.1:0"

	result := p.Send(context.Background(), "+15557654321", "hello")
	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.Error == "" {
		t.Fatal("Error is empty, want transport error message")
	}
}

func TestTwilioWhatsAppSendPrefixesAddresses(t *testing.T) {
	t.Parallel()

	var gotTo, gotFrom, gotMedia string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotMedia = r.PostFormValue("MediaUrl")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"MM42","status":"queued"}`))
	}))
	defer server.Close()

	p := NewTwilioWhatsApp(twilioCredentials(), resty.New())
	p.baseURL = server.URL

	result := p.Send(context.Background(), "+905551112233", "hi", &Media{URL: "https://cdn.example.com/a.png", Type: MediaImage})

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.ExternalID != "MM42" {
		t.Fatalf("ExternalID = %q, want MM42", result.ExternalID)
	}
	if gotTo != "whatsapp:+905551112233" {
		t.Fatalf("To = %q, want whatsapp:+905551112233", gotTo)
	}
	if gotFrom != "whatsapp:+15550001111" {
		t.Fatalf("From = %q, want whatsapp:+15550001111", gotFrom)
	}
	if gotMedia != "https://cdn.example.com/a.png" {
		t.Fatalf("MediaUrl = %q", gotMedia)
	}
}

func TestTwilioWhatsAppKeepsExistingPrefix(t *testing.T) {
	t.Parallel()

	var gotFrom string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotFrom = r.PostFormValue("From")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"MM1","status":"queued"}`))
	}))
	defer server.Close()

	credentials := twilioCredentials()
	credentials["fromNumber"] = "whatsapp:+14155238886"

	p := NewTwilioWhatsApp(credentials, resty.New())
	p.baseURL = server.URL

	if result := p.Send(context.Background(), "+1555", "hi", nil); !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if gotFrom != "whatsapp:+14155238886" {
		t.Fatalf("From = %q, want whatsapp:+14155238886", gotFrom)
	}
}
