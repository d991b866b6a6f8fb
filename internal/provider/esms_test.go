package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

func TestESMSSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody esmsRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/SendMultipleMessage_V4_post_json/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"CodeResult":"100","SMSID":"esms-77"}`))
	}))
	defer server.Close()

	p := NewESMS(domain.Credentials{
		"apiKey":    "key",
		"secretKey": "secret",
		"brandName": "ACME",
	}, resty.New())
	p.baseURL = server.URL

	result := p.Send(context.Background(), "0905551234", "xin chao")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.ExternalID != "esms-77" {
		t.Fatalf("ExternalID = %q, want esms-77", result.ExternalID)
	}
	if result.Status != "SENT" {
		t.Fatalf("Status = %q, want SENT", result.Status)
	}
	if gotBody.APIKey != "key" || gotBody.SecretKey != "secret" || gotBody.BrandName != "ACME" {
		t.Fatalf("request credentials = %+v", gotBody)
	}
	if gotBody.Phone != "0905551234" || gotBody.Content != "xin chao" || gotBody.SMSType != "2" {
		t.Fatalf("request payload = %+v", gotBody)
	}
}

func TestESMSSendVendorFailureCode(t *testing.T) {
	t.Parallel()

	// eSMS reports failures with HTTP 200 and a non-100 CodeResult.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"CodeResult":"104","ErrorMessage":"Brandname not found"}`))
	}))
	defer server.Close()

	p := NewESMS(domain.Credentials{"apiKey": "k"}, resty.New())
	p.baseURL = server.URL

	result := p.Send(context.Background(), "0905551234", "hi")

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.Status != "FAILED" {
		t.Fatalf("Status = %q, want FAILED", result.Status)
	}
	if result.Error != "Brandname not found" {
		t.Fatalf("Error = %q, want Brandname not found", result.Error)
	}
}

func TestESMSSendHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewESMS(domain.Credentials{"apiKey": "k"}, resty.New())
	p.baseURL = server.URL

	result := p.Send(context.Background(), "0905551234", "hi")
	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.Error == "" {
		t.Fatal("Error is empty")
	}
}
