package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"github.com/kursadbilgin/crm-engine/internal/service"
	"github.com/kursadbilgin/crm-engine/internal/transport"
	"go.uber.org/zap"
)

type stubDispatcher struct {
	sendSingleFn func(ctx context.Context, req service.SendRequest) (*service.SendOutcome, error)
	sendBulkFn   func(ctx context.Context, channel domain.Channel, recipients []string, payload domain.MessagePayload) (*service.BulkResult, error)
}

func (s *stubDispatcher) SendSingle(ctx context.Context, req service.SendRequest) (*service.SendOutcome, error) {
	if s.sendSingleFn != nil {
		return s.sendSingleFn(ctx, req)
	}
	return nil, domain.ErrNoActiveProvider
}

func (s *stubDispatcher) SendBulk(ctx context.Context, channel domain.Channel, recipients []string, payload domain.MessagePayload) (*service.BulkResult, error) {
	if s.sendBulkFn != nil {
		return s.sendBulkFn(ctx, channel, recipients, payload)
	}
	return nil, domain.ErrNoActiveProvider
}

type stubMessageStore struct {
	listFn func(ctx context.Context, params repository.MessageListParams) ([]domain.Message, int64, error)
}

func (s *stubMessageStore) List(ctx context.Context, params repository.MessageListParams) ([]domain.Message, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func newMessageTestApp(t *testing.T, dispatcher MessageDispatcher, messages MessageStore) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterMessageRoutes(app, dispatcher, messages); err != nil {
		t.Fatalf("RegisterMessageRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestMessageHandler_SendSMS(t *testing.T) {
	t.Parallel()

	externalID := "SM123"
	dispatcher := &stubDispatcher{
		sendSingleFn: func(_ context.Context, req service.SendRequest) (*service.SendOutcome, error) {
			if req.Channel != domain.ChannelSMS {
				t.Fatalf("Channel = %s, want SMS", req.Channel)
			}
			if req.To != "+905551112233" {
				t.Fatalf("To = %q", req.To)
			}
			return &service.SendOutcome{
				Message: &domain.Message{
					ID:         "msg-1",
					Status:     domain.MessageStatusSent,
					ExternalID: &externalID,
				},
				Success: true,
			}, nil
		},
	}
	app := newMessageTestApp(t, dispatcher, &stubMessageStore{})

	resp, body := performRequest(t, app, http.MethodPost, "/v1/messages/sms",
		`{"to":"+905551112233","body":"hello"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["messageId"] != "msg-1" {
		t.Fatalf("messageId = %v, want msg-1", parsed["messageId"])
	}
	if parsed["status"] != "SENT" {
		t.Fatalf("status = %v, want SENT", parsed["status"])
	}
	if parsed["externalId"] != "SM123" {
		t.Fatalf("externalId = %v, want SM123", parsed["externalId"])
	}
}

func TestMessageHandler_SendSMS_NoActiveProvider(t *testing.T) {
	t.Parallel()

	app := newMessageTestApp(t, &stubDispatcher{}, &stubMessageStore{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/messages/sms",
		`{"to":"+905551112233","body":"hello"}`)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 when no provider is active", resp.StatusCode)
	}
}

func TestMessageHandler_SendSMS_ValidationError(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{
		sendSingleFn: func(_ context.Context, req service.SendRequest) (*service.SendOutcome, error) {
			return nil, domain.ErrValidation
		},
	}
	app := newMessageTestApp(t, dispatcher, &stubMessageStore{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/messages/sms", `{"to":"","body":""}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMessageHandler_SendEmail_BodyFallsBackToHTML(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{
		sendSingleFn: func(_ context.Context, req service.SendRequest) (*service.SendOutcome, error) {
			if req.Payload.HTMLBody != "<p>invoice attached</p>" {
				t.Fatalf("HTMLBody = %q, want body promoted to html", req.Payload.HTMLBody)
			}
			return &service.SendOutcome{
				Message: &domain.Message{ID: "msg-2", Status: domain.MessageStatusSent},
				Success: true,
			}, nil
		},
	}
	app := newMessageTestApp(t, dispatcher, &stubMessageStore{})

	resp, body := performRequest(t, app, http.MethodPost, "/v1/messages/email",
		`{"to":"client@example.com","subject":"Invoice","body":"<p>invoice attached</p>"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
}

func TestMessageHandler_SendWhatsApp_PassesMedia(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{
		sendSingleFn: func(_ context.Context, req service.SendRequest) (*service.SendOutcome, error) {
			if req.Payload.MediaURL != "https://cdn.example.com/a.png" || req.Payload.MediaType != "image" {
				t.Fatalf("media = %q/%q", req.Payload.MediaURL, req.Payload.MediaType)
			}
			return &service.SendOutcome{
				Message: &domain.Message{ID: "msg-3", Status: domain.MessageStatusSent},
				Success: true,
			}, nil
		},
	}
	app := newMessageTestApp(t, dispatcher, &stubMessageStore{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/messages/whatsapp",
		`{"to":"+905551112233","message":"see attached","mediaUrl":"https://cdn.example.com/a.png","mediaType":"image"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMessageHandler_SendBulk(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{
		sendBulkFn: func(_ context.Context, channel domain.Channel, recipients []string, _ domain.MessagePayload) (*service.BulkResult, error) {
			if channel != domain.ChannelSMS {
				t.Fatalf("channel = %s, want SMS", channel)
			}
			if len(recipients) != 3 {
				t.Fatalf("recipients = %d, want 3", len(recipients))
			}
			return &service.BulkResult{
				Total:      3,
				Successful: 2,
				Failed:     1,
				Results: []service.RecipientResult{
					{Recipient: recipients[0], Success: true},
					{Recipient: recipients[1], Success: true},
					{Recipient: recipients[2], Error: "blocked"},
				},
			}, nil
		},
	}
	app := newMessageTestApp(t, dispatcher, &stubMessageStore{})

	resp, body := performRequest(t, app, http.MethodPost, "/v1/messages/bulk",
		`{"channel":"sms","recipients":["+1","+2","+3"],"body":"holiday hours"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed service.BulkResult
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Total != 3 || parsed.Successful != 2 || parsed.Failed != 1 {
		t.Fatalf("bulk = %d/%d/%d, want 3/2/1", parsed.Total, parsed.Successful, parsed.Failed)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/messages/bulk",
		`{"channel":"pigeon","recipients":["+1"],"body":"x"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid channel", resp.StatusCode)
	}
}

func TestMessageHandler_ListMessages(t *testing.T) {
	t.Parallel()

	store := &stubMessageStore{
		listFn: func(_ context.Context, params repository.MessageListParams) ([]domain.Message, int64, error) {
			if params.Channel == nil || *params.Channel != domain.ChannelEmail {
				t.Fatalf("Channel = %v, want EMAIL filter", params.Channel)
			}
			if params.ClientID == nil || *params.ClientID != "client-1" {
				t.Fatalf("ClientID = %v, want client-1", params.ClientID)
			}
			return []domain.Message{
				{ID: "msg-1", Channel: domain.ChannelEmail, Direction: domain.DirectionOutbound, Status: domain.MessageStatusSent},
			}, 1, nil
		},
	}
	app := newMessageTestApp(t, &stubDispatcher{}, store)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/messages?channel=email&clientId=client-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed listMessagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Data) != 1 || parsed.Meta.Total != 1 {
		t.Fatalf("data = %d total = %d, want 1/1", len(parsed.Data), parsed.Meta.Total)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/messages?pageSize=1000", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized pageSize", resp.StatusCode)
	}
}
