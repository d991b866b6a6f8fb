package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const graphAPIBase = "https://graph.facebook.com/v17.0"

type graphTextRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             graphText `json:"text"`
}

type graphText struct {
	Body string `json:"body"`
}

type graphMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OfficialWhatsApp sends text messages through the WhatsApp Business
// Cloud API (Graph). Media attachments are not supported by this
// integration and fall through to plain text.
type OfficialWhatsApp struct {
	client      *resty.Client
	accessToken string
	baseURL     string
}

func NewOfficialWhatsApp(credentials domain.Credentials, client *resty.Client) *OfficialWhatsApp {
	return &OfficialWhatsApp{
		client:      client,
		accessToken: credentials.Get("accessToken"),
		baseURL:     graphAPIBase + "/" + credentials.Get("phoneNumberId"),
	}
}

func (p *OfficialWhatsApp) Send(ctx context.Context, to, body string, _ *Media) SendResult {
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(p.accessToken).
		SetBody(graphTextRequest{
			MessagingProduct: "whatsapp",
			To:               digitsOnly(to),
			Type:             "text",
			Text:             graphText{Body: body},
		}).
		Post(p.baseURL + "/messages")
	if err != nil {
		return failure(err)
	}

	var parsed graphMessageResponse
	_ = json.Unmarshal(response.Body(), &parsed)

	if response.IsSuccess() {
		result := SendResult{Success: true, Status: "SENT"}
		if len(parsed.Messages) > 0 {
			result.ExternalID = parsed.Messages[0].ID
		}
		return result
	}

	errorMessage := ""
	if parsed.Error != nil {
		errorMessage = strings.TrimSpace(parsed.Error.Message)
	}
	if errorMessage == "" {
		errorMessage = fmt.Sprintf("whatsapp cloud api returned status %d", response.StatusCode())
	}
	return SendResult{Error: errorMessage}
}
