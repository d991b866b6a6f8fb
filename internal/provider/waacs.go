package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const waacsAPIBase = "https://waacs.online/api"

type waacsContact struct {
	Number      string `json:"number"`
	Message     string `json:"message"`
	SessionName string `json:"session_name"`
	Media       string `json:"media,omitempty"`
	URL         string `json:"url,omitempty"`
}

type waacsRequest struct {
	Contact []waacsContact `json:"contact"`
}

type waacsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    []struct {
		UID    string `json:"uid"`
		Status string `json:"status"`
	} `json:"data"`
}

// WAACS sends WhatsApp messages through the waacs.online session API.
// Success is the body's success boolean, not the HTTP status.
type WAACS struct {
	client      *resty.Client
	apiKey      string
	sessionName string
	baseURL     string
}

func NewWAACS(credentials domain.Credentials, client *resty.Client) *WAACS {
	return &WAACS{
		client:      client,
		apiKey:      credentials.Get("apiKey"),
		sessionName: credentials.Get("sessionName"),
		baseURL:     waacsAPIBase,
	}
}

func (p *WAACS) Send(ctx context.Context, to, body string, media *Media) SendResult {
	contact := waacsContact{
		Number:      digitsOnly(to),
		Message:     body,
		SessionName: p.sessionName,
	}
	if media != nil && media.URL != "" && media.Type != "" {
		contact.Media = string(media.Type)
		contact.URL = media.URL
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Api-key", p.apiKey).
		SetBody(waacsRequest{Contact: []waacsContact{contact}}).
		Post(p.baseURL + "/whatsapp/send")
	if err != nil {
		return failure(err)
	}
	if !response.IsSuccess() {
		return SendResult{Error: fmt.Sprintf("waacs returned status %d", response.StatusCode())}
	}

	var parsed waacsResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return failure(err)
	}

	result := SendResult{Success: parsed.Success, Status: "Pending"}
	if len(parsed.Data) > 0 {
		result.ExternalID = parsed.Data[0].UID
		if status := strings.TrimSpace(parsed.Data[0].Status); status != "" {
			result.Status = status
		}
	}
	if !parsed.Success {
		result.Error = parsed.Message
	}
	return result
}
