package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const whatsCloudAPIBase = "https://wasuite.saasapp.site/api/v1"

type whatsCloudResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WhatsCloud sends WhatsApp messages through the WhatsCloud instance API.
// It exposes dedicated endpoints per media kind; the generic text endpoint
// carries no attachment.
type WhatsCloud struct {
	client     *resty.Client
	token      string
	instanceID string
	baseURL    string
}

func NewWhatsCloud(credentials domain.Credentials, client *resty.Client) *WhatsCloud {
	return &WhatsCloud{
		client:     client,
		token:      credentials.Get("token"),
		instanceID: credentials.Get("instanceId"),
		baseURL:    whatsCloudAPIBase,
	}
}

// formatJID turns a phone number into the vendor's JID addressing scheme,
// e.g. 919999999999@s.whatsapp.net.
func (p *WhatsCloud) formatJID(phone string) string {
	return digitsOnly(phone) + "@s.whatsapp.net"
}

func (p *WhatsCloud) Send(ctx context.Context, to, body string, _ *Media) SendResult {
	return p.get(ctx, "/send-text", map[string]string{
		"jid": p.formatJID(to),
		"msg": body,
	})
}

func (p *WhatsCloud) SendImage(ctx context.Context, to, imageURL, caption string) SendResult {
	return p.get(ctx, "/send-image", map[string]string{
		"jid":      p.formatJID(to),
		"imageurl": imageURL,
		"caption":  caption,
	})
}

func (p *WhatsCloud) SendVideo(ctx context.Context, to, videoURL, caption string) SendResult {
	return p.get(ctx, "/send-video", map[string]string{
		"jid":      p.formatJID(to),
		"videourl": videoURL,
		"caption":  caption,
	})
}

func (p *WhatsCloud) SendDocument(ctx context.Context, to, documentURL, caption string) SendResult {
	return p.get(ctx, "/send-doc", map[string]string{
		"jid":     p.formatJID(to),
		"docurl":  documentURL,
		"caption": caption,
	})
}

func (p *WhatsCloud) get(ctx context.Context, path string, params map[string]string) SendResult {
	request := p.client.R().
		SetContext(ctx).
		SetQueryParam("token", p.token).
		SetQueryParam("instance_id", p.instanceID)
	for key, value := range params {
		request.SetQueryParam(key, value)
	}

	response, err := request.Get(p.baseURL + path)
	if err != nil {
		return failure(err)
	}
	if !response.IsSuccess() {
		return SendResult{Error: fmt.Sprintf("whatscloud returned status %d", response.StatusCode())}
	}

	var parsed whatsCloudResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return failure(err)
	}

	result := SendResult{Success: parsed.Success}
	if !parsed.Success {
		result.Error = parsed.Message
	}
	return result
}
