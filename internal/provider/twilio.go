package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

type twilioMessageResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TwilioSMS sends SMS through the Twilio Messages API. Success is any 2xx
// response carrying a message sid.
type TwilioSMS struct {
	client     *resty.Client
	accountSid string
	authToken  string
	fromNumber string
	baseURL    string
}

func NewTwilioSMS(credentials domain.Credentials, client *resty.Client) *TwilioSMS {
	accountSid := credentials.Get("accountSid")

	return &TwilioSMS{
		client:     client,
		accountSid: accountSid,
		authToken:  credentials.Get("authToken"),
		fromNumber: credentials.Get("fromNumber"),
		baseURL:    twilioAPIBase + "/Accounts/" + accountSid,
	}
}

func (p *TwilioSMS) Send(ctx context.Context, to, body string) SendResult {
	response, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(p.accountSid, p.authToken).
		SetFormData(map[string]string{
			"To":   to,
			"From": p.fromNumber,
			"Body": body,
		}).
		Post(p.baseURL + "/Messages.json")
	if err != nil {
		return failure(err)
	}

	return translateTwilioResponse(response)
}

// TwilioWhatsApp sends WhatsApp messages through the same Twilio Messages
// API, with whatsapp:-prefixed addresses and optional MediaUrl.
type TwilioWhatsApp struct {
	client     *resty.Client
	accountSid string
	authToken  string
	fromNumber string
	baseURL    string
}

func NewTwilioWhatsApp(credentials domain.Credentials, client *resty.Client) *TwilioWhatsApp {
	accountSid := credentials.Get("accountSid")

	return &TwilioWhatsApp{
		client:     client,
		accountSid: accountSid,
		authToken:  credentials.Get("authToken"),
		fromNumber: credentials.Get("fromNumber"),
		baseURL:    twilioAPIBase + "/Accounts/" + accountSid,
	}
}

func (p *TwilioWhatsApp) Send(ctx context.Context, to, body string, media *Media) SendResult {
	from := p.fromNumber
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}

	form := map[string]string{
		"To":   "whatsapp:" + to,
		"From": from,
		"Body": body,
	}
	if media != nil && media.URL != "" {
		form["MediaUrl"] = media.URL
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(p.accountSid, p.authToken).
		SetFormData(form).
		Post(p.baseURL + "/Messages.json")
	if err != nil {
		return failure(err)
	}

	return translateTwilioResponse(response)
}

func translateTwilioResponse(response *resty.Response) SendResult {
	var parsed twilioMessageResponse
	_ = json.Unmarshal(response.Body(), &parsed)

	if response.IsSuccess() {
		return SendResult{
			Success:    true,
			ExternalID: parsed.Sid,
			Status:     parsed.Status,
		}
	}

	errorMessage := strings.TrimSpace(parsed.Message)
	if errorMessage == "" {
		errorMessage = fmt.Sprintf("twilio returned status %d", response.StatusCode())
	}
	return SendResult{Error: errorMessage}
}
