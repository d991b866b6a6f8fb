package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const esmsAPIBase = "http://rest.esms.vn/MainService.svc/json"

// eSMS reports the outcome in the response body: CodeResult "100" means
// accepted, anything else is a failure even on HTTP 200.
const esmsCodeSuccess = "100"

type esmsRequest struct {
	APIKey    string `json:"ApiKey"`
	Content   string `json:"Content"`
	Phone     string `json:"Phone"`
	SecretKey string `json:"SecretKey"`
	BrandName string `json:"Brandname"`
	SMSType   string `json:"SmsType"`
}

type esmsResponse struct {
	CodeResult   string `json:"CodeResult"`
	SMSID        string `json:"SMSID"`
	ErrorMessage string `json:"ErrorMessage"`
}

// ESMS sends brandname SMS through the eSMS.vn JSON API.
type ESMS struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	brandName string
	baseURL   string
}

func NewESMS(credentials domain.Credentials, client *resty.Client) *ESMS {
	return &ESMS{
		client:    client,
		apiKey:    credentials.Get("apiKey"),
		secretKey: credentials.Get("secretKey"),
		brandName: credentials.Get("brandName"),
		baseURL:   esmsAPIBase,
	}
}

func (p *ESMS) Send(ctx context.Context, to, body string) SendResult {
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(esmsRequest{
			APIKey:    p.apiKey,
			Content:   body,
			Phone:     to,
			SecretKey: p.secretKey,
			BrandName: p.brandName,
			SMSType:   "2",
		}).
		Post(p.baseURL + "/SendMultipleMessage_V4_post_json/")
	if err != nil {
		return failure(err)
	}
	if !response.IsSuccess() {
		return SendResult{Error: fmt.Sprintf("esms returned status %d", response.StatusCode())}
	}

	var parsed esmsResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return failure(err)
	}

	result := SendResult{
		Success:    parsed.CodeResult == esmsCodeSuccess,
		ExternalID: parsed.SMSID,
		Status:     "FAILED",
		Error:      parsed.ErrorMessage,
	}
	if result.Success {
		result.Status = "SENT"
	}
	return result
}
