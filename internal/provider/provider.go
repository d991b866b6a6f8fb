// Package provider holds the vendor integrations behind the per-channel
// send contracts. Concrete providers own their outbound transport and the
// translation of each vendor's response shape into a SendResult; they never
// return a Go error for predictable failures (bad credentials, remote
// 4xx/5xx, timeouts) and convert those into SendResult.Error instead.
package provider

import (
	"context"
	"regexp"
)

// SendResult is the normalized outcome of one provider call.
type SendResult struct {
	Success    bool
	ExternalID string
	Status     string
	Error      string
}

// MediaType classifies a WhatsApp media attachment.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaAudio    MediaType = "audio"
)

// Media is an optional WhatsApp attachment referenced by URL.
type Media struct {
	URL  string
	Type MediaType
}

// SMSProvider is the uniform SMS send contract.
type SMSProvider interface {
	Send(ctx context.Context, to, body string) SendResult
}

// EmailProvider is the uniform email send contract. textBody may be empty,
// in which case providers derive it from htmlBody.
type EmailProvider interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) SendResult
}

// WhatsAppProvider is the uniform WhatsApp send contract. Providers without
// media support ignore the attachment.
type WhatsAppProvider interface {
	Send(ctx context.Context, to, body string, media *Media) SendResult
}

// Optional WhatsApp capabilities. The dispatcher prefers a dedicated media
// endpoint over the generic send when the provider exposes one for the
// attachment's type.
type (
	ImageSender interface {
		SendImage(ctx context.Context, to, imageURL, caption string) SendResult
	}
	VideoSender interface {
		SendVideo(ctx context.Context, to, videoURL, caption string) SendResult
	}
	DocumentSender interface {
		SendDocument(ctx context.Context, to, documentURL, caption string) SendResult
	}
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

func digitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

func failure(err error) SendResult {
	return SendResult{Success: false, Error: err.Error()}
}
