package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel represents the messaging transport category.
type Channel string

const (
	ChannelSMS      Channel = "SMS"
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelWhatsApp:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// MessageStatus represents the outcome of a send attempt.
type MessageStatus string

const (
	MessageStatusSent    MessageStatus = "SENT"
	MessageStatusFailed  MessageStatus = "FAILED"
	MessageStatusPending MessageStatus = "PENDING"
)

func (s MessageStatus) String() string { return string(s) }

func (s MessageStatus) IsValid() bool {
	switch s {
	case MessageStatusSent, MessageStatusFailed, MessageStatusPending:
		return true
	}
	return false
}

// Direction represents the flow of a message relative to the system.
type Direction string

const (
	DirectionOutbound Direction = "OUTBOUND"
	DirectionInbound  Direction = "INBOUND"
)

func (d Direction) String() string { return string(d) }

func (d Direction) IsValid() bool {
	switch d {
	case DirectionOutbound, DirectionInbound:
		return true
	}
	return false
}

// Message is an immutable log record of a send attempt. It is written
// exactly once, right after the provider call returns, and never updated.
type Message struct {
	ID         string
	ClientID   *string
	Channel    Channel
	Direction  Direction
	Status     MessageStatus
	From       string
	To         string
	Content    string
	Provider   string
	ExternalID *string
	CreatedAt  time.Time
}

// MessagePayload carries the channel-specific content of a send request.
// SMS and WhatsApp use Body; email uses Subject plus HTMLBody/TextBody;
// WhatsApp may additionally carry a media attachment.
type MessagePayload struct {
	Body      string
	Subject   string
	HTMLBody  string
	TextBody  string
	MediaURL  string
	MediaType string
}

// ValidateFor checks the payload against the requirements of a channel.
func (p MessagePayload) ValidateFor(channel Channel) error {
	switch channel {
	case ChannelSMS, ChannelWhatsApp:
		if strings.TrimSpace(p.Body) == "" {
			return fmt.Errorf("%w: message body is required", ErrValidation)
		}
	case ChannelEmail:
		if strings.TrimSpace(p.Subject) == "" {
			return fmt.Errorf("%w: subject is required", ErrValidation)
		}
		if strings.TrimSpace(p.HTMLBody) == "" && strings.TrimSpace(p.TextBody) == "" {
			return fmt.Errorf("%w: email content is required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, channel)
	}
	return nil
}

// Credentials holds decrypted provider credentials as key/value pairs.
// The shape is provider-specific, e.g. {accountSid, authToken, fromNumber}.
type Credentials map[string]string

func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// GetDefault returns the value for key, or def when unset or blank.
func (c Credentials) GetDefault(key, def string) string {
	if v := strings.TrimSpace(c.Get(key)); v != "" {
		return v
	}
	return def
}
