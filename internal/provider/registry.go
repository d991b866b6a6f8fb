package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const defaultSendTimeout = 15 * time.Second

// Provider implementation names. The mapping is closed: there is no dynamic
// plugin loading, only these statically enumerable vendors.
const (
	SMSTwilio = "TWILIO"
	SMSESMS   = "ESMS"

	EmailGmail = "GMAIL"
	EmailSMTP  = "SMTP"

	WhatsAppTwilio     = "TWILIO_WA"
	WhatsAppWAACS      = "WAACS"
	WhatsAppWhatsCloud = "WHATSCLOUD"
	WhatsAppOfficial   = "OFFICIAL_WA"
)

// ErrUnknownProvider is returned when a provider name is not registered for
// a channel. This is a configuration error, distinct from runtime send
// failures, and the only way construction may fail.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry constructs concrete channel providers from a provider name and
// decrypted credentials.
type Registry struct {
	client *resty.Client
}

func NewRegistry() *Registry {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return &Registry{client: client}
}

func NewRegistryWithClient(client *resty.Client) (*Registry, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	return &Registry{client: client}, nil
}

func (r *Registry) SMS(name string, credentials domain.Credentials) (SMSProvider, error) {
	switch normalizeProviderName(name) {
	case SMSTwilio:
		return NewTwilioSMS(credentials, r.client), nil
	case SMSESMS:
		return NewESMS(credentials, r.client), nil
	default:
		return nil, fmt.Errorf("%w: SMS provider %q", ErrUnknownProvider, name)
	}
}

func (r *Registry) Email(name string, credentials domain.Credentials) (EmailProvider, error) {
	switch normalizeProviderName(name) {
	case EmailGmail:
		return NewGmail(credentials), nil
	case EmailSMTP:
		return NewSMTP(credentials), nil
	default:
		return nil, fmt.Errorf("%w: email provider %q", ErrUnknownProvider, name)
	}
}

func (r *Registry) WhatsApp(name string, credentials domain.Credentials) (WhatsAppProvider, error) {
	switch normalizeProviderName(name) {
	case WhatsAppTwilio:
		return NewTwilioWhatsApp(credentials, r.client), nil
	case WhatsAppWAACS:
		return NewWAACS(credentials, r.client), nil
	case WhatsAppWhatsCloud:
		return NewWhatsCloud(credentials, r.client), nil
	case WhatsAppOfficial:
		return NewOfficialWhatsApp(credentials, r.client), nil
	default:
		return nil, fmt.Errorf("%w: WhatsApp provider %q", ErrUnknownProvider, name)
	}
}

func normalizeProviderName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
