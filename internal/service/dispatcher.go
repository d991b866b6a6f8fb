package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/crm-engine/internal/domain"
	"github.com/kursadbilgin/crm-engine/internal/observability"
	"github.com/kursadbilgin/crm-engine/internal/provider"
	"github.com/kursadbilgin/crm-engine/internal/ratelimit"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"go.uber.org/zap"
)

// ActiveProviderSource resolves the active configuration and decrypted
// credentials for a channel.
type ActiveProviderSource interface {
	GetActive(ctx context.Context, channel domain.Channel) (*domain.ProviderConfig, domain.Credentials, error)
}

var _ ActiveProviderSource = (*ProviderService)(nil)

// ProviderRegistry builds concrete channel senders from a provider name and
// decrypted credentials.
type ProviderRegistry interface {
	SMS(name string, credentials domain.Credentials) (provider.SMSProvider, error)
	Email(name string, credentials domain.Credentials) (provider.EmailProvider, error)
	WhatsApp(name string, credentials domain.Credentials) (provider.WhatsAppProvider, error)
}

var _ ProviderRegistry = (*provider.Registry)(nil)

// SendRequest is one outbound message to one recipient.
type SendRequest struct {
	Channel  domain.Channel
	To       string
	ClientID *string
	Payload  domain.MessagePayload
}

// SendOutcome reports the result of a single send. Message is the log row
// written for the attempt; Error carries the provider-reported reason when
// Success is false.
type SendOutcome struct {
	Message *domain.Message
	Success bool
	Error   string
}

// RecipientResult is one entry of a bulk send, in request order.
type RecipientResult struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// BulkResult aggregates a bulk send.
type BulkResult struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []RecipientResult `json:"results"`
}

// Dispatcher routes send requests to the channel's active provider and
// records the outcome of every attempted single send.
type Dispatcher struct {
	resolver  ActiveProviderSource
	providers ProviderRegistry
	messages  repository.MessageRepository
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewDispatcher(
	resolver ActiveProviderSource,
	providers ProviderRegistry,
	messages repository.MessageRepository,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if resolver == nil {
		return nil, fmt.Errorf("active provider source is required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		resolver:  resolver,
		providers: providers,
		messages:  messages,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	d.metrics = metrics
}

// SendSingle resolves the active provider for the request's channel, sends
// the message, and writes exactly one log row for the attempt. Failures
// before the provider call (validation, resolution, credential problems)
// propagate as errors with no log row; a provider-level failure is recorded
// as a FAILED row and reported through the outcome, not as an error.
func (d *Dispatcher) SendSingle(ctx context.Context, req SendRequest) (*SendOutcome, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	config, credentials, err := d.resolver.GetActive(ctx, req.Channel)
	if err != nil {
		return nil, err
	}

	send, err := d.newSender(req.Channel, config.Provider, credentials, req.Payload)
	if err != nil {
		return nil, err
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, req.Channel.String()); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	start := d.now()
	result := send(ctx, req.To)
	d.metrics.ObserveMessageSendDuration(req.Channel.String(), d.now().Sub(start))

	logger := observability.WithContextLogger(d.logger, ctx)

	msg := d.buildLogEntry(req, config.Provider, credentials, result)
	if err := d.messages.Create(ctx, msg); err != nil {
		logger.Error("failed to record message",
			zap.String("channel", req.Channel.String()),
			zap.String("provider", config.Provider),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to record message: %w", err)
	}

	if result.Success {
		d.metrics.IncMessageSent(req.Channel.String(), config.Provider)
		logger.Info("message sent",
			zap.String("messageId", msg.ID),
			zap.String("channel", req.Channel.String()),
			zap.String("provider", config.Provider),
		)
	} else {
		d.metrics.IncMessageFailed(req.Channel.String(), config.Provider)
		logger.Warn("message send failed",
			zap.String("messageId", msg.ID),
			zap.String("channel", req.Channel.String()),
			zap.String("provider", config.Provider),
			zap.String("reason", result.Error),
		)
	}

	return &SendOutcome{Message: msg, Success: result.Success, Error: result.Error}, nil
}

// SendBulk sends one payload to many recipients through a single provider
// resolution. Recipients are processed in order and failures are isolated
// per recipient; bulk sends are not written to the message log.
func (d *Dispatcher) SendBulk(ctx context.Context, channel domain.Channel, recipients []string, payload domain.MessagePayload) (*BulkResult, error) {
	if !channel.IsValid() {
		return nil, fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}
	if err := payload.ValidateFor(channel); err != nil {
		return nil, err
	}

	config, credentials, err := d.resolver.GetActive(ctx, channel)
	if err != nil {
		return nil, err
	}

	send, err := d.newSender(channel, config.Provider, credentials, payload)
	if err != nil {
		return nil, err
	}

	bulk := &BulkResult{
		Total:   len(recipients),
		Results: make([]RecipientResult, 0, len(recipients)),
	}

	for _, recipient := range recipients {
		entry := RecipientResult{Recipient: recipient}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx, channel.String()); err != nil {
				entry.Error = fmt.Sprintf("rate limiter wait failed: %v", err)
				bulk.Failed++
				bulk.Results = append(bulk.Results, entry)
				continue
			}
		}

		start := d.now()
		result := send(ctx, recipient)
		d.metrics.ObserveMessageSendDuration(channel.String(), d.now().Sub(start))

		if result.Success {
			entry.Success = true
			bulk.Successful++
			d.metrics.IncMessageSent(channel.String(), config.Provider)
		} else {
			entry.Error = result.Error
			bulk.Failed++
			d.metrics.IncMessageFailed(channel.String(), config.Provider)
		}
		bulk.Results = append(bulk.Results, entry)
	}

	observability.WithContextLogger(d.logger, ctx).Info("bulk send finished",
		zap.String("channel", channel.String()),
		zap.String("provider", config.Provider),
		zap.Int("total", bulk.Total),
		zap.Int("successful", bulk.Successful),
		zap.Int("failed", bulk.Failed),
	)

	return bulk, nil
}

type sendFunc func(ctx context.Context, to string) provider.SendResult

// newSender binds a channel's payload to a concrete provider call. An
// unknown provider name surfaces provider.ErrUnknownProvider.
func (d *Dispatcher) newSender(channel domain.Channel, providerName string, credentials domain.Credentials, payload domain.MessagePayload) (sendFunc, error) {
	switch channel {
	case domain.ChannelSMS:
		sms, err := d.providers.SMS(providerName, credentials)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, to string) provider.SendResult {
			return sms.Send(ctx, to, payload.Body)
		}, nil

	case domain.ChannelEmail:
		email, err := d.providers.Email(providerName, credentials)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, to string) provider.SendResult {
			return email.Send(ctx, to, payload.Subject, payload.HTMLBody, payload.TextBody)
		}, nil

	case domain.ChannelWhatsApp:
		wa, err := d.providers.WhatsApp(providerName, credentials)
		if err != nil {
			return nil, err
		}
		return whatsAppSender(wa, payload), nil

	default:
		return nil, fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}
}

// whatsAppSender prefers a dedicated media endpoint when the provider
// exposes one for the attachment's type, falling back to the generic send.
func whatsAppSender(wa provider.WhatsAppProvider, payload domain.MessagePayload) sendFunc {
	mediaURL := strings.TrimSpace(payload.MediaURL)
	if mediaURL == "" {
		return func(ctx context.Context, to string) provider.SendResult {
			return wa.Send(ctx, to, payload.Body, nil)
		}
	}

	mediaType := provider.MediaType(strings.ToLower(strings.TrimSpace(payload.MediaType)))

	switch mediaType {
	case provider.MediaImage:
		if sender, ok := wa.(provider.ImageSender); ok {
			return func(ctx context.Context, to string) provider.SendResult {
				return sender.SendImage(ctx, to, mediaURL, payload.Body)
			}
		}
	case provider.MediaVideo:
		if sender, ok := wa.(provider.VideoSender); ok {
			return func(ctx context.Context, to string) provider.SendResult {
				return sender.SendVideo(ctx, to, mediaURL, payload.Body)
			}
		}
	case provider.MediaDocument:
		if sender, ok := wa.(provider.DocumentSender); ok {
			return func(ctx context.Context, to string) provider.SendResult {
				return sender.SendDocument(ctx, to, mediaURL, payload.Body)
			}
		}
	}

	media := &provider.Media{URL: mediaURL, Type: mediaType}
	return func(ctx context.Context, to string) provider.SendResult {
		return wa.Send(ctx, to, payload.Body, media)
	}
}

func (d *Dispatcher) buildLogEntry(req SendRequest, providerName string, credentials domain.Credentials, result provider.SendResult) *domain.Message {
	status := domain.MessageStatusFailed
	if result.Success {
		status = domain.MessageStatusSent
	}

	var externalID *string
	if result.ExternalID != "" {
		id := result.ExternalID
		externalID = &id
	}

	return &domain.Message{
		ID:         uuid.NewString(),
		ClientID:   req.ClientID,
		Channel:    req.Channel,
		Direction:  domain.DirectionOutbound,
		Status:     status,
		From:       fromAddress(req.Channel, credentials),
		To:         req.To,
		Content:    serializeContent(req.Channel, req.Payload),
		Provider:   providerName,
		ExternalID: externalID,
		CreatedAt:  d.now(),
	}
}

func validateSendRequest(req SendRequest) error {
	if !req.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, req.Channel)
	}
	if strings.TrimSpace(req.To) == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	return req.Payload.ValidateFor(req.Channel)
}

// fromAddress picks the sender identity from the provider's credentials,
// falling back to "SYSTEM" when none is configured.
func fromAddress(channel domain.Channel, credentials domain.Credentials) string {
	switch channel {
	case domain.ChannelEmail:
		if email := credentials.Get("email"); email != "" {
			return email
		}
		return credentials.GetDefault("fromEmail", "SYSTEM")
	default:
		return credentials.GetDefault("fromNumber", "SYSTEM")
	}
}

type emailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type whatsAppContent struct {
	Message   string `json:"message"`
	MediaURL  string `json:"mediaUrl,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// serializeContent flattens a payload into the messages.content column:
// raw body for SMS, a JSON document for email and WhatsApp.
func serializeContent(channel domain.Channel, payload domain.MessagePayload) string {
	switch channel {
	case domain.ChannelEmail:
		body := payload.HTMLBody
		if strings.TrimSpace(body) == "" {
			body = payload.TextBody
		}
		encoded, err := json.Marshal(emailContent{Subject: payload.Subject, Body: body})
		if err != nil {
			return payload.Subject
		}
		return string(encoded)
	case domain.ChannelWhatsApp:
		encoded, err := json.Marshal(whatsAppContent{
			Message:   payload.Body,
			MediaURL:  payload.MediaURL,
			MediaType: payload.MediaType,
		})
		if err != nil {
			return payload.Body
		}
		return string(encoded)
	default:
		return payload.Body
	}
}
