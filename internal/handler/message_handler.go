package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
	"github.com/kursadbilgin/crm-engine/internal/provider"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"github.com/kursadbilgin/crm-engine/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageDispatcher interface {
	SendSingle(ctx context.Context, req service.SendRequest) (*service.SendOutcome, error)
	SendBulk(ctx context.Context, channel domain.Channel, recipients []string, payload domain.MessagePayload) (*service.BulkResult, error)
}

type MessageStore interface {
	List(ctx context.Context, params repository.MessageListParams) ([]domain.Message, int64, error)
}

type MessageHandler struct {
	dispatcher MessageDispatcher
	messages   MessageStore
}

func NewMessageHandler(dispatcher MessageDispatcher, messages MessageStore) (*MessageHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("message dispatcher is required")
	}
	if messages == nil {
		return nil, fmt.Errorf("message store is required")
	}
	return &MessageHandler{dispatcher: dispatcher, messages: messages}, nil
}

func RegisterMessageRoutes(router fiber.Router, dispatcher MessageDispatcher, messages MessageStore) error {
	h, err := NewMessageHandler(dispatcher, messages)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages/sms", h.SendSMS)
	v1.Post("/messages/email", h.SendEmail)
	v1.Post("/messages/whatsapp", h.SendWhatsApp)
	v1.Post("/messages/bulk", h.SendBulk)
	v1.Get("/messages", h.ListMessages)

	return nil
}

type sendSMSRequest struct {
	To       string  `json:"to"`
	Body     string  `json:"body"`
	ClientID *string `json:"clientId"`
}

type sendEmailRequest struct {
	To       string  `json:"to"`
	Subject  string  `json:"subject"`
	HTMLBody string  `json:"htmlBody"`
	TextBody string  `json:"textBody"`
	Body     string  `json:"body"`
	ClientID *string `json:"clientId"`
}

type sendWhatsAppRequest struct {
	To        string  `json:"to"`
	Message   string  `json:"message"`
	MediaURL  string  `json:"mediaUrl"`
	MediaType string  `json:"mediaType"`
	ClientID  *string `json:"clientId"`
}

type sendBulkRequest struct {
	Channel    string   `json:"channel"`
	Recipients []string `json:"recipients"`
	Body       string   `json:"body"`
	Subject    string   `json:"subject"`
	HTMLBody   string   `json:"htmlBody"`
	TextBody   string   `json:"textBody"`
	MediaURL   string   `json:"mediaUrl"`
	MediaType  string   `json:"mediaType"`
}

type sendMessageResponse struct {
	MessageID  string  `json:"messageId"`
	Status     string  `json:"status"`
	Success    bool    `json:"success"`
	ExternalID *string `json:"externalId,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type messageResponse struct {
	ID         string    `json:"id"`
	ClientID   *string   `json:"clientId,omitempty"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	Status     string    `json:"status"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Content    string    `json:"content"`
	Provider   string    `json:"provider"`
	ExternalID *string   `json:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type listMessagesResponse struct {
	Data []messageResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *MessageHandler) SendSMS(c *fiber.Ctx) error {
	var req sendSMSRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return h.send(c, service.SendRequest{
		Channel:  domain.ChannelSMS,
		To:       strings.TrimSpace(req.To),
		ClientID: req.ClientID,
		Payload:  domain.MessagePayload{Body: req.Body},
	})
}

func (h *MessageHandler) SendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	htmlBody := req.HTMLBody
	if strings.TrimSpace(htmlBody) == "" {
		htmlBody = req.Body
	}

	return h.send(c, service.SendRequest{
		Channel:  domain.ChannelEmail,
		To:       strings.TrimSpace(req.To),
		ClientID: req.ClientID,
		Payload: domain.MessagePayload{
			Subject:  req.Subject,
			HTMLBody: htmlBody,
			TextBody: req.TextBody,
		},
	})
}

func (h *MessageHandler) SendWhatsApp(c *fiber.Ctx) error {
	var req sendWhatsAppRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return h.send(c, service.SendRequest{
		Channel:  domain.ChannelWhatsApp,
		To:       strings.TrimSpace(req.To),
		ClientID: req.ClientID,
		Payload: domain.MessagePayload{
			Body:      req.Message,
			MediaURL:  req.MediaURL,
			MediaType: req.MediaType,
		},
	})
}

func (h *MessageHandler) send(c *fiber.Ctx, req service.SendRequest) error {
	outcome, err := h.dispatcher.SendSingle(c.Context(), req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(sendMessageResponse{
		MessageID:  outcome.Message.ID,
		Status:     outcome.Message.Status.String(),
		Success:    outcome.Success,
		ExternalID: outcome.Message.ExternalID,
		Error:      outcome.Error,
	})
}

func (h *MessageHandler) SendBulk(c *fiber.Ctx) error {
	var req sendBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	htmlBody := req.HTMLBody
	if strings.TrimSpace(htmlBody) == "" && channel == domain.ChannelEmail {
		htmlBody = req.Body
	}

	payload := domain.MessagePayload{
		Body:      req.Body,
		Subject:   req.Subject,
		HTMLBody:  htmlBody,
		TextBody:  req.TextBody,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	}

	bulk, err := h.dispatcher.SendBulk(c.Context(), channel, req.Recipients, payload)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(bulk)
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	params, err := parseMessageListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	messages, total, err := h.messages.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]messageResponse, 0, len(messages))
	for i := range messages {
		data = append(data, toMessageResponse(&messages[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseMessageListParams(c *fiber.Ctx) (repository.MessageListParams, error) {
	params := repository.MessageListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.MessageListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.MessageListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.MessageListParams{}, err
		}
		params.Channel = &channel
	}

	if clientID := strings.TrimSpace(c.Query("clientId")); clientID != "" {
		params.ClientID = &clientID
	}

	if rawDirection := strings.TrimSpace(c.Query("direction")); rawDirection != "" {
		direction := domain.Direction(strings.ToUpper(rawDirection))
		if !direction.IsValid() {
			return repository.MessageListParams{}, fmt.Errorf("%w: invalid direction %q", domain.ErrValidation, rawDirection)
		}
		params.Direction = &direction
	}

	return params, nil
}

func toMessageResponse(msg *domain.Message) messageResponse {
	return messageResponse{
		ID:         msg.ID,
		ClientID:   msg.ClientID,
		Channel:    msg.Channel.String(),
		Direction:  msg.Direction.String(),
		Status:     msg.Status.String(),
		From:       msg.From,
		To:         msg.To,
		Content:    msg.Content,
		Provider:   msg.Provider,
		ExternalID: msg.ExternalID,
		CreatedAt:  msg.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoActiveProvider), errors.Is(err, provider.ErrUnknownProvider):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}
