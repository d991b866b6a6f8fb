package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/crm-engine/internal/domain"
	"github.com/kursadbilgin/crm-engine/internal/service"
)

// maskedCredentials replaces the encrypted blob in list views so admin
// listings never echo ciphertext.
const maskedCredentials = "***ENCRYPTED***"

type ProviderAdmin interface {
	Create(ctx context.Context, input service.ProviderConfigInput) (*domain.ProviderConfig, error)
	Update(ctx context.Context, id string, update service.ProviderConfigUpdate) (*domain.ProviderConfig, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.ProviderConfig, domain.Credentials, error)
	List(ctx context.Context, channel *domain.Channel) ([]domain.ProviderConfig, error)
	Activate(ctx context.Context, id string) (*domain.ProviderConfig, error)
}

type ProviderHandler struct {
	providers ProviderAdmin
}

func NewProviderHandler(providers ProviderAdmin) (*ProviderHandler, error) {
	if providers == nil {
		return nil, fmt.Errorf("provider admin service is required")
	}
	return &ProviderHandler{providers: providers}, nil
}

func RegisterProviderRoutes(router fiber.Router, providers ProviderAdmin) error {
	h, err := NewProviderHandler(providers)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/providers", h.CreateProvider)
	v1.Get("/providers", h.ListProviders)
	v1.Get("/providers/:id", h.GetProvider)
	v1.Put("/providers/:id", h.UpdateProvider)
	v1.Delete("/providers/:id", h.DeleteProvider)
	v1.Post("/providers/:id/activate", h.ActivateProvider)

	return nil
}

type createProviderRequest struct {
	Channel     string            `json:"channel"`
	Provider    string            `json:"provider"`
	Name        string            `json:"name"`
	IsActive    bool              `json:"isActive"`
	Credentials map[string]string `json:"credentials"`
}

type updateProviderRequest struct {
	Channel     *string           `json:"channel"`
	Provider    *string           `json:"provider"`
	Name        *string           `json:"name"`
	IsActive    *bool             `json:"isActive"`
	Credentials map[string]string `json:"credentials"`
}

type providerConfigResponse struct {
	ID          string            `json:"id"`
	Channel     string            `json:"channel"`
	Provider    string            `json:"provider"`
	Name        string            `json:"name"`
	IsActive    bool              `json:"isActive"`
	Credentials string            `json:"credentials,omitempty"`
	Decrypted   map[string]string `json:"decryptedCredentials,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (h *ProviderHandler) CreateProvider(c *fiber.Ctx) error {
	var req createProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	config, err := h.providers.Create(c.Context(), service.ProviderConfigInput{
		Channel:     channel,
		Provider:    req.Provider,
		Name:        req.Name,
		IsActive:    req.IsActive,
		Credentials: req.Credentials,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toProviderConfigResponse(config, nil))
}

func (h *ProviderHandler) ListProviders(c *fiber.Ctx) error {
	var channel *domain.Channel
	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		parsed, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return toHTTPError(err)
		}
		channel = &parsed
	}

	configs, err := h.providers.List(c.Context(), channel)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]providerConfigResponse, 0, len(configs))
	for i := range configs {
		data = append(data, toProviderConfigResponse(&configs[i], nil))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func (h *ProviderHandler) GetProvider(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	config, credentials, err := h.providers.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toProviderConfigResponse(config, credentials))
}

func (h *ProviderHandler) UpdateProvider(c *fiber.Ctx) error {
	var req updateProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	update := service.ProviderConfigUpdate{
		Provider:    req.Provider,
		Name:        req.Name,
		IsActive:    req.IsActive,
		Credentials: req.Credentials,
	}
	if req.Channel != nil {
		channel, err := domain.ParseChannelFromString(*req.Channel)
		if err != nil {
			return toHTTPError(err)
		}
		update.Channel = &channel
	}

	config, err := h.providers.Update(c.Context(), strings.TrimSpace(c.Params("id")), update)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toProviderConfigResponse(config, nil))
}

func (h *ProviderHandler) DeleteProvider(c *fiber.Ctx) error {
	if err := h.providers.Delete(c.Context(), strings.TrimSpace(c.Params("id"))); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProviderHandler) ActivateProvider(c *fiber.Ctx) error {
	config, err := h.providers.Activate(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toProviderConfigResponse(config, nil))
}

func toProviderConfigResponse(config *domain.ProviderConfig, credentials domain.Credentials) providerConfigResponse {
	resp := providerConfigResponse{
		ID:        config.ID,
		Channel:   config.Channel.String(),
		Provider:  config.Provider,
		Name:      config.Name,
		IsActive:  config.IsActive,
		CreatedAt: config.CreatedAt,
		UpdatedAt: config.UpdatedAt,
	}
	if config.Credentials != "" {
		resp.Credentials = maskedCredentials
	}
	if credentials != nil {
		resp.Decrypted = credentials
	}
	return resp
}
