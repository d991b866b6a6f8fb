package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/crm-engine/internal/domain"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"github.com/kursadbilgin/crm-engine/internal/vault"
	"go.uber.org/zap"
)

// CredentialVault is the encryption boundary for stored provider
// credentials.
type CredentialVault interface {
	EncryptCredentials(credentials domain.Credentials) (string, error)
	DecryptCredentials(blob string) (domain.Credentials, error)
}

var _ CredentialVault = (*vault.Vault)(nil)

// ProviderService manages provider configurations: admin CRUD, exclusive
// activation, and active-provider resolution for the dispatcher.
type ProviderService struct {
	configs repository.ProviderConfigRepository
	vault   CredentialVault
	logger  *zap.Logger
}

func NewProviderService(
	configs repository.ProviderConfigRepository,
	credentialVault CredentialVault,
	logger *zap.Logger,
) (*ProviderService, error) {
	if credentialVault == nil {
		return nil, fmt.Errorf("credential vault is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProviderService{
		configs: configs,
		vault:   credentialVault,
		logger:  logger,
	}, nil
}

// GetActive resolves the single active configuration for a channel and
// decrypts its credentials. A missing configuration surfaces as
// domain.ErrNoActiveProvider; a decryption failure surfaces as
// domain.ErrCredential, never as "no provider".
func (s *ProviderService) GetActive(ctx context.Context, channel domain.Channel) (*domain.ProviderConfig, domain.Credentials, error) {
	if !channel.IsValid() {
		return nil, nil, fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}

	config, err := s.configs.GetActive(ctx, channel)
	if err != nil {
		return nil, nil, err
	}

	credentials, err := s.vault.DecryptCredentials(config.Credentials)
	if err != nil {
		s.logger.Error("failed to decrypt provider credentials",
			zap.String("configId", config.ID),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("%w: config %s", domain.ErrCredential, config.ID)
	}

	return config, credentials, nil
}

// Activate makes the target configuration the only active one for its
// channel. The deactivate-then-activate pair runs in a single store
// transaction.
func (s *ProviderService) Activate(ctx context.Context, id string) (*domain.ProviderConfig, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: config id is required", domain.ErrValidation)
	}

	config, err := s.configs.Activate(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	s.logger.Info("provider configuration activated",
		zap.String("configId", config.ID),
		zap.String("channel", config.Channel.String()),
		zap.String("provider", config.Provider),
	)
	return config, nil
}

// ProviderConfigInput carries admin input for creating a configuration.
// Credentials arrive in plaintext and are encrypted before persistence.
type ProviderConfigInput struct {
	Channel     domain.Channel
	Provider    string
	Name        string
	IsActive    bool
	Credentials domain.Credentials
}

func (s *ProviderService) Create(ctx context.Context, input ProviderConfigInput) (*domain.ProviderConfig, error) {
	config := &domain.ProviderConfig{
		ID:       uuid.NewString(),
		Channel:  input.Channel,
		Provider: strings.ToUpper(strings.TrimSpace(input.Provider)),
		Name:     strings.TrimSpace(input.Name),
		IsActive: input.IsActive,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if input.Credentials != nil {
		encrypted, err := s.vault.EncryptCredentials(input.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		config.Credentials = encrypted
	}

	if err := s.configs.Create(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// ProviderConfigUpdate carries partial admin updates. Nil fields keep the
// stored value; non-nil Credentials are re-encrypted.
type ProviderConfigUpdate struct {
	Channel     *domain.Channel
	Provider    *string
	Name        *string
	IsActive    *bool
	Credentials domain.Credentials
}

func (s *ProviderService) Update(ctx context.Context, id string, update ProviderConfigUpdate) (*domain.ProviderConfig, error) {
	config, err := s.configs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Channel != nil {
		config.Channel = *update.Channel
	}
	if update.Provider != nil {
		config.Provider = strings.ToUpper(strings.TrimSpace(*update.Provider))
	}
	if update.Name != nil {
		config.Name = strings.TrimSpace(*update.Name)
	}
	if update.IsActive != nil {
		config.IsActive = *update.IsActive
	}
	if update.Credentials != nil {
		encrypted, err := s.vault.EncryptCredentials(update.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		config.Credentials = encrypted
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := s.configs.Update(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *ProviderService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: config id is required", domain.ErrValidation)
	}
	return s.configs.Delete(ctx, strings.TrimSpace(id))
}

// GetByID loads one configuration with decrypted credentials for the admin
// view. An undecryptable blob is logged and returned as nil credentials
// rather than failing the whole read.
func (s *ProviderService) GetByID(ctx context.Context, id string) (*domain.ProviderConfig, domain.Credentials, error) {
	config, err := s.configs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var credentials domain.Credentials
	if config.Credentials != "" {
		credentials, err = s.vault.DecryptCredentials(config.Credentials)
		if err != nil {
			s.logger.Error("failed to decrypt provider credentials",
				zap.String("configId", config.ID),
				zap.Error(err),
			)
			credentials = nil
		}
	}

	return config, credentials, nil
}

func (s *ProviderService) List(ctx context.Context, channel *domain.Channel) ([]domain.ProviderConfig, error) {
	return s.configs.List(ctx, channel)
}
