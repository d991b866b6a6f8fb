package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/crm-engine/internal/domain"
	"gorm.io/gorm"
)

type ProviderConfigRepository interface {
	Create(ctx context.Context, config *domain.ProviderConfig) error
	GetByID(ctx context.Context, id string) (*domain.ProviderConfig, error)
	List(ctx context.Context, channel *domain.Channel) ([]domain.ProviderConfig, error)
	Update(ctx context.Context, config *domain.ProviderConfig) error
	Delete(ctx context.Context, id string) error
	GetActive(ctx context.Context, channel domain.Channel) (*domain.ProviderConfig, error)
	Activate(ctx context.Context, id string) (*domain.ProviderConfig, error)
}

type GormProviderConfigRepo struct {
	db *gorm.DB
}

func NewGormProviderConfigRepo(db *gorm.DB) *GormProviderConfigRepo {
	return &GormProviderConfigRepo{db: db}
}

func (r *GormProviderConfigRepo) Create(ctx context.Context, config *domain.ProviderConfig) error {
	model := providerConfigModelFromDomain(config)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if config != nil {
		*config = *providerConfigModelToDomain(model)
	}
	return nil
}

func (r *GormProviderConfigRepo) GetByID(ctx context.Context, id string) (*domain.ProviderConfig, error) {
	var model ProviderConfigModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return providerConfigModelToDomain(&model), nil
}

func (r *GormProviderConfigRepo) List(ctx context.Context, channel *domain.Channel) ([]domain.ProviderConfig, error) {
	query := r.db.WithContext(ctx).Model(&ProviderConfigModel{})
	if channel != nil {
		query = query.Where("channel = ?", *channel)
	}

	var models []ProviderConfigModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	configs := make([]domain.ProviderConfig, 0, len(models))
	for i := range models {
		configs = append(configs, *providerConfigModelToDomain(&models[i]))
	}
	return configs, nil
}

func (r *GormProviderConfigRepo) Update(ctx context.Context, config *domain.ProviderConfig) error {
	model := providerConfigModelFromDomain(config)

	result := r.db.WithContext(ctx).
		Model(&ProviderConfigModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"channel":     model.Channel,
			"provider":    model.Provider,
			"name":        model.Name,
			"is_active":   model.IsActive,
			"credentials": model.Credentials,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormProviderConfigRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ProviderConfigModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormProviderConfigRepo) GetActive(ctx context.Context, channel domain.Channel) (*domain.ProviderConfig, error) {
	var model ProviderConfigModel
	err := r.db.WithContext(ctx).
		Where("channel = ? AND is_active", channel).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoActiveProvider
	}
	if err != nil {
		return nil, err
	}
	return providerConfigModelToDomain(&model), nil
}

// Activate flips the target config active and all channel siblings inactive
// in one transaction, so readers never observe two active configs for a
// channel. Concurrent activations serialize on the row updates; last writer
// wins.
func (r *GormProviderConfigRepo) Activate(ctx context.Context, id string) (*domain.ProviderConfig, error) {
	var activated *ProviderConfigModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ProviderConfigModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		if err := tx.Model(&ProviderConfigModel{}).
			Where("channel = ?", model.Channel).
			Update("is_active", false).Error; err != nil {
			return err
		}

		if err := tx.Model(&model).Update("is_active", true).Error; err != nil {
			return err
		}

		model.IsActive = true
		activated = &model
		return nil
	})
	if err != nil {
		return nil, err
	}

	return providerConfigModelToDomain(activated), nil
}
