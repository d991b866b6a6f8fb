package repository

import (
	"context"

	"github.com/kursadbilgin/crm-engine/internal/domain"
	"gorm.io/gorm"
)

type MessageListParams struct {
	Channel   *domain.Channel
	ClientID  *string
	Direction *domain.Direction
	Page      int
	PageSize  int
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	List(ctx context.Context, params MessageListParams) ([]domain.Message, int64, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	model := messageModelFromDomain(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if msg != nil {
		*msg = *messageModelToDomain(model)
	}
	return nil
}

func (r *GormMessageRepo) List(ctx context.Context, params MessageListParams) ([]domain.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&MessageModel{})

	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.ClientID != nil {
		query = query.Where("client_id = ?", *params.ClientID)
	}
	if params.Direction != nil {
		query = query.Where("direction = ?", *params.Direction)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []MessageModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, *messageModelToDomain(&models[i]))
	}

	return messages, total, nil
}
