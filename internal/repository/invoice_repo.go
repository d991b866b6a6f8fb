package repository

import (
	"context"
	"time"

	"github.com/kursadbilgin/crm-engine/internal/domain"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetDueRecurring(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error)
	UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)
}

type GormInvoiceRepo struct {
	db *gorm.DB
}

func NewGormInvoiceRepo(db *gorm.DB) *GormInvoiceRepo {
	return &GormInvoiceRepo{db: db}
}

func (r *GormInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	model := invoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if invoice != nil {
		*invoice = *invoiceModelToDomain(model)
	}
	return nil
}

// GetDueRecurring selects series templates whose next_run has passed.
// Selection is by next_run <= now, so sweeps missed while the process was
// down are caught up on the next run.
func (r *GormInvoiceRepo) GetDueRecurring(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error) {
	var models []InvoiceModel
	err := r.db.WithContext(ctx).
		Where("is_recurring AND next_run <= ?", now).
		Order("next_run ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, 0, len(models))
	for i := range models {
		invoices = append(invoices, *invoiceModelToDomain(&models[i]))
	}
	return invoices, nil
}

func (r *GormInvoiceRepo) UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&InvoiceModel{}).
		Where("id = ?", id).
		Update("next_run", nextRun)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormInvoiceRepo) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&InvoiceModel{}).
		Where("number LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}
