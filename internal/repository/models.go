package repository

import (
	"time"

	"github.com/kursadbilgin/crm-engine/internal/domain"
)

// ProviderConfigModel is the persistence model for provider_configs.
// Credentials always holds the encrypted blob.
type ProviderConfigModel struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	Channel     domain.Channel `gorm:"type:varchar(10);not null"`
	Provider    string         `gorm:"type:varchar(30);not null"`
	Name        string         `gorm:"type:varchar(255)"`
	IsActive    bool           `gorm:"not null;default:false"`
	Credentials string         `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProviderConfigModel) TableName() string {
	return "provider_configs"
}

// MessageModel is the persistence model for the messages log.
type MessageModel struct {
	ID         string               `gorm:"type:uuid;primaryKey"`
	ClientID   *string              `gorm:"type:uuid"`
	Channel    domain.Channel       `gorm:"type:varchar(10);not null"`
	Direction  domain.Direction     `gorm:"type:varchar(10);not null"`
	Status     domain.MessageStatus `gorm:"type:varchar(10);not null"`
	From       string               `gorm:"column:from_address;type:varchar(255);not null"`
	To         string               `gorm:"column:to_address;type:varchar(255);not null"`
	Content    string               `gorm:"type:text;not null"`
	Provider   string               `gorm:"type:varchar(30);not null"`
	ExternalID *string              `gorm:"type:varchar(255)"`
	CreatedAt  time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// InvoiceModel is the persistence model for invoices, including recurring
// series templates.
type InvoiceModel struct {
	ID          string               `gorm:"type:uuid;primaryKey"`
	ClientID    string               `gorm:"type:uuid;not null"`
	Number      string               `gorm:"type:varchar(30);not null;uniqueIndex"`
	Date        time.Time            `gorm:"not null"`
	DueDate     time.Time            `gorm:"not null"`
	Status      domain.InvoiceStatus `gorm:"type:varchar(10);not null"`
	Items       string               `gorm:"type:jsonb;not null;default:'[]'"`
	Total       float64              `gorm:"not null"`
	Currency    string               `gorm:"type:varchar(3);not null"`
	IsRecurring bool                 `gorm:"not null;default:false"`
	Frequency   *domain.Frequency    `gorm:"type:varchar(10)"`
	NextRun     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (InvoiceModel) TableName() string {
	return "invoices"
}

func providerConfigModelFromDomain(c *domain.ProviderConfig) *ProviderConfigModel {
	if c == nil {
		return nil
	}

	return &ProviderConfigModel{
		ID:          c.ID,
		Channel:     c.Channel,
		Provider:    c.Provider,
		Name:        c.Name,
		IsActive:    c.IsActive,
		Credentials: c.Credentials,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func providerConfigModelToDomain(m *ProviderConfigModel) *domain.ProviderConfig {
	if m == nil {
		return nil
	}

	return &domain.ProviderConfig{
		ID:          m.ID,
		Channel:     m.Channel,
		Provider:    m.Provider,
		Name:        m.Name,
		IsActive:    m.IsActive,
		Credentials: m.Credentials,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func messageModelFromDomain(msg *domain.Message) *MessageModel {
	if msg == nil {
		return nil
	}

	return &MessageModel{
		ID:         msg.ID,
		ClientID:   msg.ClientID,
		Channel:    msg.Channel,
		Direction:  msg.Direction,
		Status:     msg.Status,
		From:       msg.From,
		To:         msg.To,
		Content:    msg.Content,
		Provider:   msg.Provider,
		ExternalID: msg.ExternalID,
		CreatedAt:  msg.CreatedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:         m.ID,
		ClientID:   m.ClientID,
		Channel:    m.Channel,
		Direction:  m.Direction,
		Status:     m.Status,
		From:       m.From,
		To:         m.To,
		Content:    m.Content,
		Provider:   m.Provider,
		ExternalID: m.ExternalID,
		CreatedAt:  m.CreatedAt,
	}
}

func invoiceModelFromDomain(inv *domain.Invoice) *InvoiceModel {
	if inv == nil {
		return nil
	}

	return &InvoiceModel{
		ID:          inv.ID,
		ClientID:    inv.ClientID,
		Number:      inv.Number,
		Date:        inv.Date,
		DueDate:     inv.DueDate,
		Status:      inv.Status,
		Items:       inv.Items,
		Total:       inv.Total,
		Currency:    inv.Currency,
		IsRecurring: inv.IsRecurring,
		Frequency:   inv.Frequency,
		NextRun:     inv.NextRun,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func invoiceModelToDomain(m *InvoiceModel) *domain.Invoice {
	if m == nil {
		return nil
	}

	return &domain.Invoice{
		ID:          m.ID,
		ClientID:    m.ClientID,
		Number:      m.Number,
		Date:        m.Date,
		DueDate:     m.DueDate,
		Status:      m.Status,
		Items:       m.Items,
		Total:       m.Total,
		Currency:    m.Currency,
		IsRecurring: m.IsRecurring,
		Frequency:   m.Frequency,
		NextRun:     m.NextRun,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
