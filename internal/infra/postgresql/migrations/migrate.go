package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_provider_configs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ProviderConfigModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_provider_configs_channel ON provider_configs (channel)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_provider_configs_active_channel ON provider_configs (channel) WHERE is_active`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ProviderConfigModel{})
			},
		},
		{
			ID: "000002_create_messages",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.MessageModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages (channel, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_messages_client_id ON messages (client_id) WHERE client_id IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.MessageModel{})
			},
		},
		{
			ID: "000003_create_invoices",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.InvoiceModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_invoices_recurring_next_run ON invoices (next_run) WHERE is_recurring`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.InvoiceModel{})
			},
		},
	})

	return m.Migrate()
}
