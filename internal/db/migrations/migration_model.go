package migrations

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migration marks a named schema change as applied.
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationManager applies named schema changes at most once. AutoMigrate
// covers new columns and tables; anything it cannot express goes here.
type MigrationManager struct {
	db *gorm.DB
}

func NewMigrationManager(db *gorm.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

func (m *MigrationManager) EnsureMigrationTable() error {
	if m.db.Migrator().HasTable(&Migration{}) {
		return nil
	}
	log.Debugf("Creating migrations table")
	return m.db.AutoMigrate(&Migration{})
}

func (m *MigrationManager) HasMigration(name string) (bool, error) {
	var count int64
	if err := m.db.Model(&Migration{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return count > 0, nil
}

// RunMigration runs fn and records name in a single transaction, unless name
// is already recorded.
func (m *MigrationManager) RunMigration(name string, fn func(*gorm.DB) error) error {
	applied, err := m.HasMigration(name)
	if err != nil {
		return err
	}
	if applied {
		log.Debugf("Migration %s has already been applied, skipping", name)
		return nil
	}

	log.Debugf("Running migration: %s", name)
	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		return tx.Create(&Migration{Name: name, AppliedAt: time.Now()}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to run migration %s: %w", name, err)
	}
	log.Debugf("Successfully completed migration: %s", name)
	return nil
}
