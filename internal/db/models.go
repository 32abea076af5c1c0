package db

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goatnetwork/qlink/internal/db/migrations"
	"github.com/goatnetwork/qlink/internal/keystone"
)

// ScanRecord is one decoded payload.
type ScanRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	URType    string    `gorm:"column:ur_type;not null;index" json:"ur_type"`
	Encoding  string    `gorm:"not null" json:"encoding"`
	Variant   string    `gorm:"not null" json:"variant"` // message variant, or "error" when the body did not decode
	BytesHex  string    `gorm:"not null" json:"bytes_hex"`
	CID       string    `gorm:"column:cid;not null;index" json:"cid"`
	Multipart bool      `gorm:"not null" json:"multipart"`
	Parts     int       `gorm:"not null" json:"parts"` // fragments received, 1 for single-part
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

const VariantError = "error"

func NewScanRecord(p keystone.Payload, parts int) *ScanRecord {
	variant := VariantError
	if m, err := p.Message(); err == nil {
		variant = m.Variant()
	}
	id, _ := PayloadCID(p.Data)
	return &ScanRecord{
		URType:    p.Type,
		Encoding:  p.Encoding.String(),
		Variant:   variant,
		BytesHex:  hex.EncodeToString(p.Data),
		CID:       id,
		Multipart: p.Metadata.Multipart,
		Parts:     parts,
	}
}

func (dm *DatabaseManager) autoMigrate() error {
	if err := dm.historyDb.AutoMigrate(&ScanRecord{}); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}

	mm := migrations.NewMigrationManager(dm.historyDb)
	if err := mm.EnsureMigrationTable(); err != nil {
		return err
	}
	return mm.RunMigration("20261018_add_scanrecord_type_created_index", migrations.AddScanRecordTypeCreatedIndex)
}
