package migrations

import (
	"gorm.io/gorm"
)

// AddScanRecordTypeCreatedIndex speeds up per-type history queries.
func AddScanRecordTypeCreatedIndex(tx *gorm.DB) error {
	return tx.Exec("CREATE INDEX IF NOT EXISTS idx_scan_records_type_created ON scan_records (ur_type, created_at)").Error
}
