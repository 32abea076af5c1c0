package db

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const MaxRecentScans = 500

func (dm *DatabaseManager) SaveScan(record *ScanRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if err := dm.historyDb.Create(record).Error; err != nil {
		log.Errorf("Failed to save scan record, type %s: %v", record.URType, err)
		return err
	}
	return nil
}

// RecentScans returns up to limit records, newest first. A non-positive or
// oversized limit is clamped to MaxRecentScans.
func (dm *DatabaseManager) RecentScans(limit int) ([]ScanRecord, error) {
	if limit <= 0 || limit > MaxRecentScans {
		limit = MaxRecentScans
	}
	var records []ScanRecord
	err := dm.historyDb.Order("created_at desc, id desc").Limit(limit).Find(&records).Error
	return records, err
}

func (dm *DatabaseManager) CountScans(urType string) (int64, error) {
	var count int64
	q := dm.historyDb.Model(&ScanRecord{})
	if urType != "" {
		q = q.Where("ur_type = ?", urType)
	}
	err := q.Count(&count).Error
	return count, err
}

// ScansByCID returns every record of the payload with the given CID, newest
// first.
func (dm *DatabaseManager) ScansByCID(id string) ([]ScanRecord, error) {
	var records []ScanRecord
	err := dm.historyDb.Where("cid = ?", id).Order("created_at desc, id desc").Find(&records).Error
	return records, err
}
