package db

import (
	"os"
	"path/filepath"

	"github.com/goatnetwork/qlink/internal/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const historyDbName = "scan_history.db"

type DatabaseManager struct {
	historyDb *gorm.DB
}

// NewDatabaseManager opens the history database under config.AppConfig.DbDir
// and exits the process when it cannot.
func NewDatabaseManager() *DatabaseManager {
	dm, err := OpenDatabaseManager(config.AppConfig.DbDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return dm
}

func OpenDatabaseManager(dbDir string) (*DatabaseManager, error) {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		return nil, err
	}

	historyPath := filepath.Join(dbDir, historyDbName)
	historyDb, err := gorm.Open(sqlite.Open(historyPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("History database connected successfully, path: %s", historyPath)

	dm := &DatabaseManager{historyDb: historyDb}
	if err := dm.autoMigrate(); err != nil {
		return nil, err
	}
	log.Debugf("Database migration completed successfully")
	return dm, nil
}

func (dm *DatabaseManager) GetHistoryDB() *gorm.DB {
	return dm.historyDb
}

func (dm *DatabaseManager) Close() error {
	sqlDb, err := dm.historyDb.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
