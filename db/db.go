package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/config"
)

func NewPSQLStorage(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)

	return db, nil
}
