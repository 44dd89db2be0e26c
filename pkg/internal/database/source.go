package database

import (
	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var C *gorm.DB

func NewSource() error {
	var err error
	dsn := viper.GetString("audit.database_path")
	if dsn == "" {
		dsn = "audit.db"
	}

	C, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	return err
}
