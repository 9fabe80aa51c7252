package database

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"impostor-server/internal/entities"
)

// Init opens the sqlite database and runs the schema migrations.
func Init(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	models := []interface{}{
		&entities.GameRecord{},
		&entities.GamePlayerRecord{},
		&entities.AnalyticsEvent{},
		&entities.Category{},
		&entities.Word{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return nil, err
		}
	}

	log.Info().Str("path", path).Msg("DB init finished")
	return db, nil
}
