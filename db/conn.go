// Package db contains things related to SQLite
package db

import (
	"fmt"
	"os"
	"safedrop/file-api/model"
	"safedrop/file-api/util"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	// If running in a docker container don't allow the sqlite file to be created.
	// The host should instead mount it using volumes
	if util.IsRunningInDocker() {
		if _, err := os.Stat("database.db"); os.IsNotExist(err) {
			return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/database.db")
		}
	}

	db, err := gorm.Open(sqlite.Open("database.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.File{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
