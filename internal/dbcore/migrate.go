package dbcore

import (
	"log"

	"github.com/plugward/plugward/internal/database/models"
	"github.com/plugward/plugward/internal/version"
	"gorm.io/gorm"
)

type schemaVersion struct {
	Id   uint   `gorm:"primaryKey"`
	Hash string `gorm:"size:64"`
}

func (schemaVersion) TableName() string {
	return "schema_version"
}

// needsMigration reports whether the stored schema hash differs from the
// running build. Dev builds always migrate.
func needsMigration(db *gorm.DB) bool {
	if version.VersionHash == "unknown" {
		return true
	}
	if !db.Migrator().HasTable(&schemaVersion{}) {
		return true
	}
	var sv schemaVersion
	if err := db.First(&sv).Error; err != nil {
		return true
	}
	return sv.Hash != version.VersionHash
}

func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Plugin{},
		&models.AuditLog{},
		&schemaVersion{},
	)
}

func updateSchemaVersion(db *gorm.DB) {
	if err := db.Where("1 = 1").Delete(&schemaVersion{}).Error; err != nil {
		log.Printf("Failed to clear schema version: %v", err)
	}
	if err := db.Create(&schemaVersion{Hash: version.VersionHash}).Error; err != nil {
		log.Printf("Failed to record schema version: %v", err)
	}
}
