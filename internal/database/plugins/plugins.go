package plugins

import (
	"encoding/json"
	"fmt"

	"github.com/plugward/plugward/internal/database/models"
	"github.com/plugward/plugward/internal/dbcore"
	"github.com/plugward/plugward/internal/manifest"
)

// Save persists a registered plugin, overwriting any previous row with the
// same id.
func Save(rec *models.Plugin) error {
	db := dbcore.GetDBInstance()
	rec.UpdatedAt = models.Now()
	if rec.CreatedAt.Time().IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	return db.Save(rec).Error
}

func Get(id string) (*models.Plugin, error) {
	db := dbcore.GetDBInstance()
	var rec models.Plugin
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func List() ([]models.Plugin, error) {
	db := dbcore.GetDBInstance()
	var recs []models.Plugin
	if err := db.Order("created_at desc").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func Delete(id string) error {
	db := dbcore.GetDBInstance()
	return db.Where("id = ?", id).Delete(&models.Plugin{}).Error
}

func SetEnabled(id string, enabled bool) error {
	db := dbcore.GetDBInstance()
	return db.Model(&models.Plugin{}).Where("id = ?", id).Update("enabled", enabled).Error
}

// UpdateGrants stores the plugin's effective permission record as JSON.
func UpdateGrants(id string, grants any) error {
	raw, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("encode grants: %w", err)
	}
	db := dbcore.GetDBInstance()
	return db.Model(&models.Plugin{}).Where("id = ?", id).Update("grants", string(raw)).Error
}

// Manifest decodes the stored manifest body of a plugin row.
func Manifest(rec *models.Plugin) (*manifest.Manifest, error) {
	var m manifest.Manifest
	if err := json.Unmarshal([]byte(rec.Body), &m); err != nil {
		return nil, fmt.Errorf("decode manifest for %s: %w", rec.Id, err)
	}
	return &m, nil
}
