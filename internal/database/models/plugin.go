package models

// Plugin is a registered plugin manifest together with the outcome of its
// admission checks. Body holds the manifest JSON exactly as accepted.
type Plugin struct {
	Id              string  `json:"id" gorm:"primaryKey;size:64"`
	Name            string  `json:"name" gorm:"size:128"`
	Version         string  `json:"version" gorm:"size:32"`
	Source          string  `json:"source" gorm:"size:64;index"`
	Body            string  `json:"body" gorm:"type:text"`
	ValidationLevel string  `json:"validation_level" gorm:"size:16"`
	TrustScore      float64 `json:"trust_score"`
	RiskLevel       string  `json:"risk_level" gorm:"size:16"`
	Grants          string  `json:"grants" gorm:"type:text"`
	Enabled         bool    `json:"enabled" gorm:"default:true"`
	CreatedAt       UTCTime `json:"created_at"`
	UpdatedAt       UTCTime `json:"updated_at"`
}
