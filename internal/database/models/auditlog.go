package models

// AuditLog records a security-relevant event: registrations, rejections,
// permission denials, sandbox violations and slow operations.
type AuditLog struct {
	Uuid     string  `json:"uuid" gorm:"primaryKey;size:36"`
	PluginId string  `json:"plugin_id" gorm:"size:64;index"`
	Category string  `json:"category" gorm:"size:32;index"` // registration, rejection, permission, sandbox, execution
	Message  string  `json:"message" gorm:"size:255"`
	Detail   string  `json:"detail" gorm:"type:text"`
	Time     UTCTime `json:"time" gorm:"index"`
}
