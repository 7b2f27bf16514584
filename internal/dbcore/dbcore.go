package dbcore

import (
	"gorm.io/gorm"
)

var instance *gorm.DB

func GetDBInstance() *gorm.DB {
	return instance
}
