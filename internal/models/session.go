package models

import "gorm.io/gorm"

// Session represents the identity persisted between runs.
// There should only ever be one row in this table.
type Session struct {
	gorm.Model
	UserID   int    `gorm:"not null"`
	Username string `gorm:"not null"`
}
