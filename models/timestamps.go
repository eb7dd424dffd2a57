package models

import "time"

// Timestamps adds GORM auto-times. Rows in this service are never deleted,
// terminal statuses close them instead.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
