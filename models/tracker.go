package models

import "time"

// Tracker groups related ranklists (e.g. one tracker per semester or camp).
type Tracker struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Keyword     string    `json:"keyword" gorm:"uniqueIndex;not null"` // URL slug
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Ranklists []Ranklist `json:"ranklists,omitempty" gorm:"foreignKey:TrackerID"`
}
