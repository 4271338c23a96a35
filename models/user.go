package models

import "time"

// User is the community member record this service administers.
// Judge handles are what the external stat importers key on when they
// populate per-event solve stats.
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty" gorm:"index"`

	CodeforcesHandle string `json:"codeforces_handle,omitempty" gorm:"index"`
	AtcoderHandle    string `json:"atcoder_handle,omitempty"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
