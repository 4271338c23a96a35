package models

import "time"

// Event is a single contest (Codeforces round, AtCoder contest, onsite event).
type Event struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Keyword     string    `json:"keyword" gorm:"uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Link        string    `json:"link"` // judge contest URL
	Type        string    `json:"type" gorm:"default:'contest'"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`

	// StrictAttendance means solves without live participation or a check-in
	// are downgraded to upsolves on ranklists that opt into the policy.
	StrictAttendance  bool `json:"strict_attendance" gorm:"default:false"`
	OpenForAttendance bool `json:"open_for_attendance" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
