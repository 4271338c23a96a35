package models

import "time"

// UserSolveStatOnEvent holds the raw per-(user, event) facts the score engine
// consumes. Rows are upserted by the external judge-stat importers and can be
// corrected by admins; the engine never writes them.
type UserSolveStatOnEvent struct {
	ID      string `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"not null;uniqueIndex:idx_user_event_stat"`
	EventID string `json:"event_id" gorm:"not null;uniqueIndex:idx_user_event_stat"`

	SolveCount   int64 `json:"solve_count" gorm:"default:0"`
	UpsolveCount int64 `json:"upsolve_count" gorm:"default:0"`
	// Participated is true when the user took part during the official contest
	// window, as opposed to only practicing afterwards.
	Participated bool `json:"participated" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserAttendanceOnEvent records that a user checked in for an event. A separate
// signal from Participated: onsite check-in vs. judge-reported participation.
type UserAttendanceOnEvent struct {
	ID      string `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"not null;uniqueIndex:idx_user_event_attendance"`
	EventID string `json:"event_id" gorm:"not null;uniqueIndex:idx_user_event_attendance"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
