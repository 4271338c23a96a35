package models

import "time"

// Ranklist is a weighted leaderboard scoped to the events attached to it
// and the users enrolled in it.
type Ranklist struct {
	ID          string `json:"id" gorm:"primaryKey"`
	TrackerID   string `json:"tracker_id" gorm:"not null;index"`
	Keyword     string `json:"keyword" gorm:"not null;index"`
	Description string `json:"description" gorm:"type:text"`

	// WeightOfUpsolve scales the upsolve term of every event contribution.
	// The admin UI keeps it in [0,1]; the engine takes it as stored.
	WeightOfUpsolve          float64 `json:"weight_of_upsolve" gorm:"default:0"`
	ConsiderStrictAttendance bool    `json:"consider_strict_attendance" gorm:"default:false"`
	IsActive                 bool    `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Tracker       Tracker         `json:"tracker,omitempty" gorm:"foreignKey:TrackerID"`
	RanklistUsers []RanklistUser  `json:"ranklist_users,omitempty" gorm:"foreignKey:RanklistID"`
	EventLinks    []EventRanklist `json:"event_links,omitempty" gorm:"foreignKey:RanklistID"`

	// Calculated fields (not stored in DB)
	EnrolledCount int64 `json:"enrolled_count,omitempty" gorm:"-"`
	EventCount    int64 `json:"event_count,omitempty" gorm:"-"`
}

// RanklistUser enrolls a user into a ranklist. Score is owned entirely by
// the recalculation engine: every run overwrites it for every enrolled user.
type RanklistUser struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	RanklistID string  `json:"ranklist_id" gorm:"not null;uniqueIndex:idx_ranklist_user"`
	UserID     string  `json:"user_id" gorm:"not null;uniqueIndex:idx_ranklist_user"`
	Score      float64 `json:"score" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// EventRanklist attaches an event to a ranklist with the weight that event's
// contribution carries inside this ranklist only.
type EventRanklist struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	EventID    string  `json:"event_id" gorm:"not null;uniqueIndex:idx_event_ranklist"`
	RanklistID string  `json:"ranklist_id" gorm:"not null;uniqueIndex:idx_event_ranklist"`
	Weight     float64 `json:"weight" gorm:"default:1"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Event Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
}
