package models

import "time"

// RecalcJob statuses
const (
	RecalcJobPending = "pending"
	RecalcJobRunning = "running"
	RecalcJobDone    = "done"
	RecalcJobFailed  = "failed"
)

// RecalcJob queues an asynchronous score recalculation. An empty RanklistID
// means "all active ranklists". Enqueued by admin actions after weight or
// enrollment edits, drained by the recalc worker.
type RecalcJob struct {
	ID         string `json:"id" gorm:"primaryKey"`
	RanklistID string `json:"ranklist_id" gorm:"index"`
	Status     string `json:"status" gorm:"default:'pending';index"`

	RequestedBy  string `json:"requested_by,omitempty"`
	UsersUpdated int    `json:"users_updated" gorm:"default:0"`
	Error        string `json:"error,omitempty" gorm:"type:text"`

	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
