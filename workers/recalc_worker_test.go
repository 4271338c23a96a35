package workers

import (
	"context"
	"path/filepath"
	"testing"

	"contest-tracker-system/models"
	"contest-tracker-system/services"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestWorker(t *testing.T) (*RecalcWorker, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Tracker{},
		&models.Ranklist{},
		&models.RanklistUser{},
		&models.Event{},
		&models.EventRanklist{},
		&models.UserSolveStatOnEvent{},
		&models.UserAttendanceOnEvent{},
		&models.RecalcJob{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRecalcWorker(db, services.NewScoreService(db)), db
}

func seedRanklistWithUser(t *testing.T, db *gorm.DB) (*models.Ranklist, *models.User) {
	t.Helper()
	tracker := &models.Tracker{ID: uuid.NewString(), Name: "Camp", Keyword: "camp-" + uuid.NewString()[:8]}
	if err := db.Create(tracker).Error; err != nil {
		t.Fatalf("seed tracker: %v", err)
	}
	rl := &models.Ranklist{
		ID:              uuid.NewString(),
		TrackerID:       tracker.ID,
		Keyword:         "rl-" + uuid.NewString()[:8],
		WeightOfUpsolve: 0.5,
		IsActive:        true,
	}
	if err := db.Create(rl).Error; err != nil {
		t.Fatalf("seed ranklist: %v", err)
	}
	u := &models.User{ID: uuid.NewString(), Username: uuid.NewString(), IsActive: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	ru := &models.RanklistUser{ID: uuid.NewString(), RanklistID: rl.ID, UserID: u.ID}
	if err := db.Create(ru).Error; err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return rl, u
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	w, _ := newTestWorker(t)
	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if processed {
		t.Fatalf("expected no job processed on empty queue")
	}
}

func TestProcessNext_RunsJobAndRecordsOutcome(t *testing.T) {
	w, db := newTestWorker(t)
	rl, _ := seedRanklistWithUser(t, db)

	job := &models.RecalcJob{ID: uuid.NewString(), RanklistID: rl.ID, Status: models.RecalcJobPending}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if !processed {
		t.Fatalf("expected a job to be processed")
	}

	var done models.RecalcJob
	if err := db.First(&done, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("fetch job: %v", err)
	}
	if done.Status != models.RecalcJobDone {
		t.Fatalf("expected status done, got %q (error: %q)", done.Status, done.Error)
	}
	if done.UsersUpdated != 1 {
		t.Fatalf("expected 1 user updated, got %d", done.UsersUpdated)
	}
	if done.StartedAt == nil || done.FinishedAt == nil {
		t.Fatalf("expected started/finished timestamps to be set")
	}
}

func TestProcessNext_FailedJobRecordsError(t *testing.T) {
	w, db := newTestWorker(t)

	job := &models.RecalcJob{ID: uuid.NewString(), RanklistID: uuid.NewString(), Status: models.RecalcJobPending}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if !processed {
		t.Fatalf("expected the job to be claimed")
	}

	var failed models.RecalcJob
	if err := db.First(&failed, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("fetch job: %v", err)
	}
	if failed.Status != models.RecalcJobFailed {
		t.Fatalf("expected status failed, got %q", failed.Status)
	}
	if failed.Error == "" {
		t.Fatalf("expected error text on failed job")
	}
}

func TestProcessNext_CoalescesDuplicatePendingJobs(t *testing.T) {
	w, db := newTestWorker(t)
	rl, _ := seedRanklistWithUser(t, db)

	first := &models.RecalcJob{ID: uuid.NewString(), RanklistID: rl.ID, Status: models.RecalcJobPending}
	second := &models.RecalcJob{ID: uuid.NewString(), RanklistID: rl.ID, Status: models.RecalcJobPending}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if !processed {
		t.Fatalf("expected a job to be processed")
	}

	var pendingCount int64
	db.Model(&models.RecalcJob{}).Where("status = ?", models.RecalcJobPending).Count(&pendingCount)
	if pendingCount != 0 {
		t.Fatalf("expected duplicates to be coalesced, %d still pending", pendingCount)
	}
}
