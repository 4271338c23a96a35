package services

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"contest-tracker-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedTracker(t *testing.T, db *gorm.DB) *models.Tracker {
	t.Helper()
	tracker := &models.Tracker{ID: uuid.NewString(), Name: "Main Camp", Keyword: "main-camp-" + uuid.NewString()[:8]}
	if err := db.Create(tracker).Error; err != nil {
		t.Fatalf("seed tracker: %v", err)
	}
	return tracker
}

func seedRanklist(t *testing.T, db *gorm.DB, trackerID string, upsolveWeight float64, strict, active bool) *models.Ranklist {
	t.Helper()
	rl := &models.Ranklist{
		ID:                       uuid.NewString(),
		TrackerID:                trackerID,
		Keyword:                  "rl-" + uuid.NewString()[:8],
		WeightOfUpsolve:          upsolveWeight,
		ConsiderStrictAttendance: strict,
		IsActive:                 active,
	}
	if err := db.Create(rl).Error; err != nil {
		t.Fatalf("seed ranklist: %v", err)
	}
	return rl
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Username: username, IsActive: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedEvent(t *testing.T, db *gorm.DB, name string, strictAttendance bool) *models.Event {
	t.Helper()
	e := &models.Event{
		ID:               uuid.NewString(),
		Name:             name,
		Keyword:          "ev-" + uuid.NewString()[:8],
		Type:             "contest",
		StartsAt:         time.Now().Add(-48 * time.Hour),
		EndsAt:           time.Now().Add(-44 * time.Hour),
		StrictAttendance: strictAttendance,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed event %s: %v", name, err)
	}
	return e
}

func enroll(t *testing.T, db *gorm.DB, ranklistID, userID string) {
	t.Helper()
	ru := &models.RanklistUser{ID: uuid.NewString(), RanklistID: ranklistID, UserID: userID}
	if err := db.Create(ru).Error; err != nil {
		t.Fatalf("enroll user: %v", err)
	}
}

func linkEvent(t *testing.T, db *gorm.DB, ranklistID, eventID string, weight float64) {
	t.Helper()
	link := &models.EventRanklist{ID: uuid.NewString(), EventID: eventID, RanklistID: ranklistID, Weight: weight}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("link event: %v", err)
	}
}

func seedStat(t *testing.T, db *gorm.DB, userID, eventID string, solves, upsolves int64, participated bool) {
	t.Helper()
	stat := &models.UserSolveStatOnEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		EventID:      eventID,
		SolveCount:   solves,
		UpsolveCount: upsolves,
		Participated: participated,
	}
	if err := db.Create(stat).Error; err != nil {
		t.Fatalf("seed stat: %v", err)
	}
}

func seedAttendance(t *testing.T, db *gorm.DB, userID, eventID string) {
	t.Helper()
	a := &models.UserAttendanceOnEvent{ID: uuid.NewString(), UserID: userID, EventID: eventID}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed attendance: %v", err)
	}
}

func storedScore(t *testing.T, db *gorm.DB, ranklistID, userID string) float64 {
	t.Helper()
	var ru models.RanklistUser
	if err := db.Where("ranklist_id = ? AND user_id = ?", ranklistID, userID).First(&ru).Error; err != nil {
		t.Fatalf("fetch stored score: %v", err)
	}
	return ru.Score
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
