package services

import (
	"errors"
	"log"
	"time"

	"contest-tracker-system/models"
	"contest-tracker-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

func (s *EventService) CreateEvent(c *fiber.Ctx) error {
	type Req struct {
		Name              string `json:"name"`
		Description       string `json:"description"`
		Link              string `json:"link"`
		Type              string `json:"type"`
		StartsAt          string `json:"starts_at"` // RFC3339
		EndsAt            string `json:"ends_at"`
		StrictAttendance  bool   `json:"strict_attendance"`
		OpenForAttendance bool   `json:"open_for_attendance"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" || req.StartsAt == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and starts_at are required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid starts_at (use RFC3339)"})
	}
	var endsAt time.Time
	if req.EndsAt != "" {
		endsAt, err = time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid ends_at (use RFC3339)"})
		}
		if !endsAt.After(startsAt) {
			return c.Status(400).JSON(fiber.Map{"error": "ends_at must be after starts_at"})
		}
	}

	keyword, err := utils.UniqueKeyword(s.DB, "events", req.Name)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate keyword"})
	}

	eventType := req.Type
	if eventType == "" {
		eventType = "contest"
	}
	event := &models.Event{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Keyword:           keyword,
		Description:       req.Description,
		Link:              req.Link,
		Type:              eventType,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		StrictAttendance:  req.StrictAttendance,
		OpenForAttendance: req.OpenForAttendance,
	}
	if err := s.DB.Create(event).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create event"})
	}
	return c.Status(201).JSON(event)
}

func (s *EventService) GetAllEvents(c *fiber.Ctx) error {
	var events []models.Event
	if err := s.DB.Order("starts_at DESC").Find(&events).Error; err != nil {
		log.Printf("ERROR fetching events: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch events"})
	}
	return c.JSON(events)
}

func (s *EventService) GetEventByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(&event)
}

func (s *EventService) UpdateEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		Name              *string `json:"name"`
		Description       *string `json:"description"`
		Link              *string `json:"link"`
		StartsAt          *string `json:"starts_at"`
		EndsAt            *string `json:"ends_at"`
		StrictAttendance  *bool   `json:"strict_attendance"`
		OpenForAttendance *bool   `json:"open_for_attendance"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Link != nil {
		updates["link"] = *req.Link
	}
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid starts_at (use RFC3339)"})
		}
		updates["starts_at"] = t
	}
	if req.EndsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid ends_at (use RFC3339)"})
		}
		updates["ends_at"] = t
	}
	if req.StrictAttendance != nil {
		updates["strict_attendance"] = *req.StrictAttendance
	}
	if req.OpenForAttendance != nil {
		updates["open_for_attendance"] = *req.OpenForAttendance
	}
	if len(updates) > 0 {
		if err := s.DB.Model(&event).Updates(updates).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "update failed"})
		}
	}
	return c.JSON(&event)
}

func (s *EventService) DeleteEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventRanklist{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.UserSolveStatOnEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.UserAttendanceOnEvent{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Event{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(404, "event not found")
		}
		return nil
	})
}

// RecordAttendance checks a user in for an event. Attendance closes once the
// event window ends.
func (s *EventService) RecordAttendance(c *fiber.Ctx) error {
	eventID := c.Params("id")
	type Req struct {
		UserID string `json:"user_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "user_id is required"})
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if !event.OpenForAttendance {
		return c.Status(403).JSON(fiber.Map{"error": "event is not open for attendance"})
	}
	if !event.EndsAt.IsZero() && event.EndsAt.Before(time.Now()) {
		return c.Status(403).JSON(fiber.Map{"error": "attendance window has closed"})
	}
	if err := s.DB.First(&models.User{}, "id = ?", req.UserID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}

	var existing models.UserAttendanceOnEvent
	if err := s.DB.Where("user_id = ? AND event_id = ?", req.UserID, eventID).
		First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "attendance already recorded", "attendance": existing})
	}

	attendance := &models.UserAttendanceOnEvent{
		ID:      uuid.NewString(),
		UserID:  req.UserID,
		EventID: eventID,
	}
	if err := s.DB.Create(attendance).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to record attendance"})
	}
	return c.Status(201).JSON(attendance)
}

// UpsertSolveStat is the manual-correction path for a single user's facts on
// an event. The importers use the bulk endpoint below.
func (s *EventService) UpsertSolveStat(c *fiber.Ctx) error {
	eventID := c.Params("id")
	userID := c.Params("user_id")
	type Req struct {
		SolveCount   int64 `json:"solve_count"`
		UpsolveCount int64 `json:"upsolve_count"`
		Participated bool  `json:"participated"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.SolveCount < 0 || req.UpsolveCount < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "counts must be non-negative"})
	}
	if err := s.DB.First(&models.Event{}, "id = ?", eventID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "event not found"})
	}
	if err := s.DB.First(&models.User{}, "id = ?", userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}

	stat := models.UserSolveStatOnEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		EventID:      eventID,
		SolveCount:   req.SolveCount,
		UpsolveCount: req.UpsolveCount,
		Participated: req.Participated,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"solve_count", "upsolve_count", "participated", "updated_at",
		}),
	}).Create(&stat).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to upsert solve stat"})
	}
	return c.JSON(&stat)
}

// BulkUpsertSolveStats mirrors the importer output contract: one upsert per
// (user, event) row, all in a single statement.
func (s *EventService) BulkUpsertSolveStats(c *fiber.Ctx) error {
	eventID := c.Params("id")
	type StatRow struct {
		UserID       string `json:"user_id"`
		SolveCount   int64  `json:"solve_count"`
		UpsolveCount int64  `json:"upsolve_count"`
		Participated bool   `json:"participated"`
	}
	type Req struct {
		Stats []StatRow `json:"stats"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if len(req.Stats) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "stats is required"})
	}
	if err := s.DB.First(&models.Event{}, "id = ?", eventID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "event not found"})
	}

	stats := make([]models.UserSolveStatOnEvent, 0, len(req.Stats))
	for _, row := range req.Stats {
		if row.UserID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "user_id is required on every stat row"})
		}
		if row.SolveCount < 0 || row.UpsolveCount < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "counts must be non-negative"})
		}
		stats = append(stats, models.UserSolveStatOnEvent{
			ID:           uuid.NewString(),
			UserID:       row.UserID,
			EventID:      eventID,
			SolveCount:   row.SolveCount,
			UpsolveCount: row.UpsolveCount,
			Participated: row.Participated,
		})
	}

	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"solve_count", "upsolve_count", "participated", "updated_at",
		}),
	}).Create(&stats).Error
	if err != nil {
		log.Printf("ERROR bulk upserting %d stats for event %s: %v", len(stats), eventID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to upsert solve stats"})
	}
	return c.JSON(fiber.Map{"upserted": len(stats)})
}
