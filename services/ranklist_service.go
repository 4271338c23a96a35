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
)

type RanklistService struct {
	DB *gorm.DB
}

func NewRanklistService(db *gorm.DB) *RanklistService {
	return &RanklistService{DB: db}
}

// CreateRanklist creates a ranklist under a tracker.
func (s *RanklistService) CreateRanklist(c *fiber.Ctx) error {
	type Req struct {
		Keyword                  string  `json:"keyword"`
		Description              string  `json:"description"`
		WeightOfUpsolve          float64 `json:"weight_of_upsolve"`
		ConsiderStrictAttendance bool    `json:"consider_strict_attendance"`
		IsActive                 *bool   `json:"is_active"`
	}
	trackerID := c.Params("id")
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Keyword == "" {
		return c.Status(400).JSON(fiber.Map{"error": "keyword is required"})
	}
	// Range enforcement lives here, not in the engine.
	if req.WeightOfUpsolve < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "weight_of_upsolve must be non-negative"})
	}

	if err := s.DB.First(&models.Tracker{}, "id = ?", trackerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tracker not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	keyword, err := utils.UniqueKeyword(s.DB, "ranklists", req.Keyword)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate keyword"})
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	ranklist := &models.Ranklist{
		ID:                       uuid.NewString(),
		TrackerID:                trackerID,
		Keyword:                  keyword,
		Description:              req.Description,
		WeightOfUpsolve:          req.WeightOfUpsolve,
		ConsiderStrictAttendance: req.ConsiderStrictAttendance,
		IsActive:                 active,
	}
	if err := s.DB.Create(ranklist).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create ranklist"})
	}
	return c.Status(201).JSON(ranklist)
}

func (s *RanklistService) GetAllRanklists(c *fiber.Ctx) error {
	var ranklists []models.Ranklist
	query := s.DB.Preload("EventLinks.Event")
	if trackerID := c.Query("tracker_id"); trackerID != "" {
		query = query.Where("tracker_id = ?", trackerID)
	}
	if err := query.Order("created_at DESC").Find(&ranklists).Error; err != nil {
		log.Printf("ERROR fetching ranklists: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch ranklists"})
	}
	for i := range ranklists {
		s.DB.Model(&models.RanklistUser{}).
			Where("ranklist_id = ?", ranklists[i].ID).
			Count(&ranklists[i].EnrolledCount)
		ranklists[i].EventCount = int64(len(ranklists[i].EventLinks))
	}
	return c.JSON(ranklists)
}

// GetRanklistByID returns a ranklist with its event links and its enrollment
// ordered by score descending (the leaderboard view's own sort).
func (s *RanklistService) GetRanklistByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var ranklist models.Ranklist
	err := s.DB.
		Preload("Tracker").
		Preload("EventLinks.Event").
		Preload("RanklistUsers", func(db *gorm.DB) *gorm.DB {
			return db.Order("score DESC")
		}).
		Preload("RanklistUsers.User").
		First(&ranklist, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "ranklist not found"})
		}
		log.Printf("ERROR fetching ranklist %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	ranklist.EnrolledCount = int64(len(ranklist.RanklistUsers))
	ranklist.EventCount = int64(len(ranklist.EventLinks))
	return c.JSON(&ranklist)
}

func (s *RanklistService) UpdateRanklist(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		Description              *string  `json:"description"`
		WeightOfUpsolve          *float64 `json:"weight_of_upsolve"`
		ConsiderStrictAttendance *bool    `json:"consider_strict_attendance"`
		IsActive                 *bool    `json:"is_active"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	var ranklist models.Ranklist
	if err := s.DB.First(&ranklist, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "ranklist not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.WeightOfUpsolve != nil {
		if *req.WeightOfUpsolve < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "weight_of_upsolve must be non-negative"})
		}
		updates["weight_of_upsolve"] = *req.WeightOfUpsolve
	}
	if req.ConsiderStrictAttendance != nil {
		updates["consider_strict_attendance"] = *req.ConsiderStrictAttendance
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return c.JSON(&ranklist)
	}
	if err := s.DB.Model(&ranklist).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	return c.JSON(&ranklist)
}

func (s *RanklistService) DeleteRanklist(c *fiber.Ctx) error {
	id := c.Params("id")
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ranklist_id = ?", id).Delete(&models.EventRanklist{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ranklist_id = ?", id).Delete(&models.RanklistUser{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Ranklist{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(404, "ranklist not found")
		}
		return nil
	})
}

// AttachEvent links an event to the ranklist with a ranklist-specific weight.
// Scores are stale until the next recalculation; callers enqueue one.
func (s *RanklistService) AttachEvent(c *fiber.Ctx) error {
	ranklistID := c.Params("id")
	type Req struct {
		EventID string  `json:"event_id"`
		Weight  float64 `json:"weight"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.EventID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "event_id is required"})
	}
	if req.Weight < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "weight must be non-negative"})
	}
	if err := s.DB.First(&models.Ranklist{}, "id = ?", ranklistID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "ranklist not found"})
	}
	if err := s.DB.First(&models.Event{}, "id = ?", req.EventID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "event not found"})
	}

	var existing models.EventRanklist
	if err := s.DB.Where("event_id = ? AND ranklist_id = ?", req.EventID, ranklistID).
		First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "event already attached", "link": existing})
	}

	link := &models.EventRanklist{
		ID:         uuid.NewString(),
		EventID:    req.EventID,
		RanklistID: ranklistID,
		Weight:     req.Weight,
	}
	if err := s.DB.Create(link).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to attach event"})
	}
	return c.Status(201).JSON(link)
}

func (s *RanklistService) UpdateEventWeight(c *fiber.Ctx) error {
	ranklistID := c.Params("id")
	eventID := c.Params("event_id")
	type Req struct {
		Weight float64 `json:"weight"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Weight < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "weight must be non-negative"})
	}
	result := s.DB.Model(&models.EventRanklist{}).
		Where("ranklist_id = ? AND event_id = ?", ranklistID, eventID).
		Update("weight", req.Weight)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "event link not found"})
	}
	return c.JSON(fiber.Map{"message": "weight updated", "weight": req.Weight})
}

func (s *RanklistService) DetachEvent(c *fiber.Ctx) error {
	ranklistID := c.Params("id")
	eventID := c.Params("event_id")
	result := s.DB.Where("ranklist_id = ? AND event_id = ?", ranklistID, eventID).
		Delete(&models.EventRanklist{})
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "event link not found"})
	}
	return c.JSON(fiber.Map{"message": "event detached"})
}

// EnrollUsers adds users to the ranklist. Already-enrolled users are skipped.
// New enrollments start at score 0 until the next recalculation.
func (s *RanklistService) EnrollUsers(c *fiber.Ctx) error {
	ranklistID := c.Params("id")
	type Req struct {
		UserIDs []string `json:"user_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if len(req.UserIDs) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "user_ids is required"})
	}
	if err := s.DB.First(&models.Ranklist{}, "id = ?", ranklistID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "ranklist not found"})
	}

	enrolled := 0
	skipped := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, userID := range req.UserIDs {
			if err := tx.First(&models.User{}, "id = ?", userID).Error; err != nil {
				return fiber.NewError(400, "user not found: "+userID)
			}
			var existing models.RanklistUser
			if err := tx.Where("ranklist_id = ? AND user_id = ?", ranklistID, userID).
				First(&existing).Error; err == nil {
				skipped++
				continue
			}
			ru := models.RanklistUser{
				ID:         uuid.NewString(),
				RanklistID: ranklistID,
				UserID:     userID,
				Score:      0,
			}
			if err := tx.Create(&ru).Error; err != nil {
				return err
			}
			enrolled++
		}
		return nil
	})
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return c.Status(500).JSON(fiber.Map{"error": "enrollment failed"})
	}
	return c.Status(201).JSON(fiber.Map{"enrolled": enrolled, "skipped": skipped})
}

func (s *RanklistService) RemoveUser(c *fiber.Ctx) error {
	ranklistID := c.Params("id")
	userID := c.Params("user_id")
	result := s.DB.Where("ranklist_id = ? AND user_id = ?", ranklistID, userID).
		Delete(&models.RanklistUser{})
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "enrollment not found"})
	}
	return c.JSON(fiber.Map{"message": "user removed from ranklist"})
}

// EnqueueRecalc creates an async recalculation job for this ranklist.
func (s *RanklistService) EnqueueRecalc(c *fiber.Ctx) error {
	ranklistID := c.Params("id")
	if err := s.DB.First(&models.Ranklist{}, "id = ?", ranklistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "ranklist not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	// Reuse an existing pending job instead of stacking duplicates.
	var pending models.RecalcJob
	if err := s.DB.Where("ranklist_id = ? AND status = ?", ranklistID, models.RecalcJobPending).
		First(&pending).Error; err == nil {
		return c.JSON(fiber.Map{"message": "recalculation already queued", "job": pending})
	}

	job := &models.RecalcJob{
		ID:          uuid.NewString(),
		RanklistID:  ranklistID,
		Status:      models.RecalcJobPending,
		RequestedBy: c.Get("X-Admin-User"),
	}
	if err := s.DB.Create(job).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to enqueue recalculation"})
	}
	log.Printf("[Recalc] queued job %s for ranklist %s at %s", job.ID, ranklistID, time.Now().Format(time.RFC3339))
	return c.Status(202).JSON(job)
}
