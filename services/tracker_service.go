package services

import (
	"errors"
	"log"

	"contest-tracker-system/models"
	"contest-tracker-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrackerService struct {
	DB *gorm.DB
}

func NewTrackerService(db *gorm.DB) *TrackerService {
	return &TrackerService{DB: db}
}

func (s *TrackerService) CreateTracker(c *fiber.Ctx) error {
	type Req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	keyword, err := utils.UniqueKeyword(s.DB, "trackers", req.Name)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate keyword"})
	}
	tracker := &models.Tracker{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Keyword:     keyword,
		Description: req.Description,
	}
	if err := s.DB.Create(tracker).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create tracker"})
	}
	return c.Status(201).JSON(tracker)
}

func (s *TrackerService) GetAllTrackers(c *fiber.Ctx) error {
	var trackers []models.Tracker
	if err := s.DB.Preload("Ranklists").Order("created_at DESC").Find(&trackers).Error; err != nil {
		log.Printf("ERROR fetching trackers: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch trackers"})
	}
	return c.JSON(trackers)
}

func (s *TrackerService) GetTrackerByKeyword(c *fiber.Ctx) error {
	keyword := c.Params("keyword")
	var tracker models.Tracker
	err := s.DB.
		Preload("Ranklists", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&tracker, "keyword = ?", keyword).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tracker not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(&tracker)
}

func (s *TrackerService) UpdateTracker(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	var tracker models.Tracker
	if err := s.DB.First(&tracker, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tracker not found"})
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
	if len(updates) > 0 {
		if err := s.DB.Model(&tracker).Updates(updates).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "update failed"})
		}
	}
	return c.JSON(&tracker)
}

// DeleteTracker removes a tracker and everything scoped under it.
func (s *TrackerService) DeleteTracker(c *fiber.Ctx) error {
	id := c.Params("id")
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var ranklistIDs []string
		if err := tx.Model(&models.Ranklist{}).
			Where("tracker_id = ?", id).
			Pluck("id", &ranklistIDs).Error; err != nil {
			return err
		}
		if len(ranklistIDs) > 0 {
			if err := tx.Where("ranklist_id IN ?", ranklistIDs).Delete(&models.EventRanklist{}).Error; err != nil {
				return err
			}
			if err := tx.Where("ranklist_id IN ?", ranklistIDs).Delete(&models.RanklistUser{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tracker_id = ?", id).Delete(&models.Ranklist{}).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&models.Tracker{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(404, "tracker not found")
		}
		return nil
	})
}
