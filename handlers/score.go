package handlers

import (
	"errors"

	"contest-tracker-system/models"
	"contest-tracker-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupScoreRoutes(app *fiber.App, scoreService *services.ScoreService, ranklistService *services.RanklistService) {
	// Synchronous recalculation of one ranklist
	app.Post("/ranklists/:id/recalculate", func(c *fiber.Ctx) error {
		res, err := scoreService.RecalculateRanklistScore(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, services.ErrRanklistNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": "ranklist not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": "recalculation failed", "details": err.Error()})
		}
		return c.JSON(res)
	})

	// Synchronous sweep over every active ranklist
	app.Post("/ranklists/recalculate-all", func(c *fiber.Ctx) error {
		res, err := scoreService.RecalculateAllActiveScores(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "recalculation sweep failed", "details": err.Error()})
		}
		return c.JSON(res)
	})

	// Async: enqueue for the recalc worker
	app.Post("/ranklists/:id/recalculate/async", ranklistService.EnqueueRecalc)

	app.Get("/recalc-jobs", func(c *fiber.Ctx) error {
		var jobs []models.RecalcJob
		query := scoreService.DB.Order("created_at DESC").Limit(100)
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if err := query.Find(&jobs).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to fetch jobs"})
		}
		return c.JSON(jobs)
	})

	app.Get("/recalc-jobs/:id", func(c *fiber.Ctx) error {
		var job models.RecalcJob
		if err := scoreService.DB.First(&job, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": "job not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(&job)
	})
}
