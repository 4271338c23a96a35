package handlers

import (
	"contest-tracker-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRanklistRoutes(app *fiber.App, trackerService *services.TrackerService, ranklistService *services.RanklistService) {
	// Trackers
	app.Post("/trackers", trackerService.CreateTracker)
	app.Get("/trackers", trackerService.GetAllTrackers)
	app.Get("/trackers/:keyword", trackerService.GetTrackerByKeyword)
	app.Put("/trackers/:id", trackerService.UpdateTracker)
	app.Delete("/trackers/:id", trackerService.DeleteTracker)

	// Ranklists
	app.Post("/trackers/:id/ranklists", ranklistService.CreateRanklist)
	app.Get("/ranklists", ranklistService.GetAllRanklists)
	app.Get("/ranklists/:id", ranklistService.GetRanklistByID)
	app.Put("/ranklists/:id", ranklistService.UpdateRanklist)
	app.Delete("/ranklists/:id", ranklistService.DeleteRanklist)

	// Event attachment (weights are per-link, scoped to this ranklist)
	app.Post("/ranklists/:id/events", ranklistService.AttachEvent)
	app.Patch("/ranklists/:id/events/:event_id", ranklistService.UpdateEventWeight)
	app.Delete("/ranklists/:id/events/:event_id", ranklistService.DetachEvent)

	// Enrollment
	app.Post("/ranklists/:id/users", ranklistService.EnrollUsers)
	app.Delete("/ranklists/:id/users/:user_id", ranklistService.RemoveUser)
}
