package handlers

import (
	"contest-tracker-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService, userService *services.UserService) {
	// Events
	app.Post("/events", eventService.CreateEvent)
	app.Get("/events", eventService.GetAllEvents)
	app.Get("/events/:id", eventService.GetEventByID)
	app.Put("/events/:id", eventService.UpdateEvent)
	app.Delete("/events/:id", eventService.DeleteEvent)

	// Attendance + per-event solve facts
	app.Post("/events/:id/attendance", eventService.RecordAttendance)
	app.Put("/events/:id/stats/:user_id", eventService.UpsertSolveStat)
	app.Put("/events/:id/stats", eventService.BulkUpsertSolveStats)

	// Users
	app.Post("/users", userService.CreateUser)
	app.Get("/users/search", userService.SearchUsers)
	app.Get("/users/:id", userService.GetUserByID)
	app.Put("/users/:id", userService.UpdateUser)
}
