package services

import (
	"errors"
	"strconv"
	"strings"

	"contest-tracker-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) CreateUser(c *fiber.Ctx) error {
	type Req struct {
		Username         string `json:"username"`
		FullName         string `json:"full_name"`
		Email            string `json:"email"`
		CodeforcesHandle string `json:"codeforces_handle"`
		AtcoderHandle    string `json:"atcoder_handle"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Username == "" {
		return c.Status(400).JSON(fiber.Map{"error": "username is required"})
	}
	var existing models.User
	if err := s.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "username already taken"})
	}
	user := &models.User{
		ID:               uuid.NewString(),
		Username:         req.Username,
		FullName:         req.FullName,
		Email:            req.Email,
		CodeforcesHandle: req.CodeforcesHandle,
		AtcoderHandle:    req.AtcoderHandle,
		IsActive:         true,
	}
	if err := s.DB.Create(user).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create user"})
	}
	return c.Status(201).JSON(user)
}

// SearchUsers filters by username, name or judge handle.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	db := s.DB.Model(&models.User{}).Limit(limit).Order("username ASC")
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(codeforces_handle) LIKE ?",
			searchTerm, searchTerm, searchTerm,
		)
	}
	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}
	return c.JSON(users)
}

func (s *UserService) GetUserByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(&user)
}

func (s *UserService) UpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		FullName         *string `json:"full_name"`
		Email            *string `json:"email"`
		CodeforcesHandle *string `json:"codeforces_handle"`
		AtcoderHandle    *string `json:"atcoder_handle"`
		IsActive         *bool   `json:"is_active"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.CodeforcesHandle != nil {
		updates["codeforces_handle"] = *req.CodeforcesHandle
	}
	if req.AtcoderHandle != nil {
		updates["atcoder_handle"] = *req.AtcoderHandle
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "update failed"})
		}
	}
	return c.JSON(&user)
}
