package admin

import (
	"strings"

	"romaneio-backend/internal/audit"
	"romaneio-backend/internal/auth"
	"romaneio-backend/internal/database"
	"romaneio-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UserResponse struct {
	ID     uint            `json:"id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	Active bool            `json:"active"`
}

// POST /api/users (admin only)
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name, email and password are mandatory")
		}
		if body.Role != models.RoleAdmin && body.Role != models.RoleOperator {
			return fiber.NewError(fiber.StatusBadRequest, "Role must be admin or operator")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "A user with this email already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Password could not be hashed")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         body.Role,
			Active:       true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be created")
		}

		audit.Record(audit.Entry{
			UserName:    auth.UserName(c),
			EntityType:  "user",
			EntityID:    user.Email,
			Action:      models.AuditActionCreate,
			Description: "user account created",
		})

		return c.Status(fiber.StatusCreated).JSON(UserResponse{
			ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Active: user.Active,
		})
	}
}

// GET /api/users (admin only)
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("id").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Users could not be loaded")
		}

		out := make([]UserResponse, 0, len(users))
		for _, u := range users {
			out = append(out, UserResponse{
				ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Active: u.Active,
			})
		}
		return c.JSON(out)
	}
}

// PATCH /api/users/:id/active (admin only)
func SetUserActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Active bool `json:"active"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}

		user.Active = body.Active
		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be updated")
		}

		return c.JSON(UserResponse{
			ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Active: user.Active,
		})
	}
}
