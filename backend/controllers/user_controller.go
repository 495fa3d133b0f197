package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"testengine/backend/middleware"
	"testengine/backend/models"
	"testengine/backend/services/testsession"
	"testengine/backend/utils"
)

type UserController struct {
	DB     *gorm.DB
	Engine *testsession.Service
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, engine *testsession.Service, logger *log.Logger) *UserController {
	return &UserController{DB: db, Engine: engine, Logger: logger}
}

type UpdateUserRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"omitempty,min=6"`
	Group       string `json:"group"`
	University  string `json:"university"`
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile data and attempt statistics
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var user models.User
	if err := uc.DB.WithContext(c.UserContext()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user_not_found", "User not found")
		}
		return utils.FromError(c, uc.Logger, err)
	}

	// Stats over submitted attempts
	attempts, err := uc.Engine.ListAllAttempts(c.UserContext(), userID)
	if err != nil {
		return utils.FromError(c, uc.Logger, err)
	}
	passed := 0
	best := 0.0
	for _, a := range attempts {
		if a.IsPassed {
			passed++
		}
		if a.Percentage > best {
			best = a.Percentage
		}
	}

	// Response without sensitive fields
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role,
		"group":      user.Group,
		"university": user.University,
		"created_at": user.CreatedAt,
		"stats": fiber.Map{
			"submitted_attempts": len(attempts),
			"passed_attempts":    passed,
			"best_percentage":    best,
		},
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateUserRequest true "Profile update data"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var input UpdateUserRequest
	if err := bindJSON(c, &input); err != nil {
		return utils.ValidationError(c, err)
	}

	var user models.User
	if err := uc.DB.WithContext(c.UserContext()).First(&user, middleware.CurrentUserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user_not_found", "User not found")
		}
		return utils.FromError(c, uc.Logger, err)
	}

	// Update email
	if input.Email != "" && input.Email != user.Email {
		var taken int64
		if err := uc.DB.Model(&models.User{}).
			Where("email = ? AND id <> ?", input.Email, user.ID).
			Count(&taken).Error; err != nil {
			return utils.FromError(c, uc.Logger, err)
		}
		if taken > 0 {
			return utils.Error(c, fiber.StatusConflict, "email_taken", "Email already taken")
		}
		user.Email = input.Email
	}

	// Update password
	if input.NewPassword != "" {
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Invalid old password")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashedPassword)
	}

	if input.Group != "" {
		user.Group = input.Group
	}
	if input.University != "" {
		user.University = input.University
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.FromError(c, uc.Logger, err)
	}
	return utils.Message(c, "Profile updated successfully")
}
