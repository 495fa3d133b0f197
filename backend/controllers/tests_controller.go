package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"testengine/backend/middleware"
	"testengine/backend/models"
	"testengine/backend/utils"
)

// AccessChecker decides whether a student may take a test
type AccessChecker interface {
	HasAccess(ctx context.Context, studentID, testID uint) (bool, error)
}

type TestsController struct {
	DB     *gorm.DB
	Access AccessChecker
	Logger *log.Logger
}

func NewTestsController(db *gorm.DB, access AccessChecker, logger *log.Logger) *TestsController {
	return &TestsController{DB: db, Access: access, Logger: logger}
}

type TestCard struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Questions        int        `json:"questions"`
	MaxAttempts      *int       `json:"max_attempts,omitempty"`
	AttemptsUsed     int64      `json:"attempts_used"`
	AttemptsLeft     *int64     `json:"attempts_left,omitempty"`
	PassingMarks     *float64   `json:"passing_marks,omitempty"`
	NegativeMarking  bool       `json:"negative_marking"`
	AllowReview      bool       `json:"allow_review"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}

// GetAvailableTests godoc
// @Summary Published tests the user has access to
// @Tags tests
// @Produce json
// @Success 200 {array} TestCard
// @Failure 401 {object} utils.ErrorResponse
// @Router /tests [get]
func (tc *TestsController) GetAvailableTests(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	ctx := c.UserContext()

	var tests []models.Test
	if err := tc.DB.WithContext(ctx).
		Preload("Questions").
		Where("is_published = ? AND is_active = ?", true, true).
		Order("id").
		Find(&tests).Error; err != nil {
		return utils.FromError(c, tc.Logger, err)
	}

	cards := make([]TestCard, 0, len(tests))
	for _, test := range tests {
		ok, err := tc.Access.HasAccess(ctx, userID, test.ID)
		if err != nil {
			return utils.FromError(c, tc.Logger, err)
		}
		if !ok {
			continue
		}
		card, err := tc.card(ctx, &test, userID)
		if err != nil {
			return utils.FromError(c, tc.Logger, err)
		}
		cards = append(cards, card)
	}

	return utils.Success(c, fiber.StatusOK, cards)
}

// GetTestDetails godoc
// @Summary Test rules and the user's attempt budget
// @Tags tests
// @Produce json
// @Param testId path int true "Test ID"
// @Success 200 {object} TestCard
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /tests/{testId} [get]
func (tc *TestsController) GetTestDetails(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	userID := middleware.CurrentUserID(c)
	ctx := c.UserContext()

	var test models.Test
	err := tc.DB.WithContext(ctx).Preload("Questions").First(&test, testID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !test.IsPublished) {
		return utils.Error(c, fiber.StatusNotFound, "test_not_found", "Test not found")
	}
	if err != nil {
		return utils.FromError(c, tc.Logger, err)
	}

	allowed, err := tc.Access.HasAccess(ctx, userID, test.ID)
	if err != nil {
		return utils.FromError(c, tc.Logger, err)
	}
	if !allowed {
		return utils.Error(c, fiber.StatusForbidden, "access_denied", "No access to this test")
	}

	card, err := tc.card(ctx, &test, userID)
	if err != nil {
		return utils.FromError(c, tc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, card)
}

func (tc *TestsController) card(ctx context.Context, test *models.Test, userID uint) (TestCard, error) {
	var used int64
	if err := tc.DB.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("test_id = ? AND student_id = ?", test.ID, userID).
		Count(&used).Error; err != nil {
		return TestCard{}, err
	}

	card := TestCard{
		ID:               test.ID,
		Title:            test.Title,
		Description:      test.Description,
		TimeLimitMinutes: test.TimeLimitMinutes,
		Questions:        len(test.Questions),
		AttemptsUsed:     used,
		PassingMarks:     test.PassingMarks,
		NegativeMarking:  test.NegativeMarking,
		AllowReview:      test.AllowReview,
		StartDate:        test.StartDate,
		EndDate:          test.EndDate,
	}
	// A limit of 0 or less means unlimited
	if test.MaxAttempts != nil && *test.MaxAttempts > 0 {
		card.MaxAttempts = test.MaxAttempts
		left := int64(*test.MaxAttempts) - used
		if left < 0 {
			left = 0
		}
		card.AttemptsLeft = &left
	}
	return card, nil
}
