// Package seed loads a development fixture of users, tests and
// subscriptions from a JSON file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"testengine/backend/models"
)

type Fixture struct {
	Users         []UserInput         `json:"users" validate:"dive"`
	Tests         []TestInput         `json:"tests" validate:"dive"`
	Subscriptions []SubscriptionInput `json:"subscriptions" validate:"dive"`
}

type UserInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student admin"`
}

type TestInput struct {
	Title                  string          `json:"title" validate:"required"`
	Description            string          `json:"description"`
	TimeLimitMinutes       int             `json:"time_limit_minutes" validate:"required,min=1"`
	MaxAttempts            *int            `json:"max_attempts" validate:"omitempty,min=1"`
	PassingMarks           *float64        `json:"passing_marks" validate:"omitempty,min=0"`
	TotalMarks             float64         `json:"total_marks" validate:"min=0"`
	NegativeMarking        bool            `json:"negative_marking"`
	NegativeMarkPercentage *float64        `json:"negative_mark_percentage" validate:"omitempty,min=0,max=1"`
	AllowReview            bool            `json:"allow_review"`
	ShowCorrectAnswers     bool            `json:"show_correct_answers"`
	ShuffleQuestions       bool            `json:"shuffle_questions"`
	ShuffleOptions         bool            `json:"shuffle_options"`
	AllowSkip              bool            `json:"allow_skip"`
	Published              bool            `json:"published"`
	Questions              []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type QuestionInput struct {
	Text          string        `json:"text" validate:"required"`
	Marks         float64       `json:"marks" validate:"gt=0"`
	NegativeMarks *float64      `json:"negative_marks" validate:"omitempty,min=0"`
	Options       []OptionInput `json:"options" validate:"required,min=2,dive"`
}

type OptionInput struct {
	Text    string `json:"text" validate:"required"`
	Correct bool   `json:"correct"`
}

type SubscriptionInput struct {
	Username  string `json:"username" validate:"required"`
	TestTitle string `json:"test_title" validate:"required"`
	ValidDays int    `json:"valid_days" validate:"min=0"`
}

type Summary struct {
	Users         int
	Tests         int
	Subscriptions int
}

var validate = validator.New()

// LoadFile parses and validates a fixture file.
func LoadFile(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx Fixture
	if err := sonic.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	if err := Validate(&fx); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks field rules and that every question has exactly one
// correct option.
func Validate(fx *Fixture) error {
	if err := validate.Struct(fx); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}
	for _, t := range fx.Tests {
		for i, q := range t.Questions {
			correct := 0
			for _, o := range q.Options {
				if o.Correct {
					correct++
				}
			}
			if correct != 1 {
				return fmt.Errorf("test %q question %d: want exactly one correct option, got %d", t.Title, i+1, correct)
			}
		}
	}
	return nil
}

// Apply writes the fixture in one transaction. Users and tests that already
// exist (by username and title) are left untouched, so Apply is safe to run
// on every boot.
func Apply(ctx context.Context, db *gorm.DB, fx *Fixture) (Summary, error) {
	var sum Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, in := range fx.Users {
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", in.Username, err)
			}
			role := in.Role
			if role == "" {
				role = models.RoleStudent
			}
			user := models.User{Username: in.Username, Email: in.Email, PasswordHash: string(hash), Role: role}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
			if res.Error != nil {
				return fmt.Errorf("create user %s: %w", in.Username, res.Error)
			}
			sum.Users += int(res.RowsAffected)
		}

		for _, in := range fx.Tests {
			created, err := createTest(tx, in)
			if err != nil {
				return err
			}
			if created {
				sum.Tests++
			}
		}

		now := time.Now().UTC()
		for _, in := range fx.Subscriptions {
			var user models.User
			if err := tx.Where("username = ?", in.Username).First(&user).Error; err != nil {
				return fmt.Errorf("subscription user %s: %w", in.Username, err)
			}
			var test models.Test
			if err := tx.Where("title = ?", in.TestTitle).First(&test).Error; err != nil {
				return fmt.Errorf("subscription test %q: %w", in.TestTitle, err)
			}

			var existing int64
			if err := tx.Model(&models.Subscription{}).
				Where("user_id = ? AND test_id = ?", user.ID, test.ID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			sub := models.Subscription{UserID: user.ID, TestID: test.ID, Status: models.SubscriptionActive, ValidFrom: &now}
			if in.ValidDays > 0 {
				until := now.AddDate(0, 0, in.ValidDays)
				sub.ValidUntil = &until
			}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
			sum.Subscriptions++
		}
		return nil
	})
	return sum, err
}

func createTest(tx *gorm.DB, in TestInput) (bool, error) {
	var existing models.Test
	err := tx.Where("title = ?", in.Title).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	test := models.Test{
		Title:                  in.Title,
		Description:            in.Description,
		TimeLimitMinutes:       in.TimeLimitMinutes,
		MaxAttempts:            in.MaxAttempts,
		PassingMarks:           in.PassingMarks,
		TotalMarks:             in.TotalMarks,
		NegativeMarking:        in.NegativeMarking,
		NegativeMarkPercentage: in.NegativeMarkPercentage,
		AllowReview:            in.AllowReview,
		ShowCorrectAnswers:     in.ShowCorrectAnswers,
		ShuffleQuestions:       in.ShuffleQuestions,
		ShuffleOptions:         in.ShuffleOptions,
		AllowSkip:              in.AllowSkip,
		IsActive:               in.Published,
		IsPublished:            in.Published,
	}
	if err := tx.Create(&test).Error; err != nil {
		return false, fmt.Errorf("create test %q: %w", in.Title, err)
	}

	for i, qin := range in.Questions {
		q := models.Question{Text: qin.Text, Type: models.QuestionTypeSingleChoice}
		for j, o := range qin.Options {
			q.Options = append(q.Options, models.QuestionOption{Text: o.Text, SequenceOrder: j + 1, IsCorrect: o.Correct})
		}
		if err := tx.Create(&q).Error; err != nil {
			return false, fmt.Errorf("create question: %w", err)
		}
		link := models.TestQuestion{
			TestID:        test.ID,
			QuestionID:    q.ID,
			SequenceOrder: i + 1,
			Marks:         qin.Marks,
			NegativeMarks: qin.NegativeMarks,
		}
		if err := tx.Create(&link).Error; err != nil {
			return false, fmt.Errorf("link question: %w", err)
		}
	}
	return true, nil
}
