package models

import (
	"time"

	"gorm.io/gorm"
)

// Test is the definition a session is taken against. It must not change
// shape while sessions referencing it are live.
type Test struct {
	gorm.Model
	Title            string `gorm:"not null"`
	Description      string
	TimeLimitMinutes int      `gorm:"not null;default:60"`
	MaxAttempts      *int     // nil = unlimited
	PassingMarks     *float64 // nil = every submitted attempt passes
	TotalMarks       float64  // declared total; 0 means sum of question marks

	NegativeMarking        bool
	NegativeMarkPercentage *float64 // fraction of the question marks, 0.25 when nil

	AllowReview        bool
	ShowCorrectAnswers bool
	ShuffleQuestions   bool
	ShuffleOptions     bool
	AllowSkip          bool

	IsActive    bool `gorm:"not null;default:false"`
	IsPublished bool `gorm:"not null;default:false"`
	StartDate   *time.Time
	EndDate     *time.Time

	Questions []TestQuestion `gorm:"foreignKey:TestID"`
}

type TestQuestion struct {
	ID            uint    `gorm:"primaryKey"`
	TestID        uint    `gorm:"not null;uniqueIndex:uq_test_questions_test_question"`
	QuestionID    uint    `gorm:"not null;uniqueIndex:uq_test_questions_test_question"`
	SequenceOrder int     `gorm:"not null"`
	Marks         float64 `gorm:"not null;default:1"`
	NegativeMarks *float64 // absolute deduction, overrides the test percentage
}

const QuestionTypeSingleChoice = "single_choice"

type Question struct {
	gorm.Model
	Text        string `gorm:"not null"`
	Type        string `gorm:"size:32;not null;default:single_choice"`
	Explanation string
	Options     []QuestionOption `gorm:"foreignKey:QuestionID"`
}

type QuestionOption struct {
	ID            uint   `gorm:"primaryKey"`
	QuestionID    uint   `gorm:"not null;index"`
	Text          string `gorm:"not null"`
	SequenceOrder int    `gorm:"not null"`
	IsCorrect     bool   `gorm:"not null;default:false" json:"-"`
}
