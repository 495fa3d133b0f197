package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionStarted    SessionStatus = "STARTED"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionAbandoned  SessionStatus = "ABANDONED"
	SessionTimeout    SessionStatus = "TIMEOUT"
	SessionTerminated SessionStatus = "TERMINATED"
)

// ActiveStatuses are the statuses covered by uq_exam_sessions_active.
var ActiveStatuses = []SessionStatus{SessionStarted, SessionInProgress}

func (s SessionStatus) IsActive() bool {
	return s == SessionStarted || s == SessionInProgress
}

func (s SessionStatus) IsTerminal() bool {
	return !s.IsActive()
}

// IsScored reports whether the session was closed with a computed result.
func (s SessionStatus) IsScored() bool {
	return s == SessionCompleted || s == SessionTimeout
}

type ExamSession struct {
	ID         uint          `gorm:"primaryKey"`
	Token      string        `gorm:"size:36;not null;uniqueIndex"`
	TestID     uint          `gorm:"not null;index"`
	StudentID  uint          `gorm:"not null;index"`
	Status     SessionStatus `gorm:"size:16;not null;index"`
	StartedAt  time.Time     `gorm:"not null"`
	ExpiresAt  time.Time     `gorm:"not null;index"`
	EndedAt    *time.Time
	IPAddress  string `gorm:"size:45"`
	UserAgent  string
	ClientMeta datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ExamAttempt struct {
	ID            uint `gorm:"primaryKey"`
	SessionID     uint `gorm:"not null;uniqueIndex"`
	TestID        uint `gorm:"not null;index"`
	StudentID     uint `gorm:"not null;index"`
	AttemptNumber int  `gorm:"not null"`

	TotalQuestions      int `gorm:"not null"`
	AnsweredQuestions   int `gorm:"not null;default:0"`
	CorrectAnswers      int `gorm:"not null;default:0"`
	WrongAnswers        int `gorm:"not null;default:0"`
	UnansweredQuestions int `gorm:"not null;default:0"`

	TotalMarksObtained  float64 `gorm:"not null;default:0"`
	TotalMarksAvailable float64 `gorm:"not null;default:0"`
	Percentage          float64 `gorm:"not null;default:0"`
	IsPassed            bool
	IsSubmitted         bool
	IsActive            bool
	TimeTakenSeconds    int64
	SubmittedAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ExamAnswer struct {
	ID               uint `gorm:"primaryKey"`
	AttemptID        uint `gorm:"not null;uniqueIndex:uq_exam_answers_attempt_question"`
	QuestionID       uint `gorm:"not null;uniqueIndex:uq_exam_answers_attempt_question"`
	DisplayOrder     int  `gorm:"not null"`
	SelectedOptionID *uint
	IsAnswered       bool
	IsCorrect        bool
	MarksObtained    float64 `gorm:"not null;default:0"`
	AnsweredAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
