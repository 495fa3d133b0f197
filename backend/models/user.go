package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:student"` // student, admin
	Group        string
	University   string
	IsActive     bool `gorm:"not null;default:true"`
}

// Subscription grants a student access to one test until ValidUntil.
// Rows are written by the billing side; the engine only reads them.
type Subscription struct {
	gorm.Model
	UserID     uint   `gorm:"not null;index:idx_subscription_user_test"`
	TestID     uint   `gorm:"not null;index:idx_subscription_user_test"`
	Status     string `gorm:"size:16;not null;default:active"` // active, cancelled, expired
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

const SubscriptionActive = "active"
