package models

import (
	"fmt"

	"gorm.io/gorm"
)

// storeGuards are the uniqueness rules the engine relies on for
// correctness under concurrent requests. The partial index syntax is
// shared by Postgres and SQLite.
var storeGuards = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_exam_sessions_active
		ON exam_sessions (student_id, test_id)
		WHERE status IN ('STARTED', 'IN_PROGRESS')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_exam_attempts_number
		ON exam_attempts (student_id, test_id, attempt_number)`,
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Subscription{},
		&Test{},
		&TestQuestion{},
		&Question{},
		&QuestionOption{},
		&ExamSession{},
		&ExamAttempt{},
		&ExamAnswer{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range storeGuards {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create store guard: %w", err)
		}
	}
	return nil
}
