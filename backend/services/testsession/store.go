package testsession

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"testengine/backend/models"
)

var errNotActive = errors.New("session is no longer active")

// forUpdate row-locks the selected session on Postgres. SQLite serialises
// writers on its own and has no FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func findSession(ctx context.Context, db *gorm.DB, testID uint, token string) (*models.ExamSession, error) {
	var sess models.ExamSession
	err := db.WithContext(ctx).
		Where("token = ? AND test_id = ?", token, testID).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, internal("load session", err)
	}
	return &sess, nil
}

// ownedSession loads the session and rejects callers that do not own it.
func ownedSession(ctx context.Context, db *gorm.DB, testID, studentID uint, token string) (*models.ExamSession, error) {
	sess, err := findSession(ctx, db, testID, token)
	if err != nil {
		return nil, err
	}
	if sess.StudentID != studentID {
		return nil, ErrAccessDenied
	}
	return sess, nil
}

func findActiveSession(ctx context.Context, db *gorm.DB, testID, studentID uint) (*models.ExamSession, error) {
	var sess models.ExamSession
	err := db.WithContext(ctx).
		Where("student_id = ? AND test_id = ? AND status IN ?", studentID, testID, models.ActiveStatuses).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal("load active session", err)
	}
	return &sess, nil
}

func attemptForSession(ctx context.Context, db *gorm.DB, sessionID uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&attempt).Error; err != nil {
		return nil, internal("load attempt", err)
	}
	return &attempt, nil
}

// closeSession moves a live session to a terminal status. It reports
// errNotActive when another request closed it first, so every session is
// closed exactly once.
func closeSession(ctx context.Context, tx *gorm.DB, sess *models.ExamSession, status models.SessionStatus, endedAt time.Time) error {
	res := tx.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND status IN ?", sess.ID, models.ActiveStatuses).
		Updates(map[string]any{"status": status, "ended_at": endedAt})
	if res.Error != nil {
		return internal("close session", res.Error)
	}
	if res.RowsAffected == 0 {
		return errNotActive
	}
	sess.Status = status
	sess.EndedAt = &endedAt
	return nil
}

// closedError explains why a terminal session rejected a call.
func closedError(status models.SessionStatus) error {
	if status.IsScored() {
		return ErrAlreadySubmitted
	}
	return ErrSessionClosed
}

func secondsBetween(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// insertSession relies on uq_exam_sessions_active: a second live session
// for the same student and test is rejected by the store even when the
// caller's count missed it.
func insertSession(ctx context.Context, tx *gorm.DB, sess *models.ExamSession) error {
	if err := tx.WithContext(ctx).Create(sess).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrSessionAlreadyActive
		}
		return internal("create session", err)
	}
	return nil
}

// insertAttempt relies on uq_exam_attempts_number. A duplicate number means
// another start for the same student and test won the race.
func insertAttempt(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if err := tx.WithContext(ctx).Create(attempt).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrSessionAlreadyActive
		}
		return internal("create attempt", err)
	}
	return nil
}
