package testsession

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"testengine/backend/models"
)

// StartSession opens a new timed session and attempt for the student.
// A student holds at most one live session per test; the store enforces
// this through uq_exam_sessions_active, so concurrent starts yield exactly
// one winner and Conflict for the rest.
func (s *Service) StartSession(ctx context.Context, testID, studentID uint, meta ClientMeta) (*SessionHandle, error) {
	now := s.clock()

	def, err := s.defs.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := checkAvailable(def, now); err != nil {
		return nil, err
	}
	if err := s.checkEligible(ctx, testID, studentID); err != nil {
		return nil, err
	}
	if err := s.expireStale(ctx, def, studentID, now); err != nil {
		return nil, err
	}

	token := s.token()
	extra, err := encodeMeta(meta)
	if err != nil {
		return nil, internal("encode client meta", err)
	}

	var (
		sess    models.ExamSession
		attempt models.ExamAttempt
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&models.ExamSession{}).
			Where("student_id = ? AND test_id = ? AND status IN ?", studentID, testID, models.ActiveStatuses).
			Count(&live).Error; err != nil {
			return internal("count live sessions", err)
		}
		if live > 0 {
			return ErrSessionAlreadyActive
		}

		var prior int64
		if err := tx.Model(&models.ExamAttempt{}).
			Where("student_id = ? AND test_id = ?", studentID, testID).
			Count(&prior).Error; err != nil {
			return internal("count attempts", err)
		}
		if def.MaxAttempts != nil && *def.MaxAttempts > 0 && prior >= int64(*def.MaxAttempts) {
			return ErrAttemptLimitReached
		}

		sess = models.ExamSession{
			Token:      token,
			TestID:     testID,
			StudentID:  studentID,
			Status:     models.SessionStarted,
			StartedAt:  now,
			ExpiresAt:  now.Add(time.Duration(def.TimeLimitMinutes) * time.Minute),
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
			ClientMeta: extra,
		}
		if err := insertSession(ctx, tx, &sess); err != nil {
			return err
		}

		order := questionOrder(def, token)
		attempt = models.ExamAttempt{
			SessionID:           sess.ID,
			TestID:              testID,
			StudentID:           studentID,
			AttemptNumber:       int(prior) + 1,
			TotalQuestions:      len(order),
			UnansweredQuestions: len(order),
			TotalMarksAvailable: def.MarksAvailable(),
			IsActive:            true,
		}
		if err := insertAttempt(ctx, tx, &attempt); err != nil {
			return err
		}

		answers := make([]models.ExamAnswer, 0, len(order))
		for i, ref := range order {
			answers = append(answers, models.ExamAnswer{
				AttemptID:    attempt.ID,
				QuestionID:   ref.QuestionID,
				DisplayOrder: i + 1,
			})
		}
		if err := tx.CreateInBatches(answers, 100).Error; err != nil {
			return internal("create answers", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Printf("session started test=%d student=%d attempt=%d number=%d", testID, studentID, attempt.ID, attempt.AttemptNumber)
	s.publish(ctx, EventSessionStarted, SessionEvent{
		SessionToken:  sess.Token,
		AttemptID:     attempt.ID,
		TestID:        testID,
		StudentID:     studentID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(sess.Status),
	})

	return &SessionHandle{
		SessionToken:     sess.Token,
		AttemptID:        attempt.ID,
		TestID:           testID,
		AttemptNumber:    attempt.AttemptNumber,
		TotalQuestions:   attempt.TotalQuestions,
		TotalMarks:       attempt.TotalMarksAvailable,
		TimeLimitMinutes: def.TimeLimitMinutes,
		Status:           string(sess.Status),
		StartedAt:        sess.StartedAt,
		ExpiresAt:        sess.ExpiresAt,
		Rules:            def.Rules(),
	}, nil
}

// AbandonSession closes the student's live session without a result. The
// attempt still counts toward the attempt limit.
func (s *Service) AbandonSession(ctx context.Context, testID, studentID uint) error {
	now := s.clock()

	var (
		sess    *models.ExamSession
		attempt *models.ExamAttempt
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sess, err = findActiveSession(ctx, forUpdate(tx), testID, studentID)
		if err != nil {
			return err
		}
		if sess == nil {
			return ErrNoActiveSession
		}
		if err := closeSession(ctx, tx, sess, models.SessionAbandoned, now); err != nil {
			if errors.Is(err, errNotActive) {
				return ErrNoActiveSession
			}
			return err
		}
		attempt, err = s.deactivate(ctx, tx, sess, now)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Printf("session abandoned test=%d student=%d attempt=%d", testID, studentID, attempt.ID)
	s.publish(ctx, EventSessionAbandoned, eventFor(sess, attempt))
	return nil
}

// TerminateSession force-closes a live session on behalf of an operator.
// No result is computed.
func (s *Service) TerminateSession(ctx context.Context, token string) error {
	now := s.clock()

	var (
		sess    models.ExamSession
		attempt *models.ExamAttempt
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("token = ?", token).First(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return internal("load session", err)
		}
		if sess.Status.IsTerminal() {
			return closedError(sess.Status)
		}
		if err := closeSession(ctx, tx, &sess, models.SessionTerminated, now); err != nil {
			if errors.Is(err, errNotActive) {
				return ErrSessionClosed
			}
			return err
		}
		attempt, err = s.deactivate(ctx, tx, &sess, now)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Printf("session terminated test=%d student=%d attempt=%d", sess.TestID, sess.StudentID, attempt.ID)
	s.publish(ctx, EventSessionClosed, eventFor(&sess, attempt))
	return nil
}

// deactivate marks the attempt of an unscored session as closed.
func (s *Service) deactivate(ctx context.Context, tx *gorm.DB, sess *models.ExamSession, endedAt time.Time) (*models.ExamAttempt, error) {
	attempt, err := attemptForSession(ctx, tx, sess.ID)
	if err != nil {
		return nil, err
	}
	attempt.IsActive = false
	attempt.TimeTakenSeconds = secondsBetween(sess.StartedAt, endedAt)
	if err := tx.Save(attempt).Error; err != nil {
		return nil, internal("save attempt", err)
	}
	return attempt, nil
}

func (s *Service) checkEligible(ctx context.Context, testID, studentID uint) error {
	user, err := s.users.GetUser(ctx, studentID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrAccessDenied
	}
	ok, err := s.ents.HasAccess(ctx, studentID, testID)
	if err != nil {
		return internal("check entitlement", err)
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func checkAvailable(def *TestDefinition, now time.Time) error {
	switch {
	case !def.IsActive || !def.IsPublished:
		return ErrTestUnavailable
	case def.StartDate != nil && now.Before(*def.StartDate):
		return ErrTestNotStarted
	case def.EndDate != nil && now.After(*def.EndDate):
		return ErrTestEnded
	case len(def.Questions) == 0:
		return ErrTestEmpty
	}
	return nil
}

// pastGrace reports whether the session deadline, plus the grace window,
// has passed.
func (s *Service) pastGrace(sess *models.ExamSession, now time.Time) bool {
	return now.After(sess.ExpiresAt.Add(s.grace))
}

// expireStale closes the student's live session for def if its deadline
// has passed, so a new start is not blocked by a session nobody submitted.
func (s *Service) expireStale(ctx context.Context, def *TestDefinition, studentID uint, now time.Time) error {
	sess, err := findActiveSession(ctx, s.db, def.ID, studentID)
	if err != nil || sess == nil {
		return err
	}
	if !s.pastGrace(sess, now) {
		return nil
	}
	_, err = s.expire(ctx, def, sess)
	return err
}

// expire closes sess as TIMEOUT at its deadline and scores what was
// answered. It returns false when another request closed it first.
func (s *Service) expire(ctx context.Context, def *TestDefinition, sess *models.ExamSession) (bool, error) {
	var attempt *models.ExamAttempt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.finalize(ctx, tx, def, sess, models.SessionTimeout, sess.ExpiresAt)
		return err
	})
	if errors.Is(err, errNotActive) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Printf("session timed out test=%d student=%d attempt=%d marks=%.2f", sess.TestID, sess.StudentID, attempt.ID, attempt.TotalMarksObtained)
	s.publish(ctx, EventSessionTimedOut, eventFor(sess, attempt))
	return true, nil
}

func eventFor(sess *models.ExamSession, attempt *models.ExamAttempt) SessionEvent {
	return SessionEvent{
		SessionToken:  sess.Token,
		AttemptID:     attempt.ID,
		TestID:        sess.TestID,
		StudentID:     sess.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(sess.Status),
		Marks:         attempt.TotalMarksObtained,
		Percentage:    attempt.Percentage,
		IsPassed:      attempt.IsPassed,
	}
}

func encodeMeta(meta ClientMeta) (datatypes.JSON, error) {
	if len(meta.Extra) == 0 {
		return nil, nil
	}
	raw, err := sonic.Marshal(meta.Extra)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
