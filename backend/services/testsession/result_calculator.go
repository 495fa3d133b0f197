package testsession

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"testengine/backend/models"
)

// SubmitTest closes the session and computes its result. A submit that
// arrives after the deadline plus grace window is recorded as TIMEOUT. A
// second submit fails with ErrAlreadySubmitted and recomputes nothing.
func (s *Service) SubmitTest(ctx context.Context, testID, studentID uint, token string) (*ResultSummary, error) {
	now := s.clock()

	sess, err := ownedSession(ctx, s.db, testID, studentID, token)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, closedError(sess.Status)
	}
	def, err := s.defs.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}

	status := models.SessionCompleted
	if s.pastGrace(sess, now) {
		status = models.SessionTimeout
	}

	var attempt *models.ExamAttempt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.finalize(ctx, tx, def, sess, status, now)
		return err
	})
	if errors.Is(err, errNotActive) {
		// Lost the race against another submit, abandon or sweep.
		latest, lerr := findSession(ctx, s.db, testID, token)
		if lerr != nil {
			return nil, lerr
		}
		return nil, closedError(latest.Status)
	}
	if err != nil {
		return nil, err
	}

	s.log.Printf("attempt submitted test=%d student=%d attempt=%d status=%s marks=%.2f/%.2f",
		testID, studentID, attempt.ID, status, attempt.TotalMarksObtained, attempt.TotalMarksAvailable)
	s.publish(ctx, EventAttemptSubmitted, eventFor(sess, attempt))

	return summarize(def, sess, attempt), nil
}

// GetResult returns the stored result of a submitted attempt owned by the
// student.
func (s *Service) GetResult(ctx context.Context, testID, attemptID, studentID uint) (*ResultSummary, error) {
	var attempt models.ExamAttempt
	err := s.db.WithContext(ctx).Where("id = ? AND test_id = ?", attemptID, testID).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, internal("load attempt", err)
	}
	// Another student's attempt reads as missing so ids cannot be enumerated.
	if attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	if !attempt.IsSubmitted {
		return nil, ErrNotSubmitted
	}

	var sess models.ExamSession
	if err := s.db.WithContext(ctx).First(&sess, attempt.SessionID).Error; err != nil {
		return nil, internal("load session", err)
	}
	def, err := s.defs.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}

	out := summarize(def, &sess, &attempt)
	if def.AllowReview {
		out.Review, err = s.review(ctx, def, attempt.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// finalize closes the session with a scored status and writes the attempt
// totals from the recorded answers. Callers run it inside a transaction.
func (s *Service) finalize(ctx context.Context, tx *gorm.DB, def *TestDefinition, sess *models.ExamSession, status models.SessionStatus, endedAt time.Time) (*models.ExamAttempt, error) {
	if err := closeSession(ctx, tx, sess, status, endedAt); err != nil {
		return nil, err
	}
	attempt, err := attemptForSession(ctx, tx, sess.ID)
	if err != nil {
		return nil, err
	}
	var answers []models.ExamAnswer
	if err := tx.WithContext(ctx).Where("attempt_id = ?", attempt.ID).Find(&answers).Error; err != nil {
		return nil, internal("load answers", err)
	}

	t := TallyAnswers(attempt.TotalQuestions, answers)
	attempt.AnsweredQuestions = t.Answered
	attempt.CorrectAnswers = t.Correct
	attempt.WrongAnswers = t.Wrong
	attempt.UnansweredQuestions = t.Unanswered
	attempt.TotalMarksObtained = t.Marks
	attempt.Percentage = Percentage(t.Marks, attempt.TotalMarksAvailable)
	attempt.IsPassed = Passed(t.Marks, def.PassingMarks)
	attempt.IsSubmitted = true
	attempt.IsActive = false
	attempt.TimeTakenSeconds = secondsBetween(sess.StartedAt, endedAt)
	attempt.SubmittedAt = &endedAt

	if err := tx.Save(attempt).Error; err != nil {
		return nil, internal("save attempt", err)
	}
	return attempt, nil
}

func summarize(def *TestDefinition, sess *models.ExamSession, a *models.ExamAttempt) *ResultSummary {
	return &ResultSummary{
		AttemptID:           a.ID,
		TestID:              a.TestID,
		AttemptNumber:       a.AttemptNumber,
		Status:              string(sess.Status),
		TotalQuestions:      a.TotalQuestions,
		AnsweredQuestions:   a.AnsweredQuestions,
		CorrectAnswers:      a.CorrectAnswers,
		WrongAnswers:        a.WrongAnswers,
		UnansweredQuestions: a.UnansweredQuestions,
		TotalMarksObtained:  a.TotalMarksObtained,
		TotalMarksAvailable: a.TotalMarksAvailable,
		Percentage:          a.Percentage,
		PassingMarks:        def.PassingMarks,
		IsPassed:            a.IsPassed,
		TimeTakenSeconds:    a.TimeTakenSeconds,
		StartedAt:           sess.StartedAt,
		SubmittedAt:         a.SubmittedAt,
	}
}

func (s *Service) review(ctx context.Context, def *TestDefinition, attemptID uint) ([]ReviewItem, error) {
	var answers []models.ExamAnswer
	if err := s.db.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("display_order").Find(&answers).Error; err != nil {
		return nil, internal("load answers", err)
	}
	ids := make([]uint, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	questions, err := s.bank.GetQuestions(ctx, ids)
	if err != nil {
		return nil, internal("load questions", err)
	}

	items := make([]ReviewItem, 0, len(answers))
	for _, a := range answers {
		item := ReviewItem{
			QuestionID:       a.QuestionID,
			DisplayOrder:     a.DisplayOrder,
			SelectedOptionID: a.SelectedOptionID,
			IsAnswered:       a.IsAnswered,
			IsCorrect:        a.IsCorrect,
			MarksObtained:    a.MarksObtained,
		}
		if q, ok := questions[a.QuestionID]; ok {
			item.Text = q.Text
			if def.ShowCorrectAnswers {
				item.CorrectOptionID = q.CorrectOptionID()
			}
		}
		items = append(items, item)
	}
	return items, nil
}
