package testsession

import (
	"context"
	"time"

	"gorm.io/gorm"

	"testengine/backend/models"
)

// SubmitAnswer records or replaces the student's selection for one question
// and scores it immediately. A nil SelectedOptionID clears the answer. The
// first answer moves a STARTED session to IN_PROGRESS.
func (s *Service) SubmitAnswer(ctx context.Context, testID, studentID uint, in AnswerInput) error {
	now := s.clock()

	sess, err := ownedSession(ctx, s.db, testID, studentID, in.SessionToken)
	if err != nil {
		return err
	}
	if err := s.checkWritable(sess, now); err != nil {
		return err
	}

	def, err := s.defs.GetTestDefinition(ctx, testID)
	if err != nil {
		return err
	}
	ref, ok := def.Ref(in.QuestionID)
	if !ok {
		return ErrQuestionNotInTest
	}
	questions, err := s.bank.GetQuestions(ctx, []uint{in.QuestionID})
	if err != nil {
		return internal("load question", err)
	}
	q, ok := questions[in.QuestionID]
	if !ok {
		return ErrQuestionNotFound
	}
	score, err := ScoreAnswer(def, ref, q, in.SelectedOptionID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.ExamSession
		if err := forUpdate(tx).Where("id = ?", sess.ID).First(&locked).Error; err != nil {
			return internal("lock session", err)
		}
		if err := s.checkWritable(&locked, now); err != nil {
			return err
		}
		attempt, err := attemptForSession(ctx, tx, locked.ID)
		if err != nil {
			return err
		}

		var answeredAt *time.Time
		if score.IsAnswered {
			answeredAt = &now
		}
		res := tx.Model(&models.ExamAnswer{}).
			Where("attempt_id = ? AND question_id = ?", attempt.ID, in.QuestionID).
			Updates(map[string]any{
				"selected_option_id": in.SelectedOptionID,
				"is_answered":        score.IsAnswered,
				"is_correct":         score.IsCorrect,
				"marks_obtained":     score.MarksObtained,
				"answered_at":        answeredAt,
			})
		if res.Error != nil {
			return internal("save answer", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrQuestionNotInTest
		}

		if locked.Status == models.SessionStarted {
			if err := tx.Model(&models.ExamSession{}).
				Where("id = ? AND status = ?", locked.ID, models.SessionStarted).
				Update("status", models.SessionInProgress).Error; err != nil {
				return internal("mark session in progress", err)
			}
		}
		return nil
	})
}

// checkWritable rejects answers on closed sessions and after the deadline
// plus grace window.
func (s *Service) checkWritable(sess *models.ExamSession, now time.Time) error {
	if sess.Status.IsTerminal() {
		return ErrSessionClosed
	}
	if s.pastGrace(sess, now) {
		return ErrSessionExpired
	}
	return nil
}
