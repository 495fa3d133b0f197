package testsession

import (
	"context"

	"testengine/backend/models"
)

// GetActiveSession returns the student's live session for the test, or nil
// when there is none. A session found past its deadline is closed as
// TIMEOUT first and reported as absent.
func (s *Service) GetActiveSession(ctx context.Context, testID, studentID uint) (*ActiveSession, error) {
	now := s.clock()

	sess, err := findActiveSession(ctx, s.db, testID, studentID)
	if err != nil || sess == nil {
		return nil, err
	}
	def, err := s.defs.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}
	if s.pastGrace(sess, now) {
		if _, err := s.expire(ctx, def, sess); err != nil {
			return nil, err
		}
		return nil, nil
	}

	attempt, err := attemptForSession(ctx, s.db, sess.ID)
	if err != nil {
		return nil, err
	}
	var answered int64
	if err := s.db.WithContext(ctx).Model(&models.ExamAnswer{}).
		Where("attempt_id = ? AND is_answered = ?", attempt.ID, true).
		Count(&answered).Error; err != nil {
		return nil, internal("count answers", err)
	}

	remaining := secondsBetween(now, sess.ExpiresAt)
	return &ActiveSession{
		SessionToken:      sess.Token,
		AttemptID:         attempt.ID,
		TestID:            testID,
		AttemptNumber:     attempt.AttemptNumber,
		Status:            string(sess.Status),
		TotalQuestions:    attempt.TotalQuestions,
		AnsweredQuestions: int(answered),
		StartedAt:         sess.StartedAt,
		ExpiresAt:         sess.ExpiresAt,
		RemainingSeconds:  remaining,
		Rules:             def.Rules(),
	}, nil
}

// GetQuestions returns the session's questions in display order with the
// student's current selections. Correctness never leaves this function.
func (s *Service) GetQuestions(ctx context.Context, testID uint, token string, studentID uint) ([]QuestionView, error) {
	now := s.clock()

	sess, err := ownedSession(ctx, s.db, testID, studentID, token)
	if err != nil {
		return nil, err
	}
	if err := s.checkWritable(sess, now); err != nil {
		return nil, err
	}
	def, err := s.defs.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempt, err := attemptForSession(ctx, s.db, sess.ID)
	if err != nil {
		return nil, err
	}

	var answers []models.ExamAnswer
	if err := s.db.WithContext(ctx).Where("attempt_id = ?", attempt.ID).Order("display_order").Find(&answers).Error; err != nil {
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

	views := make([]QuestionView, 0, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			s.log.Printf("question %d of test %d missing from bank", a.QuestionID, testID)
			continue
		}
		ref, _ := def.Ref(a.QuestionID)
		views = append(views, QuestionView{
			QuestionID:       q.ID,
			DisplayOrder:     a.DisplayOrder,
			Text:             q.Text,
			Type:             q.Type,
			Marks:            ref.Marks,
			Options:          optionOrder(q, sess.Token, def.ShuffleOptions),
			SelectedOptionID: a.SelectedOptionID,
			IsAnswered:       a.IsAnswered,
		})
	}
	return views, nil
}

// ListAttempts returns the student's submitted attempts at one test, newest
// first.
func (s *Service) ListAttempts(ctx context.Context, testID, studentID uint) ([]AttemptSummary, error) {
	return s.listAttempts(ctx, studentID, &testID)
}

func (s *Service) ListAllAttempts(ctx context.Context, studentID uint) ([]AttemptSummary, error) {
	return s.listAttempts(ctx, studentID, nil)
}

func (s *Service) listAttempts(ctx context.Context, studentID uint, testID *uint) ([]AttemptSummary, error) {
	q := s.db.WithContext(ctx).Where("student_id = ? AND is_submitted = ?", studentID, true)
	if testID != nil {
		q = q.Where("test_id = ?", *testID)
	}
	var attempts []models.ExamAttempt
	if err := q.Order("submitted_at DESC").Order("id DESC").Find(&attempts).Error; err != nil {
		return nil, internal("list attempts", err)
	}
	if len(attempts) == 0 {
		return []AttemptSummary{}, nil
	}

	sessionIDs := make([]uint, 0, len(attempts))
	for _, a := range attempts {
		sessionIDs = append(sessionIDs, a.SessionID)
	}
	var sessions []models.ExamSession
	if err := s.db.WithContext(ctx).Where("id IN ?", sessionIDs).Find(&sessions).Error; err != nil {
		return nil, internal("list sessions", err)
	}
	status := make(map[uint]models.SessionStatus, len(sessions))
	for _, sess := range sessions {
		status[sess.ID] = sess.Status
	}

	out := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, AttemptSummary{
			AttemptID:          a.ID,
			TestID:             a.TestID,
			AttemptNumber:      a.AttemptNumber,
			Status:             string(status[a.SessionID]),
			TotalMarksObtained: a.TotalMarksObtained,
			TotalMarks:         a.TotalMarksAvailable,
			Percentage:         a.Percentage,
			IsPassed:           a.IsPassed,
			TimeTakenSeconds:   a.TimeTakenSeconds,
			SubmittedAt:        a.SubmittedAt,
		})
	}
	return out, nil
}
