package testsession

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"testengine/backend/models"
)

const (
	testID    uint = 1
	studentA  uint = 7
	studentB  uint = 8
	qAlpha    uint = 101
	qBeta     uint = 102
	qGamma    uint = 103
	optAlphaA uint = 1011
	optAlphaB uint = 1012
	optBetaA  uint = 1021
	optBetaB  uint = 1022
	optGammaA uint = 1031
	optGammaB uint = 1032
)

type fakeDefs map[uint]*TestDefinition

func (f fakeDefs) GetTestDefinition(_ context.Context, id uint) (*TestDefinition, error) {
	def, ok := f[id]
	if !ok {
		return nil, ErrTestNotFound
	}
	return def, nil
}

type fakeBank map[uint]*Question

func (f fakeBank) GetQuestions(_ context.Context, ids []uint) (map[uint]*Question, error) {
	out := make(map[uint]*Question, len(ids))
	for _, id := range ids {
		if q, ok := f[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

type fakeEntitlements map[uint]bool

func (f fakeEntitlements) HasAccess(_ context.Context, studentID, _ uint) (bool, error) {
	return f[studentID], nil
}

type fakeUsers map[uint]*Student

func (f fakeUsers) GetUser(_ context.Context, id uint) (*Student, error) {
	u, ok := f[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, key)
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	def   *TestDefinition
	ents  fakeEntitlements
	users fakeUsers
	pub   *recordingPublisher
	now   time.Time
	mu    sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:   setupDB(t),
		ents: fakeEntitlements{studentA: true, studentB: true},
		users: fakeUsers{
			studentA: {ID: studentA, Username: "ana", IsActive: true},
			studentB: {ID: studentB, Username: "ben", IsActive: true},
		},
		pub: &recordingPublisher{},
		now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	f.def = &TestDefinition{
		ID:    testID,
		Title: "Propositional logic",
		Questions: []QuestionRef{
			{QuestionID: qAlpha, DisplayOrder: 1, Marks: 2},
			{QuestionID: qBeta, DisplayOrder: 2, Marks: 2},
			{QuestionID: qGamma, DisplayOrder: 3, Marks: 2},
		},
		TimeLimitMinutes: 30,
		PassingMarks:     floatPtr(3),
		NegativeMarking:  true,
		AllowReview:      true,
		IsActive:         true,
		IsPublished:      true,
	}
	bank := fakeBank{
		qAlpha: {ID: qAlpha, Text: "p or not p", Type: QuestionTypeSingleChoice, Options: []Option{
			{ID: optAlphaA, Text: "tautology", DisplayOrder: 1, IsCorrect: true},
			{ID: optAlphaB, Text: "contradiction", DisplayOrder: 2},
		}},
		qBeta: {ID: qBeta, Text: "p and not p", Type: QuestionTypeSingleChoice, Options: []Option{
			{ID: optBetaA, Text: "tautology", DisplayOrder: 1},
			{ID: optBetaB, Text: "contradiction", DisplayOrder: 2, IsCorrect: true},
		}},
		qGamma: {ID: qGamma, Text: "p implies p", Type: QuestionTypeSingleChoice, Options: []Option{
			{ID: optGammaA, Text: "tautology", DisplayOrder: 1, IsCorrect: true},
			{ID: optGammaB, Text: "contingent", DisplayOrder: 2},
		}},
	}
	f.svc = NewService(f.db, Options{
		Definitions:  fakeDefs{testID: f.def},
		Questions:    bank,
		Entitlements: f.ents,
		Users:        f.users,
		Publisher:    f.pub,
		Logger:       log.New(io.Discard, "", 0),
		AnswerGrace:  30 * time.Second,
		Now:          f.clock,
	})
	return f
}

func (f *fixture) start(t *testing.T, student uint) *SessionHandle {
	t.Helper()
	h, err := f.svc.StartSession(context.Background(), testID, student, ClientMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	return h
}

func (f *fixture) answer(t *testing.T, h *SessionHandle, question uint, option *uint) {
	t.Helper()
	err := f.svc.SubmitAnswer(context.Background(), testID, studentA, AnswerInput{
		SessionToken:     h.SessionToken,
		QuestionID:       question,
		SelectedOptionID: option,
	})
	require.NoError(t, err)
}

func (f *fixture) sessionStatus(t *testing.T, token string) models.SessionStatus {
	t.Helper()
	var sess models.ExamSession
	require.NoError(t, f.db.Where("token = ?", token).First(&sess).Error)
	return sess.Status
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)

	assert.NotEmpty(t, h.SessionToken)
	assert.Equal(t, 1, h.AttemptNumber)
	assert.Equal(t, 3, h.TotalQuestions)
	assert.Equal(t, 6.0, h.TotalMarks)
	assert.Equal(t, "STARTED", h.Status)
	assert.Equal(t, f.now.Add(30*time.Minute), h.ExpiresAt)
	assert.True(t, h.Rules.NegativeMarking)
	assert.Equal(t, DefaultNegativeMarkPercentage, h.Rules.NegativeMarkPercentage)

	var answers []models.ExamAnswer
	require.NoError(t, f.db.Where("attempt_id = ?", h.AttemptID).Order("display_order").Find(&answers).Error)
	require.Len(t, answers, 3)
	for i, a := range answers {
		assert.Equal(t, i+1, a.DisplayOrder)
		assert.False(t, a.IsAnswered)
	}
	assert.Equal(t, []string{EventSessionStarted}, f.pub.keys())
}

func TestStartSessionRejectsSecondLiveSession(t *testing.T) {
	f := newFixture(t)
	f.start(t, studentA)

	_, err := f.svc.StartSession(context.Background(), testID, studentA, ClientMeta{})
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)
	assert.Equal(t, KindConflict, KindOf(err))

	// Other students are unaffected.
	f.start(t, studentB)
}

func TestStartSessionAvailability(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture)
		want   error
	}{
		{"unpublished", func(f *fixture) { f.def.IsPublished = false }, ErrTestUnavailable},
		{"inactive", func(f *fixture) { f.def.IsActive = false }, ErrTestUnavailable},
		{"not open yet", func(f *fixture) { at := f.now.Add(time.Hour); f.def.StartDate = &at }, ErrTestNotStarted},
		{"closed", func(f *fixture) { at := f.now.Add(-time.Hour); f.def.EndDate = &at }, ErrTestEnded},
		{"no questions", func(f *fixture) { f.def.Questions = nil }, ErrTestEmpty},
		{"no entitlement", func(f *fixture) { f.ents[studentA] = false }, ErrAccessDenied},
		{"inactive user", func(f *fixture) { f.users[studentA].IsActive = false }, ErrAccessDenied},
		{"unknown user", func(f *fixture) { delete(f.users, studentA) }, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.mutate(f)
			_, err := f.svc.StartSession(context.Background(), testID, studentA, ClientMeta{})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unknown test", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.StartSession(context.Background(), 999, studentA, ClientMeta{})
		assert.ErrorIs(t, err, ErrTestNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestAttemptLimit(t *testing.T) {
	f := newFixture(t)
	f.def.MaxAttempts = intPtr(1)

	h := f.start(t, studentA)
	_, err := f.svc.SubmitTest(context.Background(), testID, studentA, h.SessionToken)
	require.NoError(t, err)

	_, err = f.svc.StartSession(context.Background(), testID, studentA, ClientMeta{})
	assert.ErrorIs(t, err, ErrAttemptLimitReached)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestAbandonedAttemptCountsTowardLimit(t *testing.T) {
	f := newFixture(t)
	f.def.MaxAttempts = intPtr(2)

	f.start(t, studentA)
	require.NoError(t, f.svc.AbandonSession(context.Background(), testID, studentA))

	h := f.start(t, studentA)
	assert.Equal(t, 2, h.AttemptNumber)
	require.NoError(t, f.svc.AbandonSession(context.Background(), testID, studentA))

	_, err := f.svc.StartSession(context.Background(), testID, studentA, ClientMeta{})
	assert.ErrorIs(t, err, ErrAttemptLimitReached)
}

func TestConcurrentStartsYieldOneSession(t *testing.T) {
	f := newFixture(t)

	const callers = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.StartSession(context.Background(), testID, studentA, ClientMeta{})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrSessionAlreadyActive)
	}
	assert.Equal(t, 1, ok)

	var attempts int64
	require.NoError(t, f.db.Model(&models.ExamAttempt{}).Where("student_id = ?", studentA).Count(&attempts).Error)
	assert.Equal(t, int64(1), attempts)
}

func TestSubmitAnswer(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)

	f.answer(t, h, qAlpha, uintPtr(optAlphaB))
	assert.Equal(t, models.SessionInProgress, f.sessionStatus(t, h.SessionToken))

	// Changing the answer replaces the row and its score.
	f.answer(t, h, qAlpha, uintPtr(optAlphaA))

	var a models.ExamAnswer
	require.NoError(t, f.db.Where("attempt_id = ? AND question_id = ?", h.AttemptID, qAlpha).First(&a).Error)
	assert.Equal(t, optAlphaA, *a.SelectedOptionID)
	assert.True(t, a.IsCorrect)
	assert.Equal(t, 2.0, a.MarksObtained)

	// Clearing it.
	f.answer(t, h, qAlpha, nil)
	var cleared models.ExamAnswer
	require.NoError(t, f.db.Where("attempt_id = ? AND question_id = ?", h.AttemptID, qAlpha).First(&cleared).Error)
	assert.Nil(t, cleared.SelectedOptionID)
	assert.False(t, cleared.IsAnswered)
	assert.Equal(t, 0.0, cleared.MarksObtained)

	var count int64
	require.NoError(t, f.db.Model(&models.ExamAnswer{}).Where("attempt_id = ?", h.AttemptID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestSubmitAnswerRejections(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)
	ctx := context.Background()

	err := f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{SessionToken: h.SessionToken, QuestionID: 999, SelectedOptionID: uintPtr(1)})
	assert.ErrorIs(t, err, ErrQuestionNotInTest)
	assert.Equal(t, KindInvalidState, KindOf(err))

	err = f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{SessionToken: h.SessionToken, QuestionID: qAlpha, SelectedOptionID: uintPtr(optBetaA)})
	assert.ErrorIs(t, err, ErrOptionNotInQuestion)

	err = f.svc.SubmitAnswer(ctx, testID, studentB, AnswerInput{SessionToken: h.SessionToken, QuestionID: qAlpha, SelectedOptionID: uintPtr(optAlphaA)})
	assert.ErrorIs(t, err, ErrAccessDenied)

	err = f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{SessionToken: "missing", QuestionID: qAlpha})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = f.svc.SubmitAnswer(ctx, 2, studentA, AnswerInput{SessionToken: h.SessionToken, QuestionID: qAlpha})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, models.SessionStarted, f.sessionStatus(t, h.SessionToken))
}

func TestSubmitTestComputesResult(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)

	f.answer(t, h, qAlpha, uintPtr(optAlphaA))
	f.answer(t, h, qBeta, uintPtr(optBetaA))
	f.advance(10 * time.Minute)

	res, err := f.svc.SubmitTest(context.Background(), testID, studentA, h.SessionToken)
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", res.Status)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 2, res.AnsweredQuestions)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 1, res.WrongAnswers)
	assert.Equal(t, 1, res.UnansweredQuestions)
	assert.InDelta(t, 1.5, res.TotalMarksObtained, 1e-9)
	assert.Equal(t, 6.0, res.TotalMarksAvailable)
	assert.Equal(t, 25.0, res.Percentage)
	assert.False(t, res.IsPassed)
	assert.Equal(t, int64(600), res.TimeTakenSeconds)
	assert.Contains(t, f.pub.keys(), EventAttemptSubmitted)
}

func TestSubmitTestTwice(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)
	ctx := context.Background()

	_, err := f.svc.SubmitTest(ctx, testID, studentA, h.SessionToken)
	require.NoError(t, err)

	_, err = f.svc.SubmitTest(ctx, testID, studentA, h.SessionToken)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	err = f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{SessionToken: h.SessionToken, QuestionID: qAlpha, SelectedOptionID: uintPtr(optAlphaA)})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, KindInvalidState, KindOf(err))

	var a models.ExamAnswer
	require.NoError(t, f.db.Where("attempt_id = ? AND question_id = ?", h.AttemptID, qAlpha).First(&a).Error)
	assert.False(t, a.IsAnswered)
}

func TestNegativeTotalIsNotClamped(t *testing.T) {
	f := newFixture(t)
	f.def.NegativeMarkPercentage = floatPtr(1)
	h := f.start(t, studentA)

	f.answer(t, h, qAlpha, uintPtr(optAlphaB))
	f.answer(t, h, qBeta, uintPtr(optBetaA))

	res, err := f.svc.SubmitTest(context.Background(), testID, studentA, h.SessionToken)
	require.NoError(t, err)
	assert.InDelta(t, -4.0, res.TotalMarksObtained, 1e-9)
	assert.InDelta(t, -66.67, res.Percentage, 1e-9)
}

func TestDeadline(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)
	ctx := context.Background()

	// Inside the grace window answers are still accepted.
	f.advance(30*time.Minute + 10*time.Second)
	f.answer(t, h, qAlpha, uintPtr(optAlphaA))

	f.advance(time.Minute)
	err := f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{SessionToken: h.SessionToken, QuestionID: qBeta, SelectedOptionID: uintPtr(optBetaB)})
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = f.svc.GetQuestions(ctx, testID, h.SessionToken, studentA)
	assert.ErrorIs(t, err, ErrSessionExpired)

	res, err := f.svc.SubmitTest(ctx, testID, studentA, h.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "TIMEOUT", res.Status)
	assert.Equal(t, 2.0, res.TotalMarksObtained)
}

func TestGetActiveSessionExpiresLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.start(t, studentA)
	f.answer(t, h, qAlpha, uintPtr(optAlphaA))

	active, err := f.svc.GetActiveSession(ctx, testID, studentA)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, h.SessionToken, active.SessionToken)
	assert.Equal(t, 1, active.AnsweredQuestions)
	assert.Equal(t, "IN_PROGRESS", active.Status)
	assert.Equal(t, int64(30*60), active.RemainingSeconds)

	f.advance(2 * time.Hour)
	active, err = f.svc.GetActiveSession(ctx, testID, studentA)
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Equal(t, models.SessionTimeout, f.sessionStatus(t, h.SessionToken))

	res, err := f.svc.GetResult(ctx, testID, h.AttemptID, studentA)
	require.NoError(t, err)
	assert.Equal(t, "TIMEOUT", res.Status)
	assert.Equal(t, 2.0, res.TotalMarksObtained)
	assert.Equal(t, int64(30*60), res.TimeTakenSeconds)
	assert.Contains(t, f.pub.keys(), EventSessionTimedOut)
}

func TestStartSessionReplacesExpiredSession(t *testing.T) {
	f := newFixture(t)
	first := f.start(t, studentA)

	f.advance(time.Hour)
	second := f.start(t, studentA)

	assert.Equal(t, 2, second.AttemptNumber)
	assert.Equal(t, models.SessionTimeout, f.sessionStatus(t, first.SessionToken))
}

func TestGetActiveSessionNone(t *testing.T) {
	f := newFixture(t)
	active, err := f.svc.GetActiveSession(context.Background(), testID, studentA)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAbandonSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.AbandonSession(ctx, testID, studentA), ErrNoActiveSession)

	h := f.start(t, studentA)
	f.answer(t, h, qAlpha, uintPtr(optAlphaA))
	require.NoError(t, f.svc.AbandonSession(ctx, testID, studentA))
	assert.Equal(t, models.SessionAbandoned, f.sessionStatus(t, h.SessionToken))

	var attempt models.ExamAttempt
	require.NoError(t, f.db.First(&attempt, h.AttemptID).Error)
	assert.False(t, attempt.IsSubmitted)
	assert.False(t, attempt.IsActive)

	err := f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{
		SessionToken:     h.SessionToken,
		QuestionID:       qBeta,
		SelectedOptionID: uintPtr(optBetaB),
	})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = f.svc.SubmitTest(ctx, testID, studentA, h.SessionToken)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = f.svc.GetResult(ctx, testID, h.AttemptID, studentA)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	list, err := f.svc.ListAttempts(ctx, testID, studentA)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTerminateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.start(t, studentA)

	require.NoError(t, f.svc.TerminateSession(ctx, h.SessionToken))
	assert.Equal(t, models.SessionTerminated, f.sessionStatus(t, h.SessionToken))

	assert.ErrorIs(t, f.svc.TerminateSession(ctx, h.SessionToken), ErrSessionClosed)
	assert.ErrorIs(t, f.svc.TerminateSession(ctx, "missing"), ErrSessionNotFound)

	err := f.svc.SubmitAnswer(ctx, testID, studentA, AnswerInput{SessionToken: h.SessionToken, QuestionID: qAlpha})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestGetQuestions(t *testing.T) {
	f := newFixture(t)
	h := f.start(t, studentA)
	f.answer(t, h, qBeta, uintPtr(optBetaB))

	views, err := f.svc.GetQuestions(context.Background(), testID, h.SessionToken, studentA)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, []uint{qAlpha, qBeta, qGamma}, []uint{views[0].QuestionID, views[1].QuestionID, views[2].QuestionID})
	assert.Equal(t, optBetaB, *views[1].SelectedOptionID)
	assert.True(t, views[1].IsAnswered)
	assert.Equal(t, []OptionView{{OptionID: optAlphaA, Text: "tautology"}, {OptionID: optAlphaB, Text: "contradiction"}}, views[0].Options)

	raw, err := json.Marshal(views)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct")

	_, err = f.svc.GetQuestions(context.Background(), testID, h.SessionToken, studentB)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestShuffledOrderIsStablePerSession(t *testing.T) {
	f := newFixture(t)
	f.def.ShuffleQuestions = true
	f.def.ShuffleOptions = true
	h := f.start(t, studentA)

	first, err := f.svc.GetQuestions(context.Background(), testID, h.SessionToken, studentA)
	require.NoError(t, err)
	again, err := f.svc.GetQuestions(context.Background(), testID, h.SessionToken, studentA)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	seen := map[uint]bool{}
	for _, v := range first {
		seen[v.QuestionID] = true
		assert.Len(t, v.Options, 2)
	}
	assert.Len(t, seen, 3)
}

func TestGetResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.start(t, studentA)
	f.answer(t, h, qAlpha, uintPtr(optAlphaA))

	_, err := f.svc.GetResult(ctx, testID, h.AttemptID, studentA)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	_, err = f.svc.SubmitTest(ctx, testID, studentA, h.SessionToken)
	require.NoError(t, err)

	res, err := f.svc.GetResult(ctx, testID, h.AttemptID, studentA)
	require.NoError(t, err)
	require.Len(t, res.Review, 3)
	assert.Equal(t, qAlpha, res.Review[0].QuestionID)
	assert.True(t, res.Review[0].IsCorrect)
	assert.Nil(t, res.Review[0].CorrectOptionID)

	f.def.ShowCorrectAnswers = true
	res, err = f.svc.GetResult(ctx, testID, h.AttemptID, studentA)
	require.NoError(t, err)
	require.NotNil(t, res.Review[1].CorrectOptionID)
	assert.Equal(t, optBetaB, *res.Review[1].CorrectOptionID)

	f.def.AllowReview = false
	res, err = f.svc.GetResult(ctx, testID, h.AttemptID, studentA)
	require.NoError(t, err)
	assert.Empty(t, res.Review)

	_, foreign := f.svc.GetResult(ctx, testID, h.AttemptID, studentB)
	_, missing := f.svc.GetResult(ctx, testID, 999, studentA)
	assert.ErrorIs(t, missing, ErrAttemptNotFound)
	assert.Equal(t, missing, foreign)
}

func TestListAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		h := f.start(t, studentA)
		f.advance(time.Minute)
		_, err := f.svc.SubmitTest(ctx, testID, studentA, h.SessionToken)
		require.NoError(t, err)
	}
	f.start(t, studentA)

	list, err := f.svc.ListAttempts(ctx, testID, studentA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].AttemptNumber)
	assert.Equal(t, 1, list[1].AttemptNumber)
	assert.Equal(t, "COMPLETED", list[0].Status)

	all, err := f.svc.ListAllAttempts(ctx, studentA)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.ListAllAttempts(ctx, studentB)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExpireStaleSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.start(t, studentA)
	f.advance(20 * time.Minute)
	fresh := f.start(t, studentB)
	f.advance(15 * time.Minute)

	n, err := f.svc.ExpireStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.SessionTimeout, f.sessionStatus(t, stale.SessionToken))
	assert.Equal(t, models.SessionStarted, f.sessionStatus(t, fresh.SessionToken))

	n, err = f.svc.ExpireStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
