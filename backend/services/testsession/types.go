package testsession

import (
	"time"
)

// DefaultNegativeMarkPercentage is applied when negative marking is on and
// the test does not declare a fraction.
const DefaultNegativeMarkPercentage = 0.25

// TestDefinition is the fully resolved projection of a test handed to the
// engine by the catalogue side. It is immutable while sessions are live.
type TestDefinition struct {
	ID               uint          `json:"id"`
	Title            string        `json:"title"`
	Questions        []QuestionRef `json:"questions"`
	TimeLimitMinutes int           `json:"time_limit_minutes"`
	MaxAttempts      *int          `json:"max_attempts,omitempty"`
	PassingMarks     *float64      `json:"passing_marks,omitempty"`
	TotalMarks       float64       `json:"total_marks"`

	NegativeMarking        bool     `json:"negative_marking"`
	NegativeMarkPercentage *float64 `json:"negative_mark_percentage,omitempty"`

	AllowReview        bool `json:"allow_review"`
	ShowCorrectAnswers bool `json:"show_correct_answers"`
	ShuffleQuestions   bool `json:"shuffle_questions"`
	ShuffleOptions     bool `json:"shuffle_options"`
	AllowSkip          bool `json:"allow_skip"`

	IsActive    bool       `json:"is_active"`
	IsPublished bool       `json:"is_published"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type QuestionRef struct {
	QuestionID    uint     `json:"question_id"`
	DisplayOrder  int      `json:"display_order"`
	Marks         float64  `json:"marks"`
	NegativeMarks *float64 `json:"negative_marks,omitempty"`
}

// Ref returns the reference for questionID, if the test contains it.
func (d *TestDefinition) Ref(questionID uint) (QuestionRef, bool) {
	for _, q := range d.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return QuestionRef{}, false
}

// MarksAvailable is the declared total, or the sum of question marks when
// the test does not declare one.
func (d *TestDefinition) MarksAvailable() float64 {
	if d.TotalMarks > 0 {
		return d.TotalMarks
	}
	var total float64
	for _, q := range d.Questions {
		total += q.Marks
	}
	return total
}

func (d *TestDefinition) Rules() ScoringRules {
	rules := ScoringRules{
		NegativeMarking:    d.NegativeMarking,
		AllowReview:        d.AllowReview,
		ShowCorrectAnswers: d.ShowCorrectAnswers,
		ShuffleQuestions:   d.ShuffleQuestions,
		ShuffleOptions:     d.ShuffleOptions,
		AllowSkip:          d.AllowSkip,
	}
	if d.NegativeMarking {
		rules.NegativeMarkPercentage = d.negativeFraction()
	}
	return rules
}

func (d *TestDefinition) negativeFraction() float64 {
	if d.NegativeMarkPercentage != nil {
		return *d.NegativeMarkPercentage
	}
	return DefaultNegativeMarkPercentage
}

const QuestionTypeSingleChoice = "single_choice"

// Question comes from the question bank. Option.IsCorrect never leaves the
// engine on the student read path.
type Question struct {
	ID      uint
	Text    string
	Type    string
	Options []Option
}

type Option struct {
	ID           uint
	Text         string
	DisplayOrder int
	IsCorrect    bool
}

func (q *Question) Option(id uint) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (q *Question) CorrectOptionID() *uint {
	for _, o := range q.Options {
		if o.IsCorrect {
			id := o.ID
			return &id
		}
	}
	return nil
}

type Student struct {
	ID       uint
	Username string
	Email    string
	IsActive bool
}

type ClientMeta struct {
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

type ScoringRules struct {
	NegativeMarking        bool    `json:"negative_marking"`
	NegativeMarkPercentage float64 `json:"negative_mark_percentage"`
	AllowReview            bool    `json:"allow_review"`
	ShowCorrectAnswers     bool    `json:"show_correct_answers"`
	ShuffleQuestions       bool    `json:"shuffle_questions"`
	ShuffleOptions         bool    `json:"shuffle_options"`
	AllowSkip              bool    `json:"allow_skip"`
}

type SessionHandle struct {
	SessionToken     string       `json:"session_token"`
	AttemptID        uint         `json:"attempt_id"`
	TestID           uint         `json:"test_id"`
	AttemptNumber    int          `json:"attempt_number"`
	TotalQuestions   int          `json:"total_questions"`
	TotalMarks       float64      `json:"total_marks"`
	TimeLimitMinutes int          `json:"time_limit_minutes"`
	Status           string       `json:"status"`
	StartedAt        time.Time    `json:"started_at"`
	ExpiresAt        time.Time    `json:"expires_at"`
	Rules            ScoringRules `json:"rules"`
}

type ActiveSession struct {
	SessionToken      string       `json:"session_token"`
	AttemptID         uint         `json:"attempt_id"`
	TestID            uint         `json:"test_id"`
	AttemptNumber     int          `json:"attempt_number"`
	Status            string       `json:"status"`
	TotalQuestions    int          `json:"total_questions"`
	AnsweredQuestions int          `json:"answered_questions"`
	StartedAt         time.Time    `json:"started_at"`
	ExpiresAt         time.Time    `json:"expires_at"`
	RemainingSeconds  int64        `json:"remaining_seconds"`
	Rules             ScoringRules `json:"rules"`
}

// QuestionView is the student-facing question. It has no correctness data.
type QuestionView struct {
	QuestionID       uint         `json:"question_id"`
	DisplayOrder     int          `json:"display_order"`
	Text             string       `json:"text"`
	Type             string       `json:"type"`
	Marks            float64      `json:"marks"`
	Options          []OptionView `json:"options"`
	SelectedOptionID *uint        `json:"selected_option_id,omitempty"`
	IsAnswered       bool         `json:"is_answered"`
}

type OptionView struct {
	OptionID uint   `json:"option_id"`
	Text     string `json:"text"`
}

type AnswerInput struct {
	SessionToken     string
	QuestionID       uint
	SelectedOptionID *uint
}

type ResultSummary struct {
	AttemptID           uint         `json:"attempt_id"`
	TestID              uint         `json:"test_id"`
	AttemptNumber       int          `json:"attempt_number"`
	Status              string       `json:"status"`
	TotalQuestions      int          `json:"total_questions"`
	AnsweredQuestions   int          `json:"answered_questions"`
	CorrectAnswers      int          `json:"correct_answers"`
	WrongAnswers        int          `json:"wrong_answers"`
	UnansweredQuestions int          `json:"unanswered_questions"`
	TotalMarksObtained  float64      `json:"total_marks_obtained"`
	TotalMarksAvailable float64      `json:"total_marks_available"`
	Percentage          float64      `json:"percentage"`
	PassingMarks        *float64     `json:"passing_marks,omitempty"`
	IsPassed            bool         `json:"is_passed"`
	TimeTakenSeconds    int64        `json:"time_taken_seconds"`
	StartedAt           time.Time    `json:"started_at"`
	SubmittedAt         *time.Time   `json:"submitted_at,omitempty"`
	Review              []ReviewItem `json:"review,omitempty"`
}

type ReviewItem struct {
	QuestionID       uint    `json:"question_id"`
	DisplayOrder     int     `json:"display_order"`
	Text             string  `json:"text"`
	SelectedOptionID *uint   `json:"selected_option_id,omitempty"`
	CorrectOptionID  *uint   `json:"correct_option_id,omitempty"`
	IsAnswered       bool    `json:"is_answered"`
	IsCorrect        bool    `json:"is_correct"`
	MarksObtained    float64 `json:"marks_obtained"`
}

// AttemptSummary is a row of the attempt history lists.
type AttemptSummary struct {
	AttemptID          uint       `json:"attempt_id"`
	TestID             uint       `json:"test_id"`
	AttemptNumber      int        `json:"attempt_number"`
	Status             string     `json:"status"`
	TotalMarksObtained float64    `json:"total_marks_obtained"`
	TotalMarks         float64    `json:"total_marks_available"`
	Percentage         float64    `json:"percentage"`
	IsPassed           bool       `json:"is_passed"`
	TimeTakenSeconds   int64      `json:"time_taken_seconds"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
}
