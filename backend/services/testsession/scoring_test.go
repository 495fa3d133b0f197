package testsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testengine/backend/models"
)

func uintPtr(v uint) *uint        { return &v }
func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestScoreAnswer(t *testing.T) {
	q := &Question{ID: 1, Options: []Option{
		{ID: 10, IsCorrect: true},
		{ID: 11},
	}}
	ref := QuestionRef{QuestionID: 1, Marks: 4}

	tests := []struct {
		name     string
		def      TestDefinition
		ref      QuestionRef
		selected *uint
		want     Score
	}{
		{
			name: "skip scores nothing",
			def:  TestDefinition{NegativeMarking: true},
			ref:  ref,
			want: Score{},
		},
		{
			name:     "correct earns marks",
			ref:      ref,
			selected: uintPtr(10),
			want:     Score{IsAnswered: true, IsCorrect: true, MarksObtained: 4},
		},
		{
			name:     "wrong without negative marking",
			ref:      ref,
			selected: uintPtr(11),
			want:     Score{IsAnswered: true},
		},
		{
			name:     "wrong with default fraction",
			def:      TestDefinition{NegativeMarking: true},
			ref:      ref,
			selected: uintPtr(11),
			want:     Score{IsAnswered: true, MarksObtained: -1},
		},
		{
			name:     "wrong with declared fraction",
			def:      TestDefinition{NegativeMarking: true, NegativeMarkPercentage: floatPtr(0.5)},
			ref:      ref,
			selected: uintPtr(11),
			want:     Score{IsAnswered: true, MarksObtained: -2},
		},
		{
			name:     "per question override is absolute",
			def:      TestDefinition{NegativeMarking: true, NegativeMarkPercentage: floatPtr(0.5)},
			ref:      QuestionRef{QuestionID: 1, Marks: 4, NegativeMarks: floatPtr(-3)},
			selected: uintPtr(11),
			want:     Score{IsAnswered: true, MarksObtained: -3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScoreAnswer(&tt.def, tt.ref, q, tt.selected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreAnswerRejectsForeignOption(t *testing.T) {
	q := &Question{ID: 1, Options: []Option{{ID: 10, IsCorrect: true}}}
	_, err := ScoreAnswer(&TestDefinition{}, QuestionRef{QuestionID: 1, Marks: 1}, q, uintPtr(99))
	assert.ErrorIs(t, err, ErrOptionNotInQuestion)
}

func TestTallyAnswers(t *testing.T) {
	answers := []models.ExamAnswer{
		{IsAnswered: true, IsCorrect: true, MarksObtained: 2},
		{IsAnswered: true, MarksObtained: -0.5},
		{IsAnswered: true, MarksObtained: -0.5},
		{},
	}
	got := TallyAnswers(5, answers)

	assert.Equal(t, 3, got.Answered)
	assert.Equal(t, 1, got.Correct)
	assert.Equal(t, 2, got.Wrong)
	assert.Equal(t, 2, got.Unanswered)
	assert.InDelta(t, 1.0, got.Marks, 1e-9)
}

func TestTallyAnswersKeepsNegativeTotal(t *testing.T) {
	got := TallyAnswers(2, []models.ExamAnswer{
		{IsAnswered: true, MarksObtained: -1},
		{IsAnswered: true, MarksObtained: -1},
	})
	assert.InDelta(t, -2.0, got.Marks, 1e-9)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(5, 0))
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 100.0, Percentage(10, 10))
	assert.Equal(t, -12.5, Percentage(-1, 8))
}

func TestPassed(t *testing.T) {
	assert.True(t, Passed(0, nil))
	assert.True(t, Passed(5, floatPtr(5)))
	assert.False(t, Passed(4.99, floatPtr(5)))
}

func TestMarksAvailable(t *testing.T) {
	def := TestDefinition{Questions: []QuestionRef{{Marks: 2}, {Marks: 3}}}
	assert.Equal(t, 5.0, def.MarksAvailable())

	def.TotalMarks = 20
	assert.Equal(t, 20.0, def.MarksAvailable())
}
