package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"testengine/backend/models"
	"testengine/backend/services/testsession"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// GetQuestions loads the questions with their options in one round trip per
// table. Ids that do not exist are left out of the map.
func (r *QuestionRepository) GetQuestions(ctx context.Context, ids []uint) (map[uint]*testsession.Question, error) {
	out := make(map[uint]*testsession.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC, id ASC")
		}).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	for i := range rows {
		q := &rows[i]
		item := &testsession.Question{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: make([]testsession.Option, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			item.Options = append(item.Options, testsession.Option{
				ID:           o.ID,
				Text:         o.Text,
				DisplayOrder: o.SequenceOrder,
				IsCorrect:    o.IsCorrect,
			})
		}
		out[q.ID] = item
	}
	return out, nil
}
