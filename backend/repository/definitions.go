// Package repository implements the engine's collaborators on top of the
// relational store the rest of the platform writes to.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"testengine/backend/models"
	"testengine/backend/services/testsession"
)

type DefinitionRepository struct {
	db *gorm.DB
}

func NewDefinitionRepository(db *gorm.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

func (r *DefinitionRepository) GetTestDefinition(ctx context.Context, testID uint) (*testsession.TestDefinition, error) {
	var test models.Test
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC, id ASC")
		}).
		First(&test, testID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, testsession.ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load test %d: %w", testID, err)
	}
	return toDefinition(&test), nil
}

// RefreshAvailability overwrites the availability flags of def with the
// stored ones. The rest of the definition is left as is.
func (r *DefinitionRepository) RefreshAvailability(ctx context.Context, def *testsession.TestDefinition) error {
	var test models.Test
	err := r.db.WithContext(ctx).
		Select("id", "is_active", "is_published", "start_date", "end_date").
		First(&test, def.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return testsession.ErrTestNotFound
	}
	if err != nil {
		return fmt.Errorf("load availability of test %d: %w", def.ID, err)
	}
	def.IsActive = test.IsActive
	def.IsPublished = test.IsPublished
	def.StartDate = test.StartDate
	def.EndDate = test.EndDate
	return nil
}

func toDefinition(t *models.Test) *testsession.TestDefinition {
	def := &testsession.TestDefinition{
		ID:                     t.ID,
		Title:                  t.Title,
		TimeLimitMinutes:       t.TimeLimitMinutes,
		PassingMarks:           t.PassingMarks,
		TotalMarks:             t.TotalMarks,
		NegativeMarking:        t.NegativeMarking,
		NegativeMarkPercentage: t.NegativeMarkPercentage,
		AllowReview:            t.AllowReview,
		ShowCorrectAnswers:     t.ShowCorrectAnswers,
		ShuffleQuestions:       t.ShuffleQuestions,
		ShuffleOptions:         t.ShuffleOptions,
		AllowSkip:              t.AllowSkip,
		IsActive:               t.IsActive,
		IsPublished:            t.IsPublished,
		StartDate:              t.StartDate,
		EndDate:                t.EndDate,
	}
	// A stored limit of zero means unlimited.
	if t.MaxAttempts != nil && *t.MaxAttempts > 0 {
		max := *t.MaxAttempts
		def.MaxAttempts = &max
	}
	def.Questions = make([]testsession.QuestionRef, 0, len(t.Questions))
	for _, q := range t.Questions {
		def.Questions = append(def.Questions, testsession.QuestionRef{
			QuestionID:    q.QuestionID,
			DisplayOrder:  q.SequenceOrder,
			Marks:         q.Marks,
			NegativeMarks: q.NegativeMarks,
		})
	}
	return def
}
