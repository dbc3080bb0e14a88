package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ntraining/backend/internal/model"
	pkgerrors "ntraining/backend/pkg/errors"
)

// QuizAttemptRepository attempt and answer data access.
type QuizAttemptRepository interface {
	Create(ctx context.Context, attempt *model.QuizAttempt) error
	GetByID(ctx context.Context, id string) (*model.QuizAttempt, error)
	CountByUserQuiz(ctx context.Context, userID, quizID string) (int64, error)
	ListByUserQuiz(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error)
	ListOpenTimed(ctx context.Context, startedBefore time.Time, limit int) ([]model.QuizAttempt, error)
	TouchOpen(ctx context.Context, attemptID string, version int) error
	UpsertAnswer(ctx context.Context, answer *model.QuizAnswer) error
	Finalize(ctx context.Context, attempt *model.QuizAttempt) error
}

type quizAttemptRepo struct {
	db *gorm.DB
}

// NewQuizAttemptRepo creates a QuizAttemptRepository.
func NewQuizAttemptRepo(db *gorm.DB) QuizAttemptRepository {
	return &quizAttemptRepo{db: db}
}

// Create inserts a new attempt. The (user_id, quiz_id, attempt_number)
// unique index rejects a second attempt racing for the same number.
func (r *quizAttemptRepo) Create(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (r *quizAttemptRepo) GetByID(ctx context.Context, id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answered_at ASC")
		}).
		Where("attempt_id = ?", id).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *quizAttemptRepo) CountByUserQuiz(ctx context.Context, userID, quizID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}

func (r *quizAttemptRepo) ListByUserQuiz(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

// ListOpenTimed returns open attempts that have a time limit and started
// before startedBefore, oldest first. Whether the deadline has passed is
// left to the caller.
func (r *quizAttemptRepo) ListOpenTimed(ctx context.Context, startedBefore time.Time, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("completed_at IS NULL AND time_limit_seconds IS NOT NULL AND started_at < ?", startedBefore).
		Order("started_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// TouchOpen bumps the version of an attempt that is still open and still at
// version. Answer writes run it first in their transaction so they serialize
// against finalization: once Finalize commits, this matches nothing.
func (r *quizAttemptRepo) TouchOpen(ctx context.Context, attemptID string, version int) error {
	result := r.db.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Where("attempt_id = ? AND version = ? AND completed_at IS NULL", attemptID, version).
		Update("version", gorm.Expr("version + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// UpsertAnswer stores the answer, replacing any earlier answer to the same
// question.
func (r *quizAttemptRepo) UpsertAnswer(ctx context.Context, answer *model.QuizAnswer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_id", "is_correct", "points_earned", "answered_at",
			}),
		}).
		Create(answer).Error
}

// Finalize writes the result of an open attempt exactly once. A caller that
// lost the race (version moved or the attempt is already completed) gets
// ErrOptimisticLock and must re-read.
func (r *quizAttemptRepo) Finalize(ctx context.Context, attempt *model.QuizAttempt) error {
	result := r.db.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Where("attempt_id = ? AND version = ? AND completed_at IS NULL", attempt.AttemptID, attempt.Version).
		Updates(map[string]interface{}{
			"completed_at": attempt.CompletedAt,
			"score":        attempt.Score,
			"max_score":    attempt.MaxScore,
			"percentage":   attempt.Percentage,
			"passed":       attempt.Passed,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	attempt.Version++
	return nil
}
