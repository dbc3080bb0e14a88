package repository

import (
	"context"

	"gorm.io/gorm"

	"ntraining/backend/internal/model"
)

// QuizRepository quiz definition data access.
type QuizRepository interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	GetByID(ctx context.Context, id string) (*model.Quiz, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Quiz, error)
}

type quizRepo struct {
	db *gorm.DB
}

// NewQuizRepo creates a QuizRepository.
func NewQuizRepo(db *gorm.DB) QuizRepository {
	return &quizRepo{db: db}
}

// Create inserts the quiz together with its questions and options.
func (r *quizRepo) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

// GetByID loads the quiz with questions and options in display order.
func (r *quizRepo) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("quiz_id = ?", id).
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&quizzes).Error
	return quizzes, err
}
