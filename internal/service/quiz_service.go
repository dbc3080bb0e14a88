package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/model"
	"ntraining/backend/internal/repository"
)

// ── Quiz errors ──

var (
	ErrInvalidQuiz = errors.New("quiz configuration is invalid")
)

// QuizService quiz authoring and lookup.
type QuizService interface {
	Create(ctx context.Context, req *dto.CreateQuizRequest, callerID string) (*dto.QuizResponse, error)
	// Get returns the quiz; correct flags are only included when
	// revealAnswers is set (authors and admins).
	Get(ctx context.Context, quizID string, revealAnswers bool) (*dto.QuizResponse, error)
}

type quizService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewQuizService creates a QuizService.
func NewQuizService(repo *repository.Repository, logger *zap.Logger) QuizService {
	return &quizService{repo: repo, logger: logger}
}

func (s *quizService) Create(ctx context.Context, req *dto.CreateQuizRequest, callerID string) (*dto.QuizResponse, error) {
	if _, err := s.repo.Catalog.GetCourse(ctx, req.CourseID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("load course failed", zap.Error(err))
		return nil, storageErr(err)
	}

	quiz := &model.Quiz{
		CourseID:           req.CourseID,
		Title:              req.Title,
		PassingScore:       req.PassingScore,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		MaxAttempts:        req.MaxAttempts,
		ShowCorrectAnswers: req.ShowCorrectAnswers,
	}
	quiz.CreatedBy = &callerID
	quiz.UpdatedBy = &callerID
	for i, q := range req.Questions {
		question := model.QuizQuestion{
			Position:     i + 1,
			Prompt:       q.Prompt,
			QuestionType: model.QuestionType(q.QuestionType),
			Points:       q.Points,
		}
		for j, o := range q.Options {
			question.Options = append(question.Options, model.QuestionOption{
				Position:  j + 1,
				Label:     o.Label,
				IsCorrect: o.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := ValidateQuiz(quiz); err != nil {
		return nil, err
	}

	if err := s.repo.Quiz.Create(ctx, quiz); err != nil {
		s.logger.Error("create quiz failed", zap.Error(err))
		return nil, storageErr(err)
	}

	s.logger.Info("quiz created",
		zap.String("quiz_id", quiz.QuizID),
		zap.String("course_id", quiz.CourseID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return toQuizResponse(quiz, true), nil
}

func (s *quizService) Get(ctx context.Context, quizID string, revealAnswers bool) (*dto.QuizResponse, error) {
	quiz, err := s.repo.Quiz.GetByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("load quiz failed", zap.Error(err))
		return nil, storageErr(err)
	}
	return toQuizResponse(quiz, revealAnswers), nil
}

// ValidateQuiz checks the shape rules every gradable quiz must satisfy:
// at least one question, passing score within 0-100, every question worth
// at least one point with at least one correct option, and true/false
// questions with exactly two options of which exactly one is correct.
func ValidateQuiz(q *model.Quiz) error {
	if len(q.Questions) == 0 {
		return ErrInvalidQuiz
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return ErrInvalidQuiz
	}
	for i := range q.Questions {
		question := &q.Questions[i]
		if question.Points < 1 {
			return ErrInvalidQuiz
		}
		correct := 0
		for _, o := range question.Options {
			if o.IsCorrect {
				correct++
			}
		}
		switch question.QuestionType {
		case model.QuestionTrueFalse:
			if len(question.Options) != 2 || correct != 1 {
				return ErrInvalidQuiz
			}
		case model.QuestionSingleChoice:
			if len(question.Options) < 2 || correct < 1 {
				return ErrInvalidQuiz
			}
		default:
			return ErrInvalidQuiz
		}
	}
	return nil
}

func toQuizResponse(q *model.Quiz, revealAnswers bool) *dto.QuizResponse {
	resp := &dto.QuizResponse{
		ID:                 q.QuizID,
		CourseID:           q.CourseID,
		Title:              q.Title,
		PassingScore:       q.PassingScore,
		TimeLimitMinutes:   q.TimeLimitMinutes,
		MaxAttempts:        q.MaxAttempts,
		ShowCorrectAnswers: q.ShowCorrectAnswers,
		MaxScore:           q.MaxScore(),
		Questions:          make([]dto.QuestionResponse, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		qr := dto.QuestionResponse{
			ID:           question.QuestionID,
			Position:     question.Position,
			Prompt:       question.Prompt,
			QuestionType: string(question.QuestionType),
			Points:       question.Points,
			Options:      make([]dto.OptionResponse, 0, len(question.Options)),
		}
		for _, o := range question.Options {
			or := dto.OptionResponse{ID: o.OptionID, Position: o.Position, Label: o.Label}
			if revealAnswers {
				correct := o.IsCorrect
				or.IsCorrect = &correct
			}
			qr.Options = append(qr.Options, or)
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp
}
