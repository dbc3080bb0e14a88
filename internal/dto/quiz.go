package dto

// ── Quiz DTOs ──

// CreateQuizRequest author a quiz with its questions
type CreateQuizRequest struct {
	CourseID           string                  `json:"course_id"            binding:"required,uuid"`
	Title              string                  `json:"title"                binding:"required,min=1,max=200"`
	PassingScore       int                     `json:"passing_score"        binding:"min=0,max=100"`
	TimeLimitMinutes   *int                    `json:"time_limit_minutes"   binding:"omitempty,min=1"`
	MaxAttempts        *int                    `json:"max_attempts"         binding:"omitempty,min=1"`
	ShowCorrectAnswers bool                    `json:"show_correct_answers"`
	Questions          []CreateQuestionRequest `json:"questions"            binding:"required,min=1,dive"`
}

// CreateQuestionRequest one question in display order
type CreateQuestionRequest struct {
	Prompt       string                `json:"prompt"        binding:"required"`
	QuestionType string                `json:"question_type" binding:"required,oneof=single_choice true_false"`
	Points       int                   `json:"points"        binding:"required,min=1"`
	Options      []CreateOptionRequest `json:"options"       binding:"required,min=2,dive"`
}

// CreateOptionRequest one answer option in display order
type CreateOptionRequest struct {
	Label     string `json:"label"      binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizResponse quiz definition. Correct flags are only filled for authors.
type QuizResponse struct {
	ID                 string             `json:"id"`
	CourseID           string             `json:"course_id"`
	Title              string             `json:"title"`
	PassingScore       int                `json:"passing_score"`
	TimeLimitMinutes   *int               `json:"time_limit_minutes"`
	MaxAttempts        *int               `json:"max_attempts"`
	ShowCorrectAnswers bool               `json:"show_correct_answers"`
	MaxScore           int                `json:"max_score"`
	Questions          []QuestionResponse `json:"questions"`
}

// QuestionResponse question with its options
type QuestionResponse struct {
	ID           string           `json:"id"`
	Position     int              `json:"position"`
	Prompt       string           `json:"prompt"`
	QuestionType string           `json:"question_type"`
	Points       int              `json:"points"`
	Options      []OptionResponse `json:"options"`
}

// OptionResponse answer option
type OptionResponse struct {
	ID        string `json:"id"`
	Position  int    `json:"position"`
	Label     string `json:"label"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}
