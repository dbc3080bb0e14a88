package dto

// ── Quiz attempt DTOs ──

// RecordAnswerRequest answer (or re-answer) one question
type RecordAnswerRequest struct {
	QuestionID       string `json:"question_id"        binding:"required,uuid"`
	SelectedOptionID string `json:"selected_option_id" binding:"required,uuid"`
}

// AttemptResponse attempt result object. Score fields are only present
// once the attempt is completed.
type AttemptResponse struct {
	AttemptID     string           `json:"attempt_id"`
	QuizID        string           `json:"quiz_id"`
	AttemptNumber int              `json:"attempt_number"`
	State         string           `json:"state"`
	StartedAt     string           `json:"started_at"`
	Deadline      *string          `json:"deadline,omitempty"`
	CompletedAt   *string          `json:"completed_at,omitempty"`
	Score         *int             `json:"score,omitempty"`
	MaxScore      *int             `json:"max_score,omitempty"`
	Percentage    *int             `json:"percentage,omitempty"`
	Passed        *bool            `json:"passed,omitempty"`
	Answers       []AnswerResponse `json:"answers,omitempty"`
}

// AnswerResponse a recorded answer. Grading is hidden until completion;
// the correct options are only revealed when the quiz allows it. A
// question may have more than one correct option; any of them scores.
type AnswerResponse struct {
	QuestionID       string   `json:"question_id"`
	SelectedOptionID string   `json:"selected_option_id"`
	IsCorrect        *bool    `json:"is_correct,omitempty"`
	PointsEarned     *int     `json:"points_earned,omitempty"`
	CorrectOptionIDs []string `json:"correct_option_ids,omitempty"`
	AnsweredAt       string   `json:"answered_at"`
}
