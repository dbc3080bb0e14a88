package model

import (
	"time"

	"gorm.io/gorm"
)

// AttemptState derived lifecycle state of an attempt.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptCompleted  AttemptState = "completed"
)

// QuizAttempt one timed, scored run of a quiz (table quiz_attempts)
//
// Rows with CompletedAt set are read-only; every write path filters on
// completed_at IS NULL and on Version.
type QuizAttempt struct {
	AttemptID        string     `gorm:"type:uuid;primaryKey"                                         json:"attempt_id"`
	UserID           string     `gorm:"type:uuid;not null;uniqueIndex:uq_quiz_attempts_user_quiz_number" json:"user_id"`
	QuizID           string     `gorm:"type:uuid;not null;uniqueIndex:uq_quiz_attempts_user_quiz_number" json:"quiz_id"`
	AttemptNumber    int        `gorm:"not null;uniqueIndex:uq_quiz_attempts_user_quiz_number"       json:"attempt_number"`
	StartedAt        time.Time  `gorm:"not null"                                                     json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeLimitSeconds *int       `json:"time_limit_seconds,omitempty"`
	Score            int        `gorm:"not null;default:0"                                           json:"score"`
	MaxScore         int        `gorm:"not null;default:0"                                           json:"max_score"`
	Percentage       int        `gorm:"not null;default:0"                                           json:"percentage"`
	Passed           bool       `gorm:"not null;default:false"                                       json:"passed"`
	Version          int        `gorm:"not null;default:1"                                           json:"version"`
	CreatedAt        time.Time  `gorm:"not null"                                                     json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null"                                                     json:"updated_at"`

	Answers []QuizAnswer `gorm:"foreignKey:AttemptID;references:AttemptID" json:"answers,omitempty"`
}

// TableName table name
func (QuizAttempt) TableName() string { return "quiz_attempts" }

func (a *QuizAttempt) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AttemptID)
	return nil
}

// State current lifecycle state.
func (a *QuizAttempt) State() AttemptState {
	if a.CompletedAt != nil {
		return AttemptCompleted
	}
	return AttemptInProgress
}

// Deadline instant after which the attempt auto-finalizes; ok is false for
// untimed attempts.
func (a *QuizAttempt) Deadline() (deadline time.Time, ok bool) {
	if a.TimeLimitSeconds == nil {
		return time.Time{}, false
	}
	return a.StartedAt.Add(time.Duration(*a.TimeLimitSeconds) * time.Second), true
}

// QuizAnswer the learner's current answer to one question (table quiz_answers)
type QuizAnswer struct {
	AnswerID         string    `gorm:"type:uuid;primaryKey"                                      json:"answer_id"`
	AttemptID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_quiz_answers_attempt_question" json:"attempt_id"`
	QuestionID       string    `gorm:"type:uuid;not null;uniqueIndex:uq_quiz_answers_attempt_question" json:"question_id"`
	SelectedOptionID string    `gorm:"type:uuid;not null"                                        json:"selected_option_id"`
	IsCorrect        bool      `gorm:"not null;default:false"                                    json:"is_correct"`
	PointsEarned     int       `gorm:"not null;default:0"                                        json:"points_earned"`
	AnsweredAt       time.Time `gorm:"not null"                                                  json:"answered_at"`
}

// TableName table name
func (QuizAnswer) TableName() string { return "quiz_answers" }

func (a *QuizAnswer) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AnswerID)
	return nil
}
