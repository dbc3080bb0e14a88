package model

import "gorm.io/gorm"

// QuestionType answer shape of a question.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionTrueFalse    QuestionType = "true_false"
)

// Quiz assessment attached to a course (table quizzes)
type Quiz struct {
	QuizID             string `gorm:"type:uuid;primaryKey"              json:"quiz_id"`
	CourseID           string `gorm:"type:uuid;not null;index"          json:"course_id"`
	Title              string `gorm:"type:varchar(200);not null"        json:"title"`
	PassingScore       int    `gorm:"not null"                          json:"passing_score"`
	TimeLimitMinutes   *int   `json:"time_limit_minutes,omitempty"`
	MaxAttempts        *int   `json:"max_attempts,omitempty"`
	ShowCorrectAnswers bool   `gorm:"not null;default:false"            json:"show_correct_answers"`
	BaseModel

	Questions []QuizQuestion `gorm:"foreignKey:QuizID;references:QuizID" json:"questions,omitempty"`
}

// TableName table name
func (Quiz) TableName() string { return "quizzes" }

func (q *Quiz) BeforeCreate(_ *gorm.DB) error {
	ensureID(&q.QuizID)
	return nil
}

// MaxScore sum of all question point values.
func (q *Quiz) MaxScore() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].Points
	}
	return total
}

// Question finds a question by id.
func (q *Quiz) Question(id string) (*QuizQuestion, bool) {
	for i := range q.Questions {
		if q.Questions[i].QuestionID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// QuizQuestion (table quiz_questions)
type QuizQuestion struct {
	QuestionID   string       `gorm:"type:uuid;primaryKey"                            json:"question_id"`
	QuizID       string       `gorm:"type:uuid;not null;index"                        json:"quiz_id"`
	Position     int          `gorm:"not null"                                        json:"position"`
	Prompt       string       `gorm:"type:text;not null"                              json:"prompt"`
	QuestionType QuestionType `gorm:"type:varchar(20);not null;default:'single_choice'" json:"question_type"`
	Points       int          `gorm:"not null;default:1"                              json:"points"`

	Options []QuestionOption `gorm:"foreignKey:QuestionID;references:QuestionID" json:"options,omitempty"`
}

// TableName table name
func (QuizQuestion) TableName() string { return "quiz_questions" }

func (q *QuizQuestion) BeforeCreate(_ *gorm.DB) error {
	ensureID(&q.QuestionID)
	return nil
}

// Option finds an option of this question by id.
func (q *QuizQuestion) Option(id string) (*QuestionOption, bool) {
	for i := range q.Options {
		if q.Options[i].OptionID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// QuestionOption (table question_options)
type QuestionOption struct {
	OptionID   string `gorm:"type:uuid;primaryKey"       json:"option_id"`
	QuestionID string `gorm:"type:uuid;not null;index"   json:"question_id"`
	Position   int    `gorm:"not null"                   json:"position"`
	Label      string `gorm:"type:text;not null"         json:"label"`
	IsCorrect  bool   `gorm:"not null;default:false"     json:"is_correct"`
}

// TableName table name
func (QuestionOption) TableName() string { return "question_options" }

func (o *QuestionOption) BeforeCreate(_ *gorm.DB) error {
	ensureID(&o.OptionID)
	return nil
}
