package dto

import "time"

// ── Enrollment DTOs ──

// AssignRequest assign a course to a learner within an organization
type AssignRequest struct {
	UserID         string     `json:"user_id"         binding:"required,uuid"`
	CourseID       string     `json:"course_id"       binding:"required,uuid"`
	OrganizationID string     `json:"organization_id" binding:"required,uuid"`
	IsMandatory    *bool      `json:"is_mandatory"` // defaults to the grant's flag
	Deadline       *time.Time `json:"deadline"`
	ViaLicense     bool       `json:"via_license"`
}

// RevokeEnrollmentRequest withdraw a learner's access. Without an
// organization every enrollment of the learner in the course is revoked.
type RevokeEnrollmentRequest struct {
	UserID         string `json:"user_id"         binding:"required,uuid"`
	CourseID       string `json:"course_id"       binding:"required,uuid"`
	OrganizationID string `json:"organization_id" binding:"omitempty,uuid"`
}

// EnrollmentResponse enrollment as seen by learners and admins
type EnrollmentResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	CourseID       string  `json:"course_id"`
	CourseTitle    string  `json:"course_title,omitempty"`
	OrganizationID string  `json:"organization_id"`
	GrantedVia     string  `json:"granted_via"`
	IsMandatory    bool    `json:"is_mandatory"`
	Deadline       *string `json:"deadline"`
	Overdue        bool    `json:"overdue"`
	Status         string  `json:"status"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// EligibilityResponse whether the caller may start the quiz
type EligibilityResponse struct {
	QuizID   string `json:"quiz_id"`
	Eligible bool   `json:"eligible"`
}

// AutoEnrollSkip a grant that could not be applied to a new member
type AutoEnrollSkip struct {
	CourseID string `json:"course_id"`
	Reason   string `json:"reason"`
}

// AutoEnrollResponse outcome of enrolling a new organization member
type AutoEnrollResponse struct {
	Enrolled []EnrollmentResponse `json:"enrolled"`
	Skipped  []AutoEnrollSkip     `json:"skipped"`
}
