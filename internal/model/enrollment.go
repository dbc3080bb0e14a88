package model

import (
	"time"

	"gorm.io/gorm"
)

// GrantedVia how an enrollment was obtained.
type GrantedVia string

const (
	GrantedViaLicense GrantedVia = "license"
	GrantedViaDirect  GrantedVia = "direct"
	GrantedViaPath    GrantedVia = "path"
)

// EnrollmentStatus lifecycle of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentRevoked   EnrollmentStatus = "revoked"
)

// Enrollment links one learner to one course inside one organization (table enrollments)
//
// SeatHeld records whether this row currently owns a consumed seat. Revoke
// clears it in the same conditional write that releases the seat.
type Enrollment struct {
	EnrollmentID   string           `gorm:"type:uuid;primaryKey"                                        json:"enrollment_id"`
	UserID         string           `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_user_course_org" json:"user_id"`
	CourseID       string           `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_user_course_org" json:"course_id"`
	OrganizationID string           `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_user_course_org" json:"organization_id"`
	GrantedVia     GrantedVia       `gorm:"type:varchar(20);not null"                                   json:"granted_via"`
	IsMandatory    bool             `gorm:"not null;default:false"                                      json:"is_mandatory"`
	Deadline       *time.Time       `json:"deadline,omitempty"`
	Status         EnrollmentStatus `gorm:"type:varchar(20);not null;default:'active'"                  json:"status"`
	SeatHeld       bool             `gorm:"not null;default:false"                                      json:"seat_held"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	RevokedAt      *time.Time       `json:"revoked_at,omitempty"`
	VersionedModel

	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName table name
func (Enrollment) TableName() string { return "enrollments" }

func (e *Enrollment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EnrollmentID)
	return nil
}

// HasAccess reports whether the enrollment still grants access to the course.
// Completed learners keep access so they may retake quizzes.
func (e *Enrollment) HasAccess() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}
