package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Certificate permanent proof of one (user, course) completion (table certificates)
type Certificate struct {
	CertificateID    string            `gorm:"type:uuid;primaryKey"                                  json:"certificate_id"`
	UserID           string            `gorm:"type:uuid;not null;uniqueIndex:uq_certificates_user_course" json:"user_id"`
	CourseID         string            `gorm:"type:uuid;not null;uniqueIndex:uq_certificates_user_course" json:"course_id"`
	OrganizationID   *string           `gorm:"type:uuid"                                             json:"organization_id,omitempty"`
	VerificationCode string            `gorm:"type:varchar(20);not null;uniqueIndex:uq_certificates_code" json:"verification_code"`
	IssuedAt         time.Time         `gorm:"not null"                                              json:"issued_at"`
	AttemptID        *string           `gorm:"type:uuid"                                             json:"attempt_id,omitempty"`
	Source           datatypes.JSONMap `json:"source,omitempty"`
	PDFLocation      *string           `gorm:"type:text"                                             json:"pdf_location,omitempty"`
	CreatedAt        time.Time         `gorm:"not null"                                              json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null"                                              json:"updated_at"`

	User         *User         `gorm:"foreignKey:UserID;references:UserID"                 json:"user,omitempty"`
	Course       *Course       `gorm:"foreignKey:CourseID;references:CourseID"             json:"course,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID;references:OrganizationID" json:"organization,omitempty"`
}

// TableName table name
func (Certificate) TableName() string { return "certificates" }

func (c *Certificate) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.CertificateID)
	return nil
}
