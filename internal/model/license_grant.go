package model

import (
	"time"

	"gorm.io/gorm"
)

// AccessType how an organization holds a course.
type AccessType string

const (
	AccessLicensed  AccessType = "licensed"
	AccessUnlimited AccessType = "unlimited"
	AccessTrial     AccessType = "trial"
)

// Valid reports whether t is a known access type.
func (t AccessType) Valid() bool {
	switch t {
	case AccessLicensed, AccessUnlimited, AccessTrial:
		return true
	}
	return false
}

// LicenseGrant an organization's access terms for one course (table license_grants)
//
// UsedSeats is only ever changed by the conditional increment/decrement in
// the repository; nothing writes it from a value held in memory.
type LicenseGrant struct {
	LicenseGrantID   string     `gorm:"type:uuid;primaryKey"                                  json:"license_grant_id"`
	OrganizationID   string     `gorm:"type:uuid;not null;uniqueIndex:uq_license_grants_org_course" json:"organization_id"`
	CourseID         string     `gorm:"type:uuid;not null;uniqueIndex:uq_license_grants_org_course" json:"course_id"`
	AccessType       AccessType `gorm:"type:varchar(20);not null;default:'licensed'"         json:"access_type"`
	TotalSeats       *int       `json:"total_seats"`
	UsedSeats        int        `gorm:"not null;default:0"                                    json:"used_seats"`
	ValidFrom        time.Time  `gorm:"not null"                                              json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until,omitempty"`
	IsMandatory      bool       `gorm:"not null;default:false"                                json:"is_mandatory"`
	AutoEnroll       bool       `gorm:"not null;default:false"                                json:"auto_enroll"`
	AllowCertificate bool       `gorm:"not null"                                              json:"allow_certificate"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	VersionedModel

	Organization *Organization `gorm:"foreignKey:OrganizationID;references:OrganizationID" json:"organization,omitempty"`
	Course       *Course       `gorm:"foreignKey:CourseID;references:CourseID"             json:"course,omitempty"`
}

// TableName table name
func (LicenseGrant) TableName() string { return "license_grants" }

func (g *LicenseGrant) BeforeCreate(_ *gorm.DB) error {
	ensureID(&g.LicenseGrantID)
	return nil
}

// IsValidAt reports whether the grant is usable at t: inside
// [ValidFrom, ValidUntil] (open ended when ValidUntil is nil) and not revoked.
func (g *LicenseGrant) IsValidAt(t time.Time) bool {
	if g.RevokedAt != nil {
		return false
	}
	if t.Before(g.ValidFrom) {
		return false
	}
	if g.ValidUntil != nil && t.After(*g.ValidUntil) {
		return false
	}
	return true
}

// RemainingSeats returns nil for grants without a seat cap.
func (g *LicenseGrant) RemainingSeats() *int {
	if g.AccessType != AccessLicensed || g.TotalSeats == nil {
		return nil
	}
	remaining := *g.TotalSeats - g.UsedSeats
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
