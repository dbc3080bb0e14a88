package dto

import "time"

// ── License ledger DTOs ──

// GrantAccessRequest grant an organization access to a course
type GrantAccessRequest struct {
	OrganizationID   string     `json:"organization_id"   binding:"required,uuid"`
	CourseID         string     `json:"course_id"         binding:"required,uuid"`
	AccessType       string     `json:"access_type"       binding:"required,oneof=licensed unlimited trial"`
	TotalSeats       *int       `json:"total_seats"       binding:"omitempty,min=0"` // required for licensed
	ValidFrom        *time.Time `json:"valid_from"`                                  // defaults to now
	ValidUntil       *time.Time `json:"valid_until"`                                 // nil = no expiry
	IsMandatory      bool       `json:"is_mandatory"`
	AutoEnroll       bool       `json:"auto_enroll"`
	AllowCertificate *bool      `json:"allow_certificate"` // defaults to true
}

// UpdateAccessRequest partial update of a grant's terms; nil fields are kept
type UpdateAccessRequest struct {
	AccessType       *string    `json:"access_type"       binding:"omitempty,oneof=licensed unlimited trial"`
	TotalSeats       *int       `json:"total_seats"       binding:"omitempty,min=0"`
	ValidFrom        *time.Time `json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until"`
	ClearValidUntil  bool       `json:"clear_valid_until"` // make the grant open ended
	IsMandatory      *bool      `json:"is_mandatory"`
	AutoEnroll       *bool      `json:"auto_enroll"`
	AllowCertificate *bool      `json:"allow_certificate"`
}

// AddSeatsRequest buy additional seats
type AddSeatsRequest struct {
	Delta int `json:"delta" binding:"required,min=1"`
}

// LicenseGrantResponse grant with live utilization
type LicenseGrantResponse struct {
	ID               string  `json:"id"`
	OrganizationID   string  `json:"organization_id"`
	CourseID         string  `json:"course_id"`
	CourseTitle      string  `json:"course_title,omitempty"`
	AccessType       string  `json:"access_type"`
	TotalSeats       *int    `json:"total_seats"`
	UsedSeats        int     `json:"used_seats"`
	RemainingSeats   *int    `json:"remaining_seats"`
	ValidFrom        string  `json:"valid_from"`
	ValidUntil       *string `json:"valid_until"`
	IsMandatory      bool    `json:"is_mandatory"`
	AutoEnroll       bool    `json:"auto_enroll"`
	AllowCertificate bool    `json:"allow_certificate"`
	IsValidNow       bool    `json:"is_valid_now"`
	RevokedAt        *string `json:"revoked_at,omitempty"`
	Version          int     `json:"version"`
	UpdatedAt        string  `json:"updated_at"`
}
