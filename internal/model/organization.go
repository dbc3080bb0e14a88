package model

import "gorm.io/gorm"

// Organization tenant that purchases course access (table organizations)
type Organization struct {
	OrganizationID string `gorm:"type:uuid;primaryKey"       json:"organization_id"`
	Name           string `gorm:"type:varchar(200);not null" json:"name"`
	BaseModel
}

// TableName table name
func (Organization) TableName() string { return "organizations" }

func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	ensureID(&o.OrganizationID)
	return nil
}

// Course catalogue entry (table courses)
type Course struct {
	CourseID    string `gorm:"type:uuid;primaryKey"       json:"course_id"`
	Title       string `gorm:"type:varchar(200);not null" json:"title"`
	Description string `gorm:"type:text"                  json:"description,omitempty"`
	BaseModel
}

// TableName table name
func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.CourseID)
	return nil
}

// User learner profile mirrored from the identity provider (table users)
type User struct {
	UserID string `gorm:"type:uuid;primaryKey"       json:"user_id"`
	Name   string `gorm:"type:varchar(200);not null" json:"name"`
	Email  string `gorm:"type:varchar(255);not null" json:"email"`
	BaseModel
}

// TableName table name
func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}
