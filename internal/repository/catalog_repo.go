package repository

import (
	"context"

	"gorm.io/gorm"

	"ntraining/backend/internal/model"
)

// CatalogRepository organizations, courses and users. These rows are owned
// by the admin surface; the engine only reads them (writes exist for seeding).
type CatalogRepository interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	CreateCourse(ctx context.Context, course *model.Course) error
	CreateUser(ctx context.Context, user *model.User) error
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type catalogRepo struct {
	db *gorm.DB
}

// NewCatalogRepo creates a CatalogRepository.
func NewCatalogRepo(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *catalogRepo) CreateCourse(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *catalogRepo) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *catalogRepo) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).Where("organization_id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *catalogRepo) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).Where("course_id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *catalogRepo) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
